package filestore

import (
	"context"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	cloudstorage "github.com/tonefield/stem-splitter-be/src/shared/cloud_storage/entity"
	"github.com/tonefield/stem-splitter-be/src/shared/lib/cerr"
	"google.golang.org/api/option"
)

var _ cloudstorage.FileStore = GoogleFileStore{}

func NewGoogleFileStore(storageHost string, options ...option.ClientOption) (GoogleFileStore, error) {
	client, err := storage.NewClient(context.Background(), options...)
	if err != nil {
		return GoogleFileStore{}, cerr.Wrap(err).Error("Failed to create Google Cloud Storage client")
	}

	return GoogleFileStore{
		storageHost:   storageHost,
		storageClient: client,
	}, nil
}

type GoogleFileStore struct {
	storageHost   string
	storageClient *storage.Client
}

func (g GoogleFileStore) GetFile(ctx context.Context, fileURL string) ([]byte, error) {
	objectHandle, err := g.objectHandleFromURL(fileURL)
	if err != nil {
		return nil, cerr.Wrap(err).Error("Failed to get object handle from URL")
	}

	reader, err := objectHandle.NewReader(ctx)
	if err != nil {
		return nil, cerr.Field("file_url", fileURL).
			Wrap(err).Error("Failed to open object for reading")
	}
	defer reader.Close()

	contents, err := io.ReadAll(reader)
	if err != nil {
		return nil, cerr.Field("file_url", fileURL).
			Wrap(err).Error("Failed to read object contents")
	}

	return contents, nil
}

func (g GoogleFileStore) WriteFile(ctx context.Context, fileURL string, fileContent []byte) error {
	objectHandle, err := g.objectHandleFromURL(fileURL)
	if err != nil {
		return cerr.Wrap(err).Error("Failed to get object handle from URL")
	}

	writer := objectHandle.NewWriter(ctx)
	if _, err := writer.Write(fileContent); err != nil {
		return cerr.Field("file_url", fileURL).
			Wrap(err).Error("Failed to write object contents")
	}

	if err := writer.Close(); err != nil {
		return cerr.Field("file_url", fileURL).
			Wrap(err).Error("Failed to commit object write")
	}

	return nil
}

func (g GoogleFileStore) DeleteFile(ctx context.Context, fileURL string) error {
	objectHandle, err := g.objectHandleFromURL(fileURL)
	if err != nil {
		return cerr.Wrap(err).Error("Failed to get object handle from URL")
	}

	if err := objectHandle.Delete(ctx); err != nil {
		return cerr.Field("file_url", fileURL).
			Wrap(err).Error("Failed to delete object")
	}

	return nil
}

func (g GoogleFileStore) objectHandleFromURL(fileURL string) (*storage.ObjectHandle, error) {
	hostPrefix := g.storageHost + "/"
	if !strings.HasPrefix(fileURL, hostPrefix) {
		return nil, cerr.Fields(cerr.F{
			"file_url":     fileURL,
			"storage_host": g.storageHost,
		}).Error("File URL does not belong to this storage host")
	}

	bucketAndPath := strings.TrimPrefix(fileURL, hostPrefix)
	bucketName, objectPath, found := strings.Cut(bucketAndPath, "/")
	if !found || objectPath == "" {
		return nil, cerr.Field("file_url", fileURL).
			Error("File URL does not contain an object path")
	}

	return g.storageClient.Bucket(bucketName).Object(objectPath), nil
}
