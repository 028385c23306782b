package cloudstorage

import "context"

// FileStore addresses objects by their full public URL,
// i.e. {storage host}/{bucket}/{object path}.
type FileStore interface {
	GetFile(ctx context.Context, fileURL string) ([]byte, error)
	WriteFile(ctx context.Context, fileURL string, fileContent []byte) error
	DeleteFile(ctx context.Context, fileURL string) error
}
