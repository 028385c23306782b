package separate

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"

	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/pipeline"
	"github.com/tonefield/stem-splitter-be/src/shared/lib/cerr"
)

// buildArchive zips every stem into one downloadable bundle, in the
// stable label order.
func buildArchive(stems pipeline.StemFilePaths) ([]byte, error) {
	buffer := &bytes.Buffer{}
	archive := zip.NewWriter(buffer)

	for _, label := range pipeline.StemLabels {
		stemPath := stems[label]

		contents, err := os.ReadFile(stemPath)
		if err != nil {
			return nil, cerr.Field("stem_path", stemPath).
				Wrap(err).Error("Failed to read a stem for archiving")
		}

		entry, err := archive.Create(filepath.Base(stemPath))
		if err != nil {
			return nil, cerr.Field("stem_path", stemPath).
				Wrap(err).Error("Failed to create an archive entry")
		}

		if _, err := entry.Write(contents); err != nil {
			return nil, cerr.Field("stem_path", stemPath).
				Wrap(err).Error("Failed to write a stem into the archive")
		}
	}

	if err := archive.Close(); err != nil {
		return nil, cerr.Wrap(err).Error("Failed to finalize the archive")
	}

	return buffer.Bytes(), nil
}
