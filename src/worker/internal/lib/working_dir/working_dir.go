package working_dir

import (
	"os"
	"path/filepath"

	"github.com/tonefield/stem-splitter-be/src/shared/lib/cerr"
)

type WorkingDir struct {
	root string
}

func NewWorkingDir(root string) (WorkingDir, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return WorkingDir{}, cerr.Field("root", root).Wrap(err).Error("Failed to resolve working dir to an absolute path")
	}

	workingDir := WorkingDir{root: absRoot}

	err = os.MkdirAll(workingDir.TempDir(), os.ModePerm)
	if err != nil {
		return WorkingDir{}, cerr.Field("temp_dir", workingDir.TempDir()).Wrap(err).Error("Failed to create temp dir under the working dir")
	}

	return workingDir, nil
}

func (w WorkingDir) Root() string {
	return w.root
}

func (w WorkingDir) TempDir() string {
	return filepath.Join(w.root, "tmp")
}
