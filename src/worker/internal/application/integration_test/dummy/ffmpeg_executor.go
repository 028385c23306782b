package dummy

import (
	"os"

	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/executor"
)

var _ executor.Executor = &FFmpegExecutor{}

func NewDummyFFmpegExecutor() *FFmpegExecutor {
	return &FFmpegExecutor{}
}

// FFmpegExecutor stands in for the ffmpeg binary. A run "converts" by
// writing the configured WAV bytes to the output path, which is the
// last argument by convention.
type FFmpegExecutor struct {
	Unavailable bool
	OutputWAV   []byte
	CallCount   int
}

func (f *FFmpegExecutor) Command(name string, arg ...string) executor.Command {
	return &ffmpegCommand{
		executor: f,
		args:     arg,
	}
}

type ffmpegCommand struct {
	executor *FFmpegExecutor
	args     []string
}

func (f *ffmpegCommand) SetDir(dir string) {}

func (f *ffmpegCommand) CombinedOutput() ([]byte, error) {
	f.executor.CallCount++

	if f.executor.Unavailable {
		return []byte("simulated conversion failure"), NetworkFailure
	}

	if len(f.args) == 0 {
		return []byte("no output path given"), NotFound
	}

	outputPath := f.args[len(f.args)-1]
	if err := os.WriteFile(outputPath, f.executor.OutputWAV, 0644); err != nil {
		return []byte(err.Error()), err
	}

	return []byte("conversion ok"), nil
}
