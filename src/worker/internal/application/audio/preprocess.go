package audio

import (
	"os"

	"github.com/apex/log"
	"github.com/gabriel-vasile/mimetype"
	"github.com/tonefield/stem-splitter-be/src/shared/lib/errors/mark"
	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/audio/wavio"
	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/executor"
	"github.com/tonefield/stem-splitter-be/src/shared/lib/cerr"
)

// TargetSampleRate is what the separation models expect.
const TargetSampleRate = 44100

func NewNormalizer(ffmpegBinPath string, commandExecutor executor.Executor) Normalizer {
	return Normalizer{
		ffmpegBinPath:   ffmpegBinPath,
		commandExecutor: commandExecutor,
	}
}

// Normalizer converts arbitrary input audio into the one shape the
// rest of the pipeline works with: a 44.1kHz float WAV. Sample values
// are passed through untouched, only the container and rate change.
type Normalizer struct {
	ffmpegBinPath   string
	commandExecutor executor.Executor
}

func (n Normalizer) Normalize(inputPath string, outputPath string) error {
	buffer, err := n.decode(inputPath)
	if err != nil {
		return cerr.Field("input_path", inputPath).
			Wrap(err).Error("Failed to decode the input audio")
	}

	if buffer.SampleRate != TargetSampleRate {
		log.WithFields(log.Fields{
			"input_path":  inputPath,
			"sample_rate": buffer.SampleRate,
		}).Info("Resampling input audio")

		buffer = Resample(buffer, TargetSampleRate)
	}

	if err := wavio.WriteFile(outputPath, buffer); err != nil {
		return cerr.Field("output_path", outputPath).
			Wrap(err).Error("Failed to write the normalized audio")
	}

	return nil
}

func (n Normalizer) decode(inputPath string) (wavio.Buffer, error) {
	detected, err := mimetype.DetectFile(inputPath)
	if err != nil {
		return wavio.Buffer{}, cerr.Wrap(err).Error("Failed to sniff the input file type")
	}

	if detected.Is("audio/wav") || detected.Is("audio/x-wav") {
		buffer, err := wavio.ReadFile(inputPath)
		if err == nil {
			return buffer, nil
		}

		// some WAV containers hold codecs wavio can't handle,
		// let ffmpeg have a go at those
		log.WithField("input_path", inputPath).
			Warn("Direct WAV decode failed, falling back to ffmpeg")
	}

	return n.decodeWithFFmpeg(inputPath)
}

func (n Normalizer) decodeWithFFmpeg(inputPath string) (wavio.Buffer, error) {
	decodedPath := inputPath + ".decoded.wav"
	defer os.Remove(decodedPath)

	cmd := n.commandExecutor.Command(
		n.ffmpegBinPath,
		"-y",
		"-i", inputPath,
		"-acodec", "pcm_f32le",
		decodedPath,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return wavio.Buffer{}, cerr.Field("ffmpeg_output", string(output)).
			Wrap(mark.Wrap(err, UnsupportedFormat, "ffmpeg could not convert the input")).
			Error("Failed to convert the input with ffmpeg")
	}

	buffer, err := wavio.ReadFile(decodedPath)
	if err != nil {
		return wavio.Buffer{}, cerr.Wrap(err).Error("Failed to decode the converted audio")
	}

	return buffer, nil
}
