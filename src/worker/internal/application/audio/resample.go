package audio

import (
	"math"

	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/audio/wavio"
)

// Resample converts a buffer to the target rate by per-channel linear
// interpolation. A buffer already at the target rate is returned
// untouched so that the common case stays lossless.
func Resample(buffer wavio.Buffer, targetRate int) wavio.Buffer {
	if buffer.SampleRate == targetRate {
		return buffer
	}

	if buffer.Frames() == 0 {
		return wavio.Buffer{
			SampleRate: targetRate,
			Channels:   buffer.Channels,
		}
	}

	srcFrames := buffer.Frames()
	outFrames := int(math.Round(float64(srcFrames) * float64(targetRate) / float64(buffer.SampleRate)))
	if outFrames < 1 {
		outFrames = 1
	}

	ratio := float64(srcFrames-1) / float64(maxInt(outFrames-1, 1))
	samples := make([]float32, outFrames*buffer.Channels)

	for frame := 0; frame < outFrames; frame++ {
		position := float64(frame) * ratio
		left := int(position)
		right := left + 1
		if right >= srcFrames {
			right = srcFrames - 1
		}
		fraction := float32(position - float64(left))

		for channel := 0; channel < buffer.Channels; channel++ {
			leftSample := buffer.Samples[left*buffer.Channels+channel]
			rightSample := buffer.Samples[right*buffer.Channels+channel]
			samples[frame*buffer.Channels+channel] = leftSample + (rightSample-leftSample)*fraction
		}
	}

	return wavio.Buffer{
		SampleRate: targetRate,
		Channels:   buffer.Channels,
		Samples:    samples,
	}
}

func maxInt(a int, b int) int {
	if a > b {
		return a
	}

	return b
}
