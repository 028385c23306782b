package audio

import (
	"github.com/tonefield/stem-splitter-be/src/shared/lib/errors/mark"
	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/audio/wavio"
	"github.com/tonefield/stem-splitter-be/src/shared/lib/cerr"
)

// Reconstruct derives the stem that the separation models never
// produce directly: the part of target left after removing every
// component, by sample-wise subtraction. Buffers are truncated to the
// shortest common length first. No gain scaling, clipping or
// normalization is applied, so summing the reconstructed stem back
// with the components reproduces the target exactly.
func Reconstruct(target wavio.Buffer, components ...wavio.Buffer) (wavio.Buffer, error) {
	for _, component := range components {
		if component.SampleRate != target.SampleRate || component.Channels != target.Channels {
			return wavio.Buffer{}, cerr.Fields(cerr.F{
				"target_sample_rate":    target.SampleRate,
				"target_channels":       target.Channels,
				"component_sample_rate": component.SampleRate,
				"component_channels":    component.Channels,
			}).Wrap(mark.Message(MismatchedBuffers, "All buffers must share a sample rate and channel count")).
				Error("Cannot reconstruct from mismatched buffers")
		}
	}

	minLen := len(target.Samples)
	for _, component := range components {
		if len(component.Samples) < minLen {
			minLen = len(component.Samples)
		}
	}

	samples := make([]float32, minLen)
	for i := 0; i < minLen; i++ {
		sample := target.Samples[i]
		for _, component := range components {
			sample -= component.Samples[i]
		}
		samples[i] = sample
	}

	return wavio.Buffer{
		SampleRate: target.SampleRate,
		Channels:   target.Channels,
		Samples:    samples,
	}, nil
}
