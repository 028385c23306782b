package audio

import "github.com/cockroachdb/errors"

var (
	// UnsupportedFormat means no decoder could make sense of the input.
	UnsupportedFormat = errors.New("unsupported_format")
	// MismatchedBuffers means buffers that must agree on sample rate
	// and channel count do not.
	MismatchedBuffers = errors.New("mismatched_buffers")
)
