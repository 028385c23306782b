// Package wavio reads and writes RIFF WAVE files with samples held as
// float32. Decoding accepts integer PCM of common bit depths and IEEE
// float; encoding always produces IEEE float so that repeated
// round-trips never lose sample precision.
package wavio

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/tonefield/stem-splitter-be/src/shared/lib/cerr"
)

const (
	formatPCM       = 1
	formatIEEEFloat = 3
	// WAVE_FORMAT_EXTENSIBLE wraps the real format in a subformat GUID
	formatExtensible = 0xFFFE
)

var MalformedFile = errors.New("malformed_wav_file")

// Buffer holds decoded audio. Samples are interleaved by channel.
type Buffer struct {
	SampleRate int
	Channels   int
	Samples    []float32
}

// Frames is the per-channel sample count.
func (b Buffer) Frames() int {
	if b.Channels == 0 {
		return 0
	}

	return len(b.Samples) / b.Channels
}

func ReadFile(filePath string) (Buffer, error) {
	contents, err := os.ReadFile(filePath)
	if err != nil {
		return Buffer{}, cerr.Field("file_path", filePath).
			Wrap(err).Error("Failed to read WAV file")
	}

	buffer, err := Decode(contents)
	if err != nil {
		return Buffer{}, cerr.Field("file_path", filePath).
			Wrap(err).Error("Failed to decode WAV file")
	}

	return buffer, nil
}

func WriteFile(filePath string, buffer Buffer) error {
	contents, err := Encode(buffer)
	if err != nil {
		return cerr.Field("file_path", filePath).
			Wrap(err).Error("Failed to encode WAV file")
	}

	if err := os.WriteFile(filePath, contents, 0644); err != nil {
		return cerr.Field("file_path", filePath).
			Wrap(err).Error("Failed to write WAV file")
	}

	return nil
}

func Decode(contents []byte) (Buffer, error) {
	if len(contents) < 12 ||
		string(contents[0:4]) != "RIFF" ||
		string(contents[8:12]) != "WAVE" {
		return Buffer{}, errors.Mark(errors.New("Missing RIFF/WAVE header"), MalformedFile)
	}

	var (
		format        uint16
		channels      int
		sampleRate    int
		bitsPerSample int
		sampleData    []byte

		fmtSeen  bool
		dataSeen bool
	)

	// chunk scan, fmt must precede data
	cursor := 12
	for cursor+8 <= len(contents) {
		chunkID := string(contents[cursor : cursor+4])
		chunkSize := int(binary.LittleEndian.Uint32(contents[cursor+4 : cursor+8]))
		chunkStart := cursor + 8

		if chunkStart+chunkSize > len(contents) {
			return Buffer{}, errors.Mark(errors.Newf("Chunk %q overruns the file", chunkID), MalformedFile)
		}

		chunk := contents[chunkStart : chunkStart+chunkSize]

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return Buffer{}, errors.Mark(errors.New("fmt chunk is too short"), MalformedFile)
			}

			format = binary.LittleEndian.Uint16(chunk[0:2])
			channels = int(binary.LittleEndian.Uint16(chunk[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(chunk[4:8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(chunk[14:16]))

			if format == formatExtensible {
				if chunkSize < 40 {
					return Buffer{}, errors.Mark(errors.New("extensible fmt chunk is too short"), MalformedFile)
				}
				// first two bytes of the subformat GUID
				format = binary.LittleEndian.Uint16(chunk[24:26])
			}

			fmtSeen = true

		case "data":
			if !fmtSeen {
				return Buffer{}, errors.Mark(errors.New("data chunk appears before fmt chunk"), MalformedFile)
			}

			sampleData = chunk
			dataSeen = true
		}

		cursor = chunkStart + chunkSize
		// chunks are word aligned
		if chunkSize%2 == 1 {
			cursor++
		}

		if dataSeen {
			break
		}
	}

	if !fmtSeen || !dataSeen {
		return Buffer{}, errors.Mark(errors.New("Missing fmt or data chunk"), MalformedFile)
	}

	if channels <= 0 || sampleRate <= 0 {
		return Buffer{}, errors.Mark(errors.New("fmt chunk has a nonpositive channel count or sample rate"), MalformedFile)
	}

	samples, err := decodeSamples(format, bitsPerSample, sampleData)
	if err != nil {
		return Buffer{}, err
	}

	return Buffer{
		SampleRate: sampleRate,
		Channels:   channels,
		Samples:    samples,
	}, nil
}

func decodeSamples(format uint16, bitsPerSample int, sampleData []byte) ([]float32, error) {
	switch {
	case format == formatIEEEFloat && bitsPerSample == 32:
		samples := make([]float32, len(sampleData)/4)
		for i := range samples {
			bits := binary.LittleEndian.Uint32(sampleData[i*4:])
			samples[i] = math.Float32frombits(bits)
		}
		return samples, nil

	case format == formatPCM && bitsPerSample == 16:
		samples := make([]float32, len(sampleData)/2)
		for i := range samples {
			value := int16(binary.LittleEndian.Uint16(sampleData[i*2:]))
			samples[i] = float32(value) / 32768
		}
		return samples, nil

	case format == formatPCM && bitsPerSample == 24:
		samples := make([]float32, len(sampleData)/3)
		for i := range samples {
			b := sampleData[i*3 : i*3+3]
			value := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
			// sign extend
			if value&0x800000 != 0 {
				value |= ^0xFFFFFF
			}
			samples[i] = float32(value) / 8388608
		}
		return samples, nil

	case format == formatPCM && bitsPerSample == 32:
		samples := make([]float32, len(sampleData)/4)
		for i := range samples {
			value := int32(binary.LittleEndian.Uint32(sampleData[i*4:]))
			samples[i] = float32(float64(value) / 2147483648)
		}
		return samples, nil

	default:
		return nil, errors.Mark(
			errors.Newf("Unsupported WAV encoding: format %d, %d bits", format, bitsPerSample),
			MalformedFile)
	}
}

func Encode(buffer Buffer) ([]byte, error) {
	if buffer.Channels <= 0 || buffer.SampleRate <= 0 {
		return nil, errors.New("Buffer has a nonpositive channel count or sample rate")
	}

	dataSize := len(buffer.Samples) * 4
	byteRate := buffer.SampleRate * buffer.Channels * 4
	blockAlign := buffer.Channels * 4

	out := &bytes.Buffer{}
	// 4 (WAVE) + fmt header+body + fact header+body + data header
	riffSize := 4 + (8 + 16) + (8 + 4) + 8 + dataSize

	writeLE := func(values ...any) {
		for _, value := range values {
			// bytes.Buffer writes never fail
			_ = binary.Write(out, binary.LittleEndian, value)
		}
	}

	out.WriteString("RIFF")
	writeLE(uint32(riffSize))
	out.WriteString("WAVE")

	out.WriteString("fmt ")
	writeLE(
		uint32(16),
		uint16(formatIEEEFloat),
		uint16(buffer.Channels),
		uint32(buffer.SampleRate),
		uint32(byteRate),
		uint16(blockAlign),
		uint16(32),
	)

	// fact chunk is conventional for non-PCM formats
	out.WriteString("fact")
	writeLE(uint32(4), uint32(buffer.Frames()))

	out.WriteString("data")
	writeLE(uint32(dataSize))
	for _, sample := range buffer.Samples {
		writeLE(math.Float32bits(sample))
	}

	return out.Bytes(), nil
}
