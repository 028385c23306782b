package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tonefield/stem-splitter-be/src/shared/lib/errors/mark"
	"github.com/tonefield/stem-splitter-be/src/shared/lib/cerr"
)

// StemLabels is every stem the cascade produces, in presentation order.
var StemLabels = []string{"Vocals", "Kick", "Snare", "Toms", "Hats", "Bass", "EE"}

// OutputFileName is the final name of one stem file.
func OutputFileName(baseName string, label string) string {
	return fmt.Sprintf("%s %s.wav", baseName, label)
}

// assembleOutputs copies the finished stems into outputDir under their
// final names.
func assembleOutputs(stems StemFilePaths, baseName string, outputDir string) (StemFilePaths, error) {
	if err := os.MkdirAll(outputDir, os.ModePerm); err != nil {
		return nil, cerr.Field("output_dir", outputDir).
			Wrap(mark.Wrap(err, AssemblyFailed, "Could not create the output dir")).
			Error("Failed to assemble the output stems")
	}

	assembled := StemFilePaths{}
	for _, label := range StemLabels {
		stemPath, ok := stems[label]
		if !ok {
			return nil, cerr.Field("stem_label", label).
				Wrap(mark.Message(AssemblyFailed, "A stem is missing from the cascade results")).
				Error("Failed to assemble the output stems")
		}

		contents, err := os.ReadFile(stemPath)
		if err != nil {
			return nil, cerr.Field("stem_path", stemPath).
				Wrap(mark.Wrap(err, AssemblyFailed, "Could not read a finished stem")).
				Error("Failed to assemble the output stems")
		}

		outputPath := filepath.Join(outputDir, OutputFileName(baseName, label))
		if err := os.WriteFile(outputPath, contents, 0644); err != nil {
			return nil, cerr.Field("output_path", outputPath).
				Wrap(mark.Wrap(err, AssemblyFailed, "Could not write an output stem")).
				Error("Failed to assemble the output stems")
		}

		assembled[label] = outputPath
	}

	return assembled, nil
}
