package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"github.com/apex/log"
	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/audio"
	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/audio/wavio"
	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/mvsep"
	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/mvsep/resolve"
	"github.com/tonefield/stem-splitter-be/src/shared/lib/cerr"
	"github.com/tonefield/stem-splitter-be/src/worker/internal/lib/working_dir"
)

type StemFilePaths = map[string]string

// NewCascade builds the separation cascade. workingDirStr is where
// per-run scratch space is created and torn down.
func NewCascade(client mvsep.Client, normalizer audio.Normalizer, workingDirStr string) (Cascade, error) {
	workingDir, err := working_dir.NewWorkingDir(workingDirStr)
	if err != nil {
		return Cascade{}, cerr.Field("working_dir_str", workingDirStr).
			Wrap(err).Error("Failed to create working dir")
	}

	return Cascade{
		client:     client,
		normalizer: normalizer,
		workingDir: workingDir,
	}, nil
}

// Cascade turns one input track into seven stems by chaining remote
// separations and deriving the rest through phase cancellation:
//
//	source           -> vocals + instrumental
//	instrumental     -> drums + the rest
//	the rest         -> bass
//	drums            -> kick + snare + toms
//	drums - kit      -> hats
//	source - stems   -> everything else
type Cascade struct {
	client     mvsep.Client
	normalizer audio.Normalizer
	workingDir working_dir.WorkingDir
}

func (c Cascade) Run(ctx context.Context, inputPath string, baseName string, outputDir string, observe StageObserver) (StemFilePaths, error) {
	notify := func(stage Stage) {
		log.WithField("stage", stage).Info("Entering cascade stage")
		if observe != nil {
			observe(stage)
		}
	}

	tempDir, err := os.MkdirTemp(c.workingDir.TempDir(), "cascade-*")
	if err != nil {
		return nil, cerr.Field("temp_dir", c.workingDir.TempDir()).
			Wrap(err).Error("Failed to create scratch dir for the cascade run")
	}
	defer os.RemoveAll(tempDir)

	notify(StagePreprocessing)
	sourcePath := filepath.Join(tempDir, "source.wav")
	if err := c.normalizer.Normalize(inputPath, sourcePath); err != nil {
		return nil, cerr.Field("input_path", inputPath).
			Wrap(err).Error("Failed to preprocess the input track")
	}

	notify(StageExtractingVocals)
	vocalsOutputs, err := c.runSeparation(ctx, sourcePath, mvsep.VocalsRequest(),
		[]resolve.RoleSpec{
			{Role: resolve.RoleVocals},
			{Role: resolve.RoleInstrumental},
		},
		filepath.Join(tempDir, "vocals_stage"))
	if err != nil {
		return nil, cerr.Wrap(err).Error("Failed to extract vocals")
	}

	vocalsPath := vocalsOutputs[resolve.RoleVocals]
	instrumentalPath := vocalsOutputs[resolve.RoleInstrumental]

	notify(StageExtractingDrums)
	drumsOutputs, err := c.runSeparation(ctx, instrumentalPath, mvsep.DrumsRequest(),
		[]resolve.RoleSpec{
			{Role: resolve.RoleDrums},
			{Role: resolve.RoleInstrumental},
		},
		filepath.Join(tempDir, "drums_stage"))
	if err != nil {
		return nil, cerr.Wrap(err).Error("Failed to extract drums")
	}

	drumsPath := drumsOutputs[resolve.RoleDrums]
	noDrumsPath := drumsOutputs[resolve.RoleInstrumental]

	notify(StageExtractingBass)
	bassOutputs, err := c.runSeparation(ctx, noDrumsPath, mvsep.BassRequest(),
		[]resolve.RoleSpec{
			{Role: resolve.RoleBass},
			{Role: resolve.RoleInstrumental, Optional: true},
		},
		filepath.Join(tempDir, "bass_stage"))
	if err != nil {
		return nil, cerr.Wrap(err).Error("Failed to extract bass")
	}

	bassPath := bassOutputs[resolve.RoleBass]

	notify(StageSplittingDrumKit)
	kitOutputs, err := c.runSeparation(ctx, drumsPath, mvsep.DrumPartsRequest(),
		[]resolve.RoleSpec{
			{Role: resolve.RoleKick},
			{Role: resolve.RoleSnare},
			{Role: resolve.RoleToms},
		},
		filepath.Join(tempDir, "kit_stage"))
	if err != nil {
		return nil, cerr.Wrap(err).Error("Failed to split the drum kit")
	}

	notify(StageReconstructing)
	hatsPath := filepath.Join(tempDir, "hats.wav")
	err = c.reconstructToFile(hatsPath, drumsPath,
		kitOutputs[resolve.RoleKick],
		kitOutputs[resolve.RoleSnare],
		kitOutputs[resolve.RoleToms])
	if err != nil {
		return nil, cerr.Wrap(err).Error("Failed to reconstruct the hats stem")
	}

	eePath := filepath.Join(tempDir, "ee.wav")
	err = c.reconstructToFile(eePath, sourcePath, vocalsPath, drumsPath, bassPath)
	if err != nil {
		return nil, cerr.Wrap(err).Error("Failed to reconstruct the everything-else stem")
	}

	notify(StageAssemblingOutputs)
	stems := StemFilePaths{
		"Vocals": vocalsPath,
		"Kick":   kitOutputs[resolve.RoleKick],
		"Snare":  kitOutputs[resolve.RoleSnare],
		"Toms":   kitOutputs[resolve.RoleToms],
		"Hats":   hatsPath,
		"Bass":   bassPath,
		"EE":     eePath,
	}

	return assembleOutputs(stems, baseName, outputDir)
}

// runSeparation drives one remote job end to end: submit, poll,
// identify the outputs and download them into destDir by role.
func (c Cascade) runSeparation(
	ctx context.Context,
	inputPath string,
	request mvsep.SeparationRequest,
	specs []resolve.RoleSpec,
	destDir string,
) (map[resolve.Role]string, error) {
	errctx := cerr.Fields(cerr.F{
		"input_path": inputPath,
		"algorithm":  int(request.Algorithm),
	})

	contents, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, errctx.Wrap(err).Error("Failed to read the stage input file")
	}

	separationHash, err := c.client.Submit(ctx, request, filepath.Base(inputPath), contents)
	if err != nil {
		return nil, errctx.Wrap(err).Error("Failed to submit the separation job")
	}

	result, err := c.client.AwaitCompletion(ctx, separationHash)
	if err != nil {
		return nil, errctx.Field("separation_hash", separationHash).
			Wrap(err).Error("The separation job did not complete")
	}

	resolved, err := resolve.Resolve(result.Files, specs)
	if err != nil {
		return nil, errctx.Wrap(err).Error("Failed to identify the separation outputs")
	}

	if err := os.MkdirAll(destDir, os.ModePerm); err != nil {
		return nil, errctx.Field("dest_dir", destDir).
			Wrap(err).Error("Failed to create the stage output dir")
	}

	outputs := map[resolve.Role]string{}
	for role, file := range resolved {
		fileContents, err := c.client.Fetch(ctx, file.URL)
		if err != nil {
			return nil, errctx.Field("file_url", file.URL).
				Wrap(err).Error("Failed to download a separation output")
		}

		outputPath := filepath.Join(destDir, string(role)+".wav")
		if err := os.WriteFile(outputPath, fileContents, 0644); err != nil {
			return nil, errctx.Field("output_path", outputPath).
				Wrap(err).Error("Failed to save a separation output")
		}

		outputs[role] = outputPath
	}

	return outputs, nil
}

func (c Cascade) reconstructToFile(outputPath string, targetPath string, componentPaths ...string) error {
	target, err := wavio.ReadFile(targetPath)
	if err != nil {
		return cerr.Field("target_path", targetPath).
			Wrap(err).Error("Failed to load the reconstruction target")
	}

	components := make([]wavio.Buffer, 0, len(componentPaths))
	for _, componentPath := range componentPaths {
		component, err := wavio.ReadFile(componentPath)
		if err != nil {
			return cerr.Field("component_path", componentPath).
				Wrap(err).Error("Failed to load a reconstruction component")
		}

		components = append(components, component)
	}

	residual, err := audio.Reconstruct(target, components...)
	if err != nil {
		return cerr.Wrap(err).Error("Failed to derive the residual stem")
	}

	if err := wavio.WriteFile(outputPath, residual); err != nil {
		return cerr.Field("output_path", outputPath).
			Wrap(err).Error("Failed to write the residual stem")
	}

	return nil
}
