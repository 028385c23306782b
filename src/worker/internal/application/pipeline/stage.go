package pipeline

// Stage names one step of the separation cascade, in running order.
type Stage string

const (
	StagePreprocessing     Stage = "preprocessing"
	StageExtractingVocals  Stage = "extracting_vocals"
	StageExtractingDrums   Stage = "extracting_drums"
	StageExtractingBass    Stage = "extracting_bass"
	StageSplittingDrumKit  Stage = "splitting_drum_kit"
	StageReconstructing    Stage = "reconstructing_residuals"
	StageAssemblingOutputs Stage = "assembling_outputs"
)

// stageProgress maps each stage to a rough completion percentage for
// status reporting. The remote separations dominate the runtime.
var stageProgress = map[Stage]int{
	StagePreprocessing:     5,
	StageExtractingVocals:  20,
	StageExtractingDrums:   40,
	StageExtractingBass:    60,
	StageSplittingDrumKit:  80,
	StageReconstructing:    90,
	StageAssemblingOutputs: 95,
}

// Progress is the nominal completion percentage at the start of a stage.
func (s Stage) Progress() int {
	return stageProgress[s]
}

// StageObserver is notified as the cascade enters each stage. A nil
// observer is allowed.
type StageObserver func(stage Stage)
