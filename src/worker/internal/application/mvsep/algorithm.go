package mvsep

// Algorithm is a separation model ID on the MVSep service.
type Algorithm int

const (
	// BS Roformer, vocals + instrumental
	AlgorithmVocals Algorithm = 40
	// MelBand + SCNet XL, drums + other
	AlgorithmDrums Algorithm = 44
	// BS + HTDemucs + SCNet, bass + other
	AlgorithmBass Algorithm = 41
	// DrumSep MelBand Roformer, kick + snare + toms + cymbals
	AlgorithmDrumParts Algorithm = 37
)

// SeparationRequest describes one job submission. The option fields
// select model variants and are passed through verbatim when set.
type SeparationRequest struct {
	Algorithm Algorithm
	Opt1      string
	Opt2      string
	Opt3      string
}

func VocalsRequest() SeparationRequest {
	return SeparationRequest{
		Algorithm: AlgorithmVocals,
		// ver 2024.08 vocal model
		Opt1: "29",
	}
}

func DrumsRequest() SeparationRequest {
	return SeparationRequest{
		Algorithm: AlgorithmDrums,
		Opt1:      "4",
		// extract directly from the mixture
		Opt2: "0",
	}
}

func BassRequest() SeparationRequest {
	return SeparationRequest{
		Algorithm: AlgorithmBass,
		Opt1:      "3",
		Opt2:      "0",
	}
}

func DrumPartsRequest() SeparationRequest {
	return SeparationRequest{
		Algorithm: AlgorithmDrumParts,
		Opt1:      "6",
		// input is treated as drums only
		Opt2: "1",
	}
}
