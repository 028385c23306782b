package pipeline_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/cockroachdb/errors/markers"
	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/audio"
	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/audio/wavio"
	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/integration_test/dummy"
	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/mvsep"
	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/pipeline"
)

func monoBuffer(samples ...float32) wavio.Buffer {
	return wavio.Buffer{
		SampleRate: 44100,
		Channels:   1,
		Samples:    samples,
	}
}

func mixBuffers(buffers ...wavio.Buffer) wavio.Buffer {
	mixed := monoBuffer(make([]float32, len(buffers[0].Samples))...)
	for _, buffer := range buffers {
		for i, sample := range buffer.Samples {
			mixed.Samples[i] += sample
		}
	}
	return mixed
}

func wavBytes(buffer wavio.Buffer) []byte {
	contents, err := wavio.Encode(buffer)
	Expect(err).NotTo(HaveOccurred())
	return contents
}

var _ = Describe("Cascade", func() {
	var (
		vocals wavio.Buffer
		kick   wavio.Buffer
		snare  wavio.Buffer
		toms   wavio.Buffer
		hats   wavio.Buffer
		bass   wavio.Buffer
		rest   wavio.Buffer

		drums wavio.Buffer
		mix   wavio.Buffer

		mvsepClient *dummy.MVSep

		workDir   string
		inputPath string
		outputDir string

		cascade pipeline.Cascade

		stagesSeen []pipeline.Stage
		observer   pipeline.StageObserver

		stems pipeline.StemFilePaths
		err   error
	)

	BeforeEach(func() {
		By("Composing the source track from known stems", func() {
			vocals = monoBuffer(0.5, 0, 0, 0, 0.5, 0, 0, 0)
			kick = monoBuffer(0.25, 0, 0.25, 0, 0, 0, 0, 0)
			snare = monoBuffer(0, 0.25, 0, 0.25, 0, 0, 0, 0)
			toms = monoBuffer(0, 0, 0, 0, 0.25, 0, 0.25, 0)
			hats = monoBuffer(0.125, 0.125, 0.125, 0.125, 0, 0, 0, 0)
			bass = monoBuffer(0, 0, 0, 0, 0.5, 0.5, 0, 0)
			rest = monoBuffer(0, 0.0625, 0, 0.0625, 0, 0.0625, 0, 0.0625)

			drums = mixBuffers(kick, snare, toms, hats)
			mix = mixBuffers(vocals, drums, bass, rest)
		})

		By("Setting up the dummy separation service", func() {
			instrumental := mixBuffers(drums, bass, rest)
			noDrums := mixBuffers(bass, rest)

			mvsepClient = dummy.NewDummyMVSep()
			mvsepClient.AddResponse(mvsep.AlgorithmVocals,
				dummy.NamedFile{Name: "vocals.wav", Contents: wavBytes(vocals)},
				dummy.NamedFile{Name: "instrum.wav", Contents: wavBytes(instrumental)},
			)
			mvsepClient.AddResponse(mvsep.AlgorithmDrums,
				dummy.NamedFile{Name: "drums.wav", Contents: wavBytes(drums)},
				dummy.NamedFile{Name: "other.wav", Contents: wavBytes(noDrums)},
			)
			mvsepClient.AddResponse(mvsep.AlgorithmBass,
				dummy.NamedFile{Name: "bass.wav", Contents: wavBytes(bass)},
				dummy.NamedFile{Name: "other.wav", Contents: wavBytes(rest)},
			)
			mvsepClient.AddResponse(mvsep.AlgorithmDrumParts,
				dummy.NamedFile{Name: "kick.wav", Contents: wavBytes(kick)},
				dummy.NamedFile{Name: "snare.wav", Contents: wavBytes(snare)},
				dummy.NamedFile{Name: "toms.wav", Contents: wavBytes(toms)},
				dummy.NamedFile{Name: "cymbals.wav", Contents: wavBytes(hats)},
			)
		})

		By("Writing the input track to disk", func() {
			workDir = GinkgoT().TempDir()
			inputPath = filepath.Join(workDir, "Cool Song.wav")
			outputDir = filepath.Join(workDir, "output")

			writeErr := os.WriteFile(inputPath, wavBytes(mix), 0644)
			Expect(writeErr).NotTo(HaveOccurred())
		})

		By("Instantiating the cascade", func() {
			normalizer := audio.NewNormalizer("/whatever/ffmpeg", dummy.NewDummyFFmpegExecutor())

			var cascadeErr error
			cascade, cascadeErr = pipeline.NewCascade(mvsepClient, normalizer, workDir)
			Expect(cascadeErr).NotTo(HaveOccurred())
		})

		By("Setting up the stage observer", func() {
			stagesSeen = nil
			observer = func(stage pipeline.Stage) {
				stagesSeen = append(stagesSeen, stage)
			}
		})
	})

	JustBeforeEach(func() {
		stems, err = cascade.Run(context.Background(), inputPath, "Cool Song", outputDir, observer)
	})

	Describe("Happy path", func() {
		It("succeeds", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("produces all seven stems under their final names", func() {
			Expect(stems).To(HaveLen(7))
			for _, label := range pipeline.StemLabels {
				stemPath, ok := stems[label]
				Expect(ok).To(BeTrue())
				Expect(filepath.Base(stemPath)).To(Equal("Cool Song " + label + ".wav"))
				Expect(stemPath).To(BeAnExistingFile())
			}
		})

		It("passes the separated stems through untouched", func() {
			decoded, readErr := wavio.ReadFile(stems["Vocals"])
			Expect(readErr).NotTo(HaveOccurred())
			Expect(decoded.Samples).To(Equal(vocals.Samples))

			decoded, readErr = wavio.ReadFile(stems["Bass"])
			Expect(readErr).NotTo(HaveOccurred())
			Expect(decoded.Samples).To(Equal(bass.Samples))
		})

		It("recovers the hats by cancelling the kit against the drum bus", func() {
			decoded, readErr := wavio.ReadFile(stems["Hats"])
			Expect(readErr).NotTo(HaveOccurred())
			Expect(decoded.Samples).To(Equal(hats.Samples))
		})

		It("recovers everything-else by cancelling the stems against the source", func() {
			decoded, readErr := wavio.ReadFile(stems["EE"])
			Expect(readErr).NotTo(HaveOccurred())
			Expect(decoded.Samples).To(Equal(rest.Samples))
		})

		It("feeds each stage with the previous stage's output", func() {
			vocalsInputs := mvsepClient.SubmittedInputs[mvsep.AlgorithmVocals]
			Expect(vocalsInputs).To(HaveLen(1))

			decoded, decodeErr := wavio.Decode(vocalsInputs[0])
			Expect(decodeErr).NotTo(HaveOccurred())
			Expect(decoded.Samples).To(Equal(mix.Samples))

			drumsInputs := mvsepClient.SubmittedInputs[mvsep.AlgorithmDrums]
			Expect(drumsInputs).To(HaveLen(1))

			decoded, decodeErr = wavio.Decode(drumsInputs[0])
			Expect(decodeErr).NotTo(HaveOccurred())
			Expect(decoded.Samples).To(Equal(mixBuffers(drums, bass, rest).Samples))

			kitInputs := mvsepClient.SubmittedInputs[mvsep.AlgorithmDrumParts]
			Expect(kitInputs).To(HaveLen(1))

			decoded, decodeErr = wavio.Decode(kitInputs[0])
			Expect(decodeErr).NotTo(HaveOccurred())
			Expect(decoded.Samples).To(Equal(drums.Samples))
		})

		It("reports every stage in order", func() {
			Expect(stagesSeen).To(Equal([]pipeline.Stage{
				pipeline.StagePreprocessing,
				pipeline.StageExtractingVocals,
				pipeline.StageExtractingDrums,
				pipeline.StageExtractingBass,
				pipeline.StageSplittingDrumKit,
				pipeline.StageReconstructing,
				pipeline.StageAssemblingOutputs,
			}))
		})
	})

	Describe("A separation job fails remotely", func() {
		BeforeEach(func() {
			mvsepClient.FailAlgorithm = mvsep.AlgorithmBass
		})

		It("aborts the run with the job failure", func() {
			Expect(err).To(HaveOccurred())
			Expect(markers.Is(err, mvsep.JobFailed)).To(BeTrue())
			Expect(stems).To(BeNil())
		})

		It("never reaches reconstruction", func() {
			Expect(stagesSeen).NotTo(ContainElement(pipeline.StageReconstructing))
		})
	})

	Describe("The service is unreachable", func() {
		BeforeEach(func() {
			mvsepClient.Unavailable = true
		})

		It("aborts the run", func() {
			Expect(err).To(HaveOccurred())
			Expect(stems).To(BeNil())
		})
	})
})
