package save_results_test

import (
	"context"
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	jobentity "github.com/tonefield/stem-splitter-be/src/shared/job/entity"
	"github.com/tonefield/stem-splitter-be/src/shared/testing/dummy"
	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/jobs/job_message"
	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/jobs/save_results"
)

var _ = Describe("Save results handler", func() {
	var (
		jobID      string
		stemNames  []string
		archiveKey string

		dummyJobStore *dummy.JobStore
		handler       save_results.JobHandler

		message []byte
	)

	BeforeEach(func() {
		By("Assigning all the variables data", func() {
			jobID = "job-ID"
			stemNames = []string{
				"Cool Song Vocals.wav",
				"Cool Song Kick.wav",
				"Cool Song Snare.wav",
				"Cool Song Toms.wav",
				"Cool Song Hats.wav",
				"Cool Song Bass.wav",
				"Cool Song EE.wav",
			}
			archiveKey = "https://storage/bucket/job-ID/stems/Cool Song Stems.zip"
		})

		By("Instantiating all mocks", func() {
			dummyJobStore = dummy.NewDummyJobStore()
		})

		By("Setting up the job in the store", func() {
			job := jobentity.NewJob("Cool Song.mp3", "https://storage/original")
			job.ID = jobID
			job.Status = jobentity.ProcessingStatus

			err := dummyJobStore.SetJob(context.Background(), job)
			Expect(err).NotTo(HaveOccurred())
		})

		By("Instantiating the handler", func() {
			handler = save_results.NewJobHandler(dummyJobStore)
		})

		By("Marshalling the message", func() {
			params := save_results.JobParams{
				JobIdentifier: job_message.JobIdentifier{JobID: jobID},
				StemNames:     stemNames,
				ArchiveKey:    archiveKey,
			}

			var err error
			message, err = json.Marshal(params)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("Happy path", func() {
		BeforeEach(func() {
			err := handler.HandleSaveResultsJob(message)
			Expect(err).NotTo(HaveOccurred())
		})

		It("completes the job with the stems and archive", func() {
			job, err := dummyJobStore.GetJob(context.Background(), jobID)
			Expect(err).NotTo(HaveOccurred())

			Expect(job.Status).To(Equal(jobentity.CompletedStatus))
			Expect(job.StemNames).To(Equal(stemNames))
			Expect(job.ArchiveKey).To(Equal(archiveKey))
			Expect(job.Progress).To(Equal(100))
			Expect(job.CompletedAt).NotTo(BeEmpty())
		})
	})

	Describe("Missing fields", func() {
		It("rejects a message without stem names", func() {
			params := save_results.JobParams{
				JobIdentifier: job_message.JobIdentifier{JobID: jobID},
				ArchiveKey:    archiveKey,
			}

			badMessage, err := json.Marshal(params)
			Expect(err).NotTo(HaveOccurred())

			Expect(handler.HandleSaveResultsJob(badMessage)).NotTo(Succeed())
		})

		It("rejects a message without an archive key", func() {
			params := save_results.JobParams{
				JobIdentifier: job_message.JobIdentifier{JobID: jobID},
				StemNames:     stemNames,
			}

			badMessage, err := json.Marshal(params)
			Expect(err).NotTo(HaveOccurred())

			Expect(handler.HandleSaveResultsJob(badMessage)).NotTo(Succeed())
		})
	})

	Describe("Store is down", func() {
		BeforeEach(func() {
			dummyJobStore.Unavailable = true
		})

		It("fails", func() {
			Expect(handler.HandleSaveResultsJob(message)).NotTo(Succeed())
		})
	})
})
