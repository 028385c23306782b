package job_test

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	accessusecase "github.com/tonefield/stem-splitter-be/src/server/internal/access/usecase"
	jobgateway "github.com/tonefield/stem-splitter-be/src/server/internal/job/gateway"
	jobusecase "github.com/tonefield/stem-splitter-be/src/server/internal/job/usecase"
	jobentity "github.com/tonefield/stem-splitter-be/src/shared/job/entity"
	"github.com/tonefield/stem-splitter-be/src/shared/lib/storagepath"
	testlib "github.com/tonefield/stem-splitter-be/src/shared/testing"
	"github.com/tonefield/stem-splitter-be/src/shared/testing/dummy"
)

const (
	accessTag     = "splitter_access"
	grantedEmail  = "listener@example.com"
	untaggedEmail = "lurker@example.com"
)

// wavBytes is a tiny valid RIFF/WAVE payload, enough for mime sniffing.
func wavBytes() []byte {
	data := make([]byte, 16)

	buf := []byte("RIFF")
	buf = binary.LittleEndian.AppendUint32(buf, uint32(36+len(data)))
	buf = append(buf, []byte("WAVEfmt ")...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint16(buf, 1)
	buf = binary.LittleEndian.AppendUint16(buf, 1)
	buf = binary.LittleEndian.AppendUint32(buf, 44100)
	buf = binary.LittleEndian.AppendUint32(buf, 44100*2)
	buf = binary.LittleEndian.AppendUint16(buf, 2)
	buf = binary.LittleEndian.AppendUint16(buf, 16)
	buf = append(buf, []byte("data")...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(data)))
	buf = append(buf, data...)

	return buf
}

var _ = Describe("Job gateway", func() {
	var (
		dummyJobStore  *dummy.JobStore
		dummyFileStore *dummy.FileStore
		dummyPublisher *dummy.Publisher
		dummyValidator *dummy.CRMValidator
		pathGenerator  storagepath.Generator

		gateway jobgateway.Gateway

		response *httptest.ResponseRecorder
	)

	BeforeEach(func() {
		By("Instantiating all dummies", func() {
			dummyJobStore = dummy.NewDummyJobStore()
			dummyFileStore = dummy.NewDummyFileStore()
			dummyPublisher = dummy.NewDummyPublisher()
			dummyValidator = dummy.NewDummyCRMValidator(accessTag)
		})

		By("Registering the CRM contacts", func() {
			dummyValidator.Contacts[grantedEmail] = []string{"customer", accessTag}
			dummyValidator.Contacts[untaggedEmail] = []string{"customer"}
		})

		By("Instantiating the gateway", func() {
			pathGenerator = storagepath.Generator{
				Host:   "https://storage.example.com",
				Bucket: "stems-bucket",
			}

			accessUsecase := accessusecase.NewUsecase(dummyValidator)
			usecase := jobusecase.NewUsecase(
				dummyJobStore,
				dummyFileStore,
				pathGenerator,
				dummyPublisher,
				accessUsecase,
			)
			gateway = jobgateway.NewGateway(usecase)
		})

		response = httptest.NewRecorder()
	})

	Describe("Creating a job", func() {
		var (
			uploadEmail    string
			uploadContents []byte
		)

		BeforeEach(func() {
			uploadEmail = grantedEmail
			uploadContents = wavBytes()
		})

		JustBeforeEach(func() {
			request := testlib.UploadRequestFactory{
				Target:    "/jobs",
				FieldName: "file",
				FileName:  "Cool Song.wav",
				Contents:  uploadContents,
				Mods:      testlib.RequestModifiers{testlib.WithUserEmail(uploadEmail)},
			}.MakeFake()

			c := testlib.PrepareEchoContext(request, response)
			err := gateway.CreateJob(c)
			Expect(err).NotTo(HaveOccurred())
		})

		Describe("For an entitled email", func() {
			It("returns 201", func() {
				Expect(response.Code).To(Equal(http.StatusCreated))
			})

			It("returns the pending job", func() {
				job := testlib.DecodeJSON[jobentity.Job](response.Body)

				Expect(job.ID).NotTo(BeEmpty())
				Expect(job.FileName).To(Equal("Cool Song.wav"))
				Expect(job.Status).To(Equal(jobentity.PendingStatus))
			})

			It("saves the job row", func() {
				job := testlib.DecodeJSON[jobentity.Job](response.Body)

				storedJob, err := dummyJobStore.GetJob(context.Background(), job.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(storedJob.Status).To(Equal(jobentity.PendingStatus))
				Expect(storedJob.OriginalKey).To(Equal(
					pathGenerator.GeneratePath(job.ID, "original/Cool Song.wav")))
			})

			It("uploads the original file", func() {
				job := testlib.DecodeJSON[jobentity.Job](response.Body)

				contents, err := dummyFileStore.GetFile(context.Background(), job.OriginalKey)
				Expect(err).NotTo(HaveOccurred())
				Expect(contents).To(Equal(wavBytes()))
			})

			It("queues the start job", func() {
				job := testlib.DecodeJSON[jobentity.Job](response.Body)

				Expect(dummyPublisher.Messages).To(HaveLen(1))
				Expect(dummyPublisher.Messages[0].Type).To(Equal("start_job"))

				payload := map[string]string{}
				err := json.Unmarshal(dummyPublisher.Messages[0].Body, &payload)
				Expect(err).NotTo(HaveOccurred())
				Expect(payload["job_id"]).To(Equal(job.ID))
			})
		})

		Describe("Without an email header", func() {
			BeforeEach(func() {
				uploadEmail = ""
			})

			It("returns 400", func() {
				Expect(response.Code).To(Equal(http.StatusBadRequest))
				Expect(testlib.DecodeJSONError(response.Body).Code).To(Equal("missing_email"))
			})
		})

		Describe("For an unknown email", func() {
			BeforeEach(func() {
				uploadEmail = "stranger@example.com"
			})

			It("returns 401", func() {
				Expect(response.Code).To(Equal(http.StatusUnauthorized))
				Expect(testlib.DecodeJSONError(response.Body).Code).To(Equal("no_contact"))
			})

			It("doesn't create anything", func() {
				Expect(dummyJobStore.State).To(BeEmpty())
				Expect(dummyFileStore.State).To(BeEmpty())
				Expect(dummyPublisher.Messages).To(BeEmpty())
			})
		})

		Describe("For an email without the access tag", func() {
			BeforeEach(func() {
				uploadEmail = untaggedEmail
			})

			It("returns 403", func() {
				Expect(response.Code).To(Equal(http.StatusForbidden))
				Expect(testlib.DecodeJSONError(response.Body).Code).To(Equal("missing_access_tag"))
			})
		})

		Describe("When the CRM is unreachable", func() {
			BeforeEach(func() {
				dummyValidator.Unavailable = true
			})

			It("returns 503", func() {
				Expect(response.Code).To(Equal(http.StatusServiceUnavailable))
			})
		})

		Describe("For a non audio file", func() {
			BeforeEach(func() {
				uploadContents = []byte("definitely a text file")
			})

			It("returns 415", func() {
				Expect(response.Code).To(Equal(http.StatusUnsupportedMediaType))
				Expect(testlib.DecodeJSONError(response.Body).Code).To(Equal("unsupported_media"))
			})
		})

		Describe("When the file store is down", func() {
			BeforeEach(func() {
				dummyFileStore.Unavailable = true
			})

			It("returns 500", func() {
				Expect(response.Code).To(Equal(http.StatusInternalServerError))
			})

			It("doesn't queue anything", func() {
				Expect(dummyPublisher.Messages).To(BeEmpty())
			})
		})

		Describe("When the queue is down", func() {
			BeforeEach(func() {
				dummyPublisher.Unavailable = true
			})

			It("returns 500", func() {
				Expect(response.Code).To(Equal(http.StatusInternalServerError))
			})

			It("marks the job row failed", func() {
				Expect(dummyJobStore.State).To(HaveLen(1))
				for _, job := range dummyJobStore.State {
					Expect(job.Status).To(Equal(jobentity.FailedStatus))
				}
			})
		})
	})

	Describe("Getting a job", func() {
		var (
			jobID string
		)

		BeforeEach(func() {
			job := jobentity.NewJob("Cool Song.wav", "https://storage.example.com/stems-bucket/abc/original/Cool Song.wav")
			job.CreateID()
			job.Status = jobentity.ProcessingStatus
			job.CurrentStage = "extracting_vocals"
			job.Progress = 20

			err := dummyJobStore.SetJob(context.Background(), job)
			Expect(err).NotTo(HaveOccurred())

			jobID = job.ID
		})

		getJob := func(email string, jobID string) {
			request := testlib.RequestFactory{
				Method: "GET",
				Target: "/jobs/" + jobID,
				Mods:   testlib.RequestModifiers{testlib.WithUserEmail(email)},
			}.MakeFake()

			c := testlib.PrepareEchoContext(request, response)
			err := gateway.GetJob(c, jobID)
			Expect(err).NotTo(HaveOccurred())
		}

		Describe("For an existing job", func() {
			It("returns the job progress", func() {
				getJob(grantedEmail, jobID)

				Expect(response.Code).To(Equal(http.StatusOK))

				job := testlib.DecodeJSON[jobentity.Job](response.Body)
				Expect(job.ID).To(Equal(jobID))
				Expect(job.Status).To(Equal(jobentity.ProcessingStatus))
				Expect(job.CurrentStage).To(Equal("extracting_vocals"))
				Expect(job.Progress).To(Equal(20))
			})
		})

		Describe("For a nonexistent job", func() {
			It("returns 404", func() {
				getJob(grantedEmail, "not-a-real-job")

				Expect(response.Code).To(Equal(http.StatusNotFound))
				Expect(testlib.DecodeJSONError(response.Body).Code).To(Equal("job_not_found"))
			})
		})

		Describe("For an unknown email", func() {
			It("returns 401", func() {
				getJob("stranger@example.com", jobID)

				Expect(response.Code).To(Equal(http.StatusUnauthorized))
			})
		})
	})

	Describe("Downloading results", func() {
		var (
			jobID      string
			archiveKey string
		)

		BeforeEach(func() {
			job := jobentity.NewJob("Cool Song.wav", "https://storage.example.com/stems-bucket/abc/original/Cool Song.wav")
			job.CreateID()
			jobID = job.ID

			archiveKey = pathGenerator.GeneratePath(jobID, "stems/Cool Song Stems.zip")
			job.MarkCompleted([]string{"Vocals", "Kick", "Snare", "Toms", "Hats", "Bass", "EE"}, archiveKey)

			err := dummyJobStore.SetJob(context.Background(), job)
			Expect(err).NotTo(HaveOccurred())

			err = dummyFileStore.WriteFile(context.Background(), archiveKey, []byte("zip contents"))
			Expect(err).NotTo(HaveOccurred())
		})

		download := func(jobID string) {
			request := testlib.RequestFactory{
				Method: "GET",
				Target: "/jobs/" + jobID + "/download",
				Mods:   testlib.RequestModifiers{testlib.WithUserEmail(grantedEmail)},
			}.MakeFake()

			c := testlib.PrepareEchoContext(request, response)
			err := gateway.DownloadResults(c, jobID)
			Expect(err).NotTo(HaveOccurred())
		}

		Describe("For a completed job", func() {
			It("streams the archive", func() {
				download(jobID)

				Expect(response.Code).To(Equal(http.StatusOK))
				Expect(response.Header().Get("Content-Type")).To(Equal("application/zip"))
				Expect(response.Header().Get("Content-Disposition")).To(
					ContainSubstring("Cool Song Stems.zip"))
				Expect(response.Body.Bytes()).To(Equal([]byte("zip contents")))
			})

			It("deletes the archive after the download", func() {
				download(jobID)

				_, err := dummyFileStore.GetFile(context.Background(), archiveKey)
				Expect(err).To(HaveOccurred())
			})
		})

		Describe("For a job that isn't done", func() {
			BeforeEach(func() {
				err := dummyJobStore.UpdateJob(context.Background(), jobID, func(job jobentity.Job) (jobentity.Job, error) {
					job.Status = jobentity.ProcessingStatus
					job.ArchiveKey = ""
					return job, nil
				})
				Expect(err).NotTo(HaveOccurred())
			})

			It("returns 409", func() {
				download(jobID)

				Expect(response.Code).To(Equal(http.StatusConflict))
				Expect(testlib.DecodeJSONError(response.Body).Code).To(Equal("results_not_ready"))
			})
		})
	})
})
