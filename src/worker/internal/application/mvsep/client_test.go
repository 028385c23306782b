package mvsep_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/tonefield/stem-splitter-be/src/shared/lib/errors/mark"
	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/mvsep"
)

var _ = Describe("MVSep API client", func() {
	var (
		createJSON   string
		createStatus int
		statuses     []string
		pollCount    int
		submissions  []*http.Request

		server *httptest.Server
		client mvsep.APIClient
	)

	statusJSON := func(status string) string {
		if status == "done" {
			return `{
				"success": true,
				"status": "done",
				"data": {
					"files": [
						{"url": "https://storage.mvsep.com/results/1", "filename": "song_vocals.wav"},
						{"url": "https://storage.mvsep.com/results/2", "filename": "song_instrum.wav"}
					]
				}
			}`
		}

		if status == "failed" {
			return `{"success": true, "status": "failed", "data": {"message": "CUDA out of memory"}}`
		}

		return fmt.Sprintf(`{"success": true, "status": "%s", "data": {}}`, status)
	}

	BeforeEach(func() {
		By("Assigning all the variables data", func() {
			createStatus = http.StatusOK
			createJSON = `{"success": true, "data": {"hash": "abc123hash"}}`
			statuses = nil
			pollCount = 0
			submissions = nil
		})

		By("Starting the fake separation service", func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/api/separation/create":
					Expect(r.ParseMultipartForm(1 << 20)).To(Succeed())
					submissions = append(submissions, r)
					w.WriteHeader(createStatus)
					_, err := w.Write([]byte(createJSON))
					Expect(err).NotTo(HaveOccurred())

				case "/api/separation/get":
					Expect(statuses).NotTo(BeEmpty())
					next := statuses[0]
					if len(statuses) > 1 {
						statuses = statuses[1:]
					}
					pollCount++
					_, err := w.Write([]byte(statusJSON(next)))
					Expect(err).NotTo(HaveOccurred())

				case "/results/stem":
					_, err := w.Write([]byte("stem audio bytes"))
					Expect(err).NotTo(HaveOccurred())

				case "/results/broken":
					w.WriteHeader(http.StatusInternalServerError)

				default:
					Fail("Unexpected request path: " + r.URL.Path)
				}
			}))
		})

		By("Instantiating the client", func() {
			client = mvsep.NewAPIClient(server.URL, "test-api-token", mvsep.PollPolicy{
				Interval:    time.Millisecond,
				MaxAttempts: 3,
			})
		})
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("Submitting a job", func() {
		It("returns the separation hash", func() {
			hash, err := client.Submit(context.Background(), mvsep.VocalsRequest(), "song.wav", []byte("wav bytes"))
			Expect(err).NotTo(HaveOccurred())
			Expect(hash).To(Equal("abc123hash"))
		})

		It("carries the algorithm and token fields", func() {
			_, err := client.Submit(context.Background(), mvsep.VocalsRequest(), "song.wav", []byte("wav bytes"))
			Expect(err).NotTo(HaveOccurred())

			Expect(submissions).To(HaveLen(1))
			form := submissions[0]
			Expect(form.FormValue("api_token")).To(Equal("test-api-token"))
			Expect(form.FormValue("sep_type")).To(Equal("40"))
			Expect(form.FormValue("add_opt1")).To(Equal("29"))
			Expect(form.FormValue("is_demo")).To(Equal("0"))
		})

		Describe("When the service turns the job away", func() {
			BeforeEach(func() {
				createStatus = http.StatusTooManyRequests
			})

			It("fails with a submit rejection", func() {
				_, err := client.Submit(context.Background(), mvsep.VocalsRequest(), "song.wav", []byte("wav bytes"))
				Expect(err).To(HaveOccurred())
				Expect(mark.Is(err, mvsep.SubmitRejected)).To(BeTrue())
			})
		})
	})

	Describe("Waiting on a job", func() {
		Describe("That finishes after a few polls", func() {
			BeforeEach(func() {
				statuses = []string{"queued", "processing", "done"}
			})

			It("returns the output files as soon as done is observed", func() {
				result, err := client.AwaitCompletion(context.Background(), "abc123hash")
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Files).To(HaveLen(2))
				Expect(result.Files[0].Filename).To(Equal("song_vocals.wav"))
				Expect(pollCount).To(Equal(3))
			})
		})

		Describe("That fails on the server", func() {
			BeforeEach(func() {
				statuses = []string{"processing", "failed"}
			})

			It("fails with a job failure", func() {
				_, err := client.AwaitCompletion(context.Background(), "abc123hash")
				Expect(err).To(HaveOccurred())
				Expect(mark.Is(err, mvsep.JobFailed)).To(BeTrue())
				Expect(err.Error()).To(ContainSubstring("CUDA out of memory"))
			})
		})

		Describe("That reports a status outside the protocol", func() {
			BeforeEach(func() {
				statuses = []string{"exploded"}
			})

			It("fails with an unexpected response", func() {
				_, err := client.AwaitCompletion(context.Background(), "abc123hash")
				Expect(err).To(HaveOccurred())
				Expect(mark.Is(err, mvsep.UnexpectedResponse)).To(BeTrue())
			})
		})

		Describe("That never reaches a terminal status", func() {
			BeforeEach(func() {
				statuses = []string{"processing"}
			})

			It("gives up after the polling budget", func() {
				_, err := client.AwaitCompletion(context.Background(), "abc123hash")
				Expect(err).To(HaveOccurred())
				Expect(mark.Is(err, mvsep.PollTimeout)).To(BeTrue())
				Expect(pollCount).To(Equal(3))
			})
		})
	})

	Describe("Fetching an output file", func() {
		It("returns the file contents", func() {
			contents, err := client.Fetch(context.Background(), server.URL+"/results/stem")
			Expect(err).NotTo(HaveOccurred())
			Expect(contents).To(Equal([]byte("stem audio bytes")))
		})

		Describe("When the file host errors", func() {
			It("fails with a download failure", func() {
				_, err := client.Fetch(context.Background(), server.URL+"/results/broken")
				Expect(err).To(HaveOccurred())
				Expect(mark.Is(err, mvsep.DownloadFailed)).To(BeTrue())
			})
		})

		Describe("When the file host is unreachable", func() {
			It("fails with a download failure", func() {
				_, err := client.Fetch(context.Background(), "http://127.0.0.1:1/results/stem")
				Expect(err).To(HaveOccurred())
				Expect(mark.Is(err, mvsep.DownloadFailed)).To(BeTrue())
			})
		})
	})
})
