package mvsep

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/apex/log"
	"github.com/tonefield/stem-splitter-be/src/shared/lib/errors/mark"
	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/metrics"
	"github.com/tonefield/stem-splitter-be/src/shared/lib/cerr"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

const (
	createPath = "/api/separation/create"
	statusPath = "/api/separation/get"

	defaultPollInterval = 5 * time.Second
	defaultMaxAttempts  = 120
)

// OutputFile is one result of a finished separation job. The service
// does not promise any of the descriptive fields, only the URL.
type OutputFile struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Type     string `json:"type"`
}

type Result struct {
	Files []OutputFile
}

//counterfeiter:generate . Client
type Client interface {
	Submit(ctx context.Context, request SeparationRequest, fileName string, fileContents []byte) (string, error)
	AwaitCompletion(ctx context.Context, separationHash string) (Result, error)
	Fetch(ctx context.Context, fileURL string) ([]byte, error)
}

// PollPolicy controls how AwaitCompletion waits on a job. The zero
// value means the service defaults of 5s between 120 attempts.
type PollPolicy struct {
	Interval    time.Duration
	MaxAttempts int
}

func (p PollPolicy) interval() time.Duration {
	if p.Interval <= 0 {
		return defaultPollInterval
	}

	return p.Interval
}

func (p PollPolicy) maxAttempts() int {
	if p.MaxAttempts <= 0 {
		return defaultMaxAttempts
	}

	return p.MaxAttempts
}

var _ Client = APIClient{}

func NewAPIClient(apiHost string, apiToken string, pollPolicy PollPolicy) APIClient {
	return APIClient{
		apiHost:    apiHost,
		apiToken:   apiToken,
		pollPolicy: pollPolicy,
		httpClient: http.DefaultClient,
	}
}

type APIClient struct {
	apiHost    string
	apiToken   string
	pollPolicy PollPolicy
	httpClient *http.Client
}

type createResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Hash    string `json:"hash"`
		Message string `json:"message"`
	} `json:"data"`
}

type statusResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Data    struct {
		Message string       `json:"message"`
		Files   []OutputFile `json:"files"`
	} `json:"data"`
}

func (a APIClient) Submit(ctx context.Context, request SeparationRequest, fileName string, fileContents []byte) (string, error) {
	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)

	fields := map[string]string{
		"api_token":     a.apiToken,
		"sep_type":      strconv.Itoa(int(request.Algorithm)),
		"output_format": "1",
		// keeps the uploaded file out of the public demo listing
		"is_demo": "0",
	}

	if request.Opt1 != "" {
		fields["add_opt1"] = request.Opt1
	}
	if request.Opt2 != "" {
		fields["add_opt2"] = request.Opt2
	}
	if request.Opt3 != "" {
		fields["add_opt3"] = request.Opt3
	}

	for key, value := range fields {
		if err := form.WriteField(key, value); err != nil {
			return "", cerr.Field("form_field", key).
				Wrap(err).Error("Failed to write form field")
		}
	}

	filePart, err := form.CreateFormFile("audiofile", fileName)
	if err != nil {
		return "", cerr.Wrap(err).Error("Failed to create the audio file form part")
	}

	if _, err := filePart.Write(fileContents); err != nil {
		return "", cerr.Wrap(err).Error("Failed to write the audio file contents")
	}

	if err := form.Close(); err != nil {
		return "", cerr.Wrap(err).Error("Failed to finalize the multipart form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiHost+createPath, body)
	if err != nil {
		return "", cerr.Wrap(err).Error("Failed to create the submit request")
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	log.WithFields(log.Fields{
		"sep_type":  fields["sep_type"],
		"file_name": fileName,
	}).Info("Submitting separation job")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", cerr.Wrap(err).Error("Failed to reach the separation service")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", cerr.Field("status_code", resp.StatusCode).
			Wrap(mark.Message(SubmitRejected, "Submission returned a non-OK status")).
			Error("The separation service rejected the submission")
	}

	decoded := createResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", mark.Wrap(err, UnexpectedResponse, "Failed to decode the submit response")
	}

	if !decoded.Success {
		return "", cerr.Field("server_message", decoded.Data.Message).
			Wrap(mark.Message(SubmitRejected, "The service reported an unsuccessful submission")).
			Error("The separation service rejected the submission")
	}

	if decoded.Data.Hash == "" {
		return "", mark.Message(UnexpectedResponse, "No separation hash was returned for the submitted job")
	}

	log.WithField("separation_hash", decoded.Data.Hash).Info("Separation job accepted")

	return decoded.Data.Hash, nil
}

func (a APIClient) AwaitCompletion(ctx context.Context, separationHash string) (Result, error) {
	logger := log.WithField("separation_hash", separationHash)

	for attempt := 0; attempt < a.pollPolicy.maxAttempts(); attempt++ {
		metrics.PollAttempts.Inc()

		status, err := a.checkStatus(ctx, separationHash)
		if err != nil {
			return Result{}, cerr.Field("separation_hash", separationHash).
				Wrap(err).Error("Failed to check the job status")
		}

		logger.WithField("status", status.Status).Info("Polled separation job")

		switch status.Status {
		case "done":
			return Result{Files: status.Data.Files}, nil

		case "failed":
			return Result{}, cerr.Field("server_message", status.Data.Message).
				Wrap(mark.Message(JobFailed, fmt.Sprintf("The separation job failed: %s", status.Data.Message))).
				Error("The separation job failed on the server")

		case "queued", "waiting", "processing", "running", "merging", "distributing":
			if err := a.waitInterval(ctx); err != nil {
				return Result{}, err
			}

		default:
			return Result{}, cerr.Field("status", status.Status).
				Wrap(mark.Message(UnexpectedResponse, "The service reported a status outside the protocol")).
				Error("Unknown separation job status")
		}
	}

	return Result{}, cerr.Field("separation_hash", separationHash).
		Wrap(mark.Message(PollTimeout, "The separation job did not complete in time")).
		Error("Gave up waiting for the separation job")
}

func (a APIClient) Fetch(ctx context.Context, fileURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, cerr.Field("file_url", fileURL).
			Wrap(err).Error("Failed to create the download request")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, cerr.Field("file_url", fileURL).
			Wrap(mark.Wrap(err, DownloadFailed, "Could not reach the output file host")).
			Error("Failed to download the output file")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, cerr.Fields(cerr.F{
			"file_url":    fileURL,
			"status_code": resp.StatusCode,
		}).Wrap(mark.Message(DownloadFailed, "The output file download returned a non-OK status")).
			Error("Failed to download the output file")
	}

	contents, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, cerr.Field("file_url", fileURL).
			Wrap(mark.Wrap(err, DownloadFailed, "Could not read the output file contents")).
			Error("Failed to download the output file")
	}

	return contents, nil
}

func (a APIClient) checkStatus(ctx context.Context, separationHash string) (statusResponse, error) {
	statusURL := a.apiHost + statusPath + "?hash=" + url.QueryEscape(separationHash)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return statusResponse{}, cerr.Wrap(err).Error("Failed to create the status request")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return statusResponse{}, cerr.Wrap(err).Error("Failed to reach the separation service")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusResponse{}, cerr.Field("status_code", resp.StatusCode).
			Wrap(mark.Message(UnexpectedResponse, "Status check returned a non-OK status")).
			Error("The separation service failed the status check")
	}

	decoded := statusResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return statusResponse{}, mark.Wrap(err, UnexpectedResponse, "Failed to decode the status response")
	}

	if !decoded.Success {
		return statusResponse{}, cerr.Field("server_message", decoded.Data.Message).
			Wrap(mark.Message(UnexpectedResponse, "The service reported an unsuccessful status check")).
			Error("The separation service failed the status check")
	}

	return decoded, nil
}

func (a APIClient) waitInterval(ctx context.Context) error {
	timer := time.NewTimer(a.pollPolicy.interval())
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return cerr.Wrap(ctx.Err()).Error("Cancelled while waiting on the separation job")
	case <-timer.C:
		return nil
	}
}
