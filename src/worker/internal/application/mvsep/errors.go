package mvsep

import "github.com/cockroachdb/errors"

var (
	// SubmitRejected means the service refused the job submission.
	SubmitRejected = errors.New("submit_rejected")
	// JobFailed means the service reported the separation job as failed.
	JobFailed = errors.New("job_failed")
	// PollTimeout means the job did not reach a terminal status within
	// the polling budget.
	PollTimeout = errors.New("poll_timeout")
	// UnexpectedResponse means the service replied in a shape or with a
	// status that the protocol doesn't define.
	UnexpectedResponse = errors.New("unexpected_response")
	// DownloadFailed means an output file of a finished job could not
	// be fetched.
	DownloadFailed = errors.New("download_failed")
)
