package start

import (
	"context"
	"encoding/json"

	jobentity "github.com/tonefield/stem-splitter-be/src/shared/job/entity"
	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/jobs/job_message"
	"github.com/tonefield/stem-splitter-be/src/shared/lib/cerr"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

const JobType string = "start_job"
const ErrorMessage string = "Failed to start processing the split job"

//counterfeiter:generate . StartJobHandler
type StartJobHandler interface {
	HandleStartJob(message []byte) (JobParams, error)
}

type JobParams struct {
	job_message.JobIdentifier
}

func NewJobHandler(jobStore jobentity.Store) JobHandler {
	return JobHandler{
		jobStore: jobStore,
	}
}

type JobHandler struct {
	jobStore jobentity.Store
}

func (d JobHandler) HandleStartJob(message []byte) (JobParams, error) {
	params, err := unmarshalMessage(message)
	if err != nil {
		return JobParams{}, cerr.Wrap(err).Error("Failed to unmarshal message JSON")
	}

	errctx := cerr.Field("job_id", params.JobID)

	updater := func(job jobentity.Job) (jobentity.Job, error) {
		if job.Status != jobentity.PendingStatus {
			return jobentity.Job{}, errctx.Error("Job is not in pending status, abort processing to be safe")
		}

		job.Status = jobentity.ProcessingStatus

		return job, nil
	}

	err = d.jobStore.UpdateJob(context.Background(), params.JobID, updater)
	if err != nil {
		return JobParams{}, errctx.Wrap(err).Error("Failed to set the job status")
	}

	return params, nil
}

func unmarshalMessage(message []byte) (JobParams, error) {
	params := JobParams{}
	err := json.Unmarshal(message, &params)
	if err != nil {
		return JobParams{}, cerr.Wrap(err).Error("Failed to unmarshal message JSON")
	}

	if params.JobID == "" {
		return JobParams{}, cerr.Field("job_params", params).Error("Missing job ID")
	}

	return params, nil
}
