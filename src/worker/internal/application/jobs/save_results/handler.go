package save_results

import (
	"context"
	"encoding/json"

	jobentity "github.com/tonefield/stem-splitter-be/src/shared/job/entity"
	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/jobs/job_message"
	"github.com/tonefield/stem-splitter-be/src/shared/lib/cerr"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

const JobType string = "save_results"
const ErrorMessage string = "Failed to record the finished stems"

type JobParams struct {
	job_message.JobIdentifier
	StemNames  []string `json:"stem_names"`
	ArchiveKey string   `json:"archive_key"`
}

//counterfeiter:generate . SaveResultsJobHandler
type SaveResultsJobHandler interface {
	HandleSaveResultsJob(message []byte) error
}

func NewJobHandler(jobStore jobentity.Store) JobHandler {
	return JobHandler{
		jobStore: jobStore,
	}
}

type JobHandler struct {
	jobStore jobentity.Store
}

func (s JobHandler) HandleSaveResultsJob(message []byte) error {
	params, err := unmarshalMessage(message)
	if err != nil {
		return cerr.Wrap(err).Error("Failed to unmarshal message JSON")
	}

	errctx := cerr.Field("job_params", params)

	updater := func(job jobentity.Job) (jobentity.Job, error) {
		job.MarkCompleted(params.StemNames, params.ArchiveKey)
		return job, nil
	}

	err = s.jobStore.UpdateJob(context.Background(), params.JobID, updater)
	if err != nil {
		return errctx.Wrap(err).Error("Failed to update the job")
	}

	return nil
}

func unmarshalMessage(message []byte) (JobParams, error) {
	params := JobParams{}
	err := json.Unmarshal(message, &params)
	if err != nil {
		return JobParams{}, cerr.Wrap(err).Error("Failed to unmarshal message JSON")
	}

	errctx := cerr.Field("job_params", params)

	if params.JobID == "" {
		return JobParams{}, errctx.Error("Missing job ID")
	}

	if len(params.StemNames) == 0 {
		return JobParams{}, errctx.Error("Missing stem names")
	}

	if params.ArchiveKey == "" {
		return JobParams{}, errctx.Error("Missing archive key")
	}

	return params, nil
}
