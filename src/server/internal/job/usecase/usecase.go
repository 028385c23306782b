package jobusecase

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/markers"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rabbitmq/amqp091-go"
	accessusecase "github.com/tonefield/stem-splitter-be/src/server/internal/access/usecase"
	"github.com/tonefield/stem-splitter-be/src/server/internal/errors/api"
	joberrors "github.com/tonefield/stem-splitter-be/src/server/internal/job/errors"
	cloudstorage "github.com/tonefield/stem-splitter-be/src/shared/cloud_storage/entity"
	jobentity "github.com/tonefield/stem-splitter-be/src/shared/job/entity"
	jobstorage "github.com/tonefield/stem-splitter-be/src/shared/job/storage"
	"github.com/tonefield/stem-splitter-be/src/shared/lib/rabbitmq"
	"github.com/tonefield/stem-splitter-be/src/shared/lib/storagepath"
)

type Usecase struct {
	db            jobentity.Store
	fileStore     cloudstorage.FileStore
	pathGenerator storagepath.Generator
	publisher     rabbitmq.Publisher
	accessUsecase accessusecase.Usecase
}

func NewUsecase(
	db jobentity.Store,
	fileStore cloudstorage.FileStore,
	pathGenerator storagepath.Generator,
	publisher rabbitmq.Publisher,
	accessUsecase accessusecase.Usecase,
) Usecase {
	return Usecase{
		db:            db,
		fileStore:     fileStore,
		pathGenerator: pathGenerator,
		publisher:     publisher,
		accessUsecase: accessUsecase,
	}
}

// CreateJob uploads the original file, writes the pending job row, and
// queues the first job of the split sequence.
func (u Usecase) CreateJob(ctx context.Context, email string, fileName string, contents []byte) (jobentity.Job, *api.Error) {
	if apiErr := u.accessUsecase.VerifyAccess(ctx, email); apiErr != nil {
		return jobentity.Job{}, api.WrapError(apiErr, "Cannot verify access for the upload")
	}

	if fileName == "" {
		return jobentity.Job{}, api.CommitError(
			errors.New("No file name was provided with the upload"),
			joberrors.BadJobDataCode,
			"The upload is missing a file name")
	}

	if len(contents) == 0 {
		return jobentity.Job{}, api.CommitError(
			errors.New("The uploaded file is empty"),
			joberrors.BadJobDataCode,
			"The uploaded file is empty")
	}

	if mime := mimetype.Detect(contents); !isAudioMime(mime.String()) {
		return jobentity.Job{}, api.CommitError(
			errors.Newf("Unsupported upload mime type: %s", mime.String()),
			joberrors.UnsupportedMediaCode,
			"This file doesn't look like an audio file. Please upload an audio file")
	}

	job := jobentity.NewJob(fileName, "")
	job.CreateID()
	job.OriginalKey = u.pathGenerator.GeneratePath(job.ID, "original/"+fileName)

	if err := u.fileStore.WriteFile(ctx, job.OriginalKey, contents); err != nil {
		err = errors.Wrap(err, "Failed to upload the original file")
		return jobentity.Job{}, api.CommitError(err,
			api.DefaultErrorCode,
			"Unknown error: Failed to store the uploaded file")
	}

	if err := u.db.SetJob(ctx, job); err != nil {
		err = errors.Wrap(err, "Failed to save the job row")
		return jobentity.Job{}, api.CommitError(err,
			api.DefaultErrorCode,
			"Unknown error: Failed to create the split job")
	}

	if err := u.publishStartJob(job.ID); err != nil {
		err = errors.Wrap(err, "Failed to queue the split job")
		u.markJobFailed(job.ID, "The job could not be queued")
		return jobentity.Job{}, api.CommitError(err,
			api.DefaultErrorCode,
			"Unknown error: Failed to queue the split job")
	}

	return job, nil
}

func (u Usecase) GetJob(ctx context.Context, email string, jobID string) (jobentity.Job, *api.Error) {
	if apiErr := u.accessUsecase.VerifyAccess(ctx, email); apiErr != nil {
		return jobentity.Job{}, api.WrapError(apiErr, "Cannot verify access for the job lookup")
	}

	job, err := u.db.GetJob(ctx, jobID)
	if err != nil {
		err = errors.Wrap(err, "Failed to get job from DB")
		switch {
		case markers.Is(err, jobstorage.JobNotFound):
			return jobentity.Job{}, api.CommitError(err,
				joberrors.JobNotFoundCode,
				"This job doesn't exist")

		case markers.Is(err, jobstorage.UnmarshalMark):
			fallthrough
		case markers.Is(err, jobstorage.DefaultErrorMark):
			fallthrough
		default:
			return jobentity.Job{}, api.CommitError(err,
				api.DefaultErrorCode,
				"Unknown error: Failed to fetch the job")
		}
	}

	return job, nil
}

// DownloadResults fetches the finished stem archive. The archive object
// is deleted after a successful fetch, a download is one shot.
func (u Usecase) DownloadResults(ctx context.Context, email string, jobID string) (string, []byte, *api.Error) {
	job, apiErr := u.GetJob(ctx, email, jobID)
	if apiErr != nil {
		return "", nil, api.WrapError(apiErr, "Cannot fetch the job for download")
	}

	if job.Status != jobentity.CompletedStatus || job.ArchiveKey == "" {
		return "", nil, api.CommitError(
			errors.Newf("Job is not completed, status: %s", job.Status),
			joberrors.ResultsNotReadyCode,
			"The stems for this job aren't ready yet")
	}

	contents, err := u.fileStore.GetFile(ctx, job.ArchiveKey)
	if err != nil {
		err = errors.Wrap(err, "Failed to fetch the stem archive")
		return "", nil, api.CommitError(err,
			api.DefaultErrorCode,
			"Unknown error: Failed to fetch the stem archive")
	}

	// past this point the download succeeds, cleanup is best effort
	if err := u.fileStore.DeleteFile(ctx, job.ArchiveKey); err != nil {
		log.WithField("job_id", job.ID).
			WithField("archive_key", job.ArchiveKey).
			WithError(err).
			Warn("Failed to delete the stem archive after download")
	}

	return lastPathSegment(job.ArchiveKey), contents, nil
}

type jobIdentifier struct {
	JobID string `json:"job_id"`
}

func (u Usecase) publishStartJob(jobID string) error {
	jsonBytes, err := json.Marshal(jobIdentifier{
		JobID: jobID,
	})

	if err != nil {
		return errors.Wrap(err, "Failed to marshal job ID for queue msg")
	}

	publishMsg := amqp091.Publishing{
		Type: "start_job",
		Body: jsonBytes,
	}

	err = u.publisher.Publish(publishMsg)
	if err != nil {
		return errors.Wrap(err, "Failed to publish message to rabbitmq")
	}

	return nil
}

func (u Usecase) markJobFailed(jobID string, message string) {
	updater := func(job jobentity.Job) (jobentity.Job, error) {
		job.MarkFailed(message)
		return job, nil
	}

	if err := u.db.UpdateJob(context.Background(), jobID, updater); err != nil {
		log.WithField("job_id", jobID).
			WithError(err).
			Error("Failed to mark the job as failed")
	}
}

func isAudioMime(mimeString string) bool {
	return strings.HasPrefix(mimeString, "audio/")
}

func lastPathSegment(path string) string {
	segments := strings.Split(path, "/")
	return segments[len(segments)-1]
}
