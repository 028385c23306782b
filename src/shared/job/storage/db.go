package jobstorage

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/markers"
	"github.com/guregu/dynamo"
	jobentity "github.com/tonefield/stem-splitter-be/src/shared/job/entity"
	dynamolib "github.com/tonefield/stem-splitter-be/src/shared/lib/dynamo"
	"github.com/tonefield/stem-splitter-be/src/shared/lib/errors/mark"
)

const (
	JobsTable = "SplitJobs"
)

var _ jobentity.Store = DB{}

type DB struct {
	dynamoDB dynamolib.DynamoDBWrapper
}

func NewDB(dynamoDB dynamolib.DynamoDBWrapper) DB {
	return DB{
		dynamoDB: dynamoDB,
	}
}

func (d DB) GetJob(ctx context.Context, jobID string) (jobentity.Job, error) {
	value := dbJob{}
	err := d.dynamoDB.Table(JobsTable).
		Get(idKey, jobID).
		OneWithContext(ctx, &value)

	if err != nil {
		switch {
		case markers.Is(err, UnmarshalMark):
			return jobentity.Job{}, errors.Wrap(err, "Failed to fetch job")
		case errors.Is(err, dynamo.ErrNotFound):
			return jobentity.Job{}, mark.Wrap(err, JobNotFound, "Job is not found")
		default:
			return jobentity.Job{}, mark.Wrap(err, DefaultErrorMark, "Failed to fetch job")
		}
	}

	job := jobentity.Job{}
	err = job.FromMap(value)
	if err != nil {
		return jobentity.Job{},
			mark.Wrap(err, UnmarshalMark, "Failed to transform DB map back to entity job")
	}

	return job, nil
}

func (d DB) SetJob(ctx context.Context, job jobentity.Job) error {
	if job.ID == "" {
		return mark.Message(IDEmptyMark, "Job ID is not defined on job")
	}

	dbObject, err := job.ToMap()
	if err != nil {
		return mark.Wrap(err,
			MarshalMark,
			"Failed to transform entity job to a generic map object")
	}

	err = d.dynamoDB.Table(JobsTable).Put(dbObject).RunWithContext(ctx)
	if err != nil {
		return mark.Wrap(err,
			DefaultErrorMark,
			"Failed to put the job in the DB")
	}

	return nil
}

func (d DB) UpdateJob(ctx context.Context, jobID string, updater jobentity.JobUpdater) error {
	if jobID == "" {
		return mark.Message(JobNotFound, "No job ID was provided")
	}

	job, err := d.GetJob(ctx, jobID)
	if err != nil {
		return mark.Wrap(err, JobNotFound, "Can't find the job to update")
	}

	updatedJob, err := updater(job)
	if err != nil {
		return mark.Wrap(err, DefaultErrorMark, "The updater failed to make changes to the job")
	}

	// guard against an updater mangling the identity of the row
	updatedJob.ID = job.ID

	err = d.SetJob(ctx, updatedJob)
	if err != nil {
		return mark.Wrap(err, DefaultErrorMark, "Unable to set the updated job")
	}

	return nil
}
