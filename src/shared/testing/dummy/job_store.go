package dummy

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	jobentity "github.com/tonefield/stem-splitter-be/src/shared/job/entity"
	jobstorage "github.com/tonefield/stem-splitter-be/src/shared/job/storage"
	"github.com/tonefield/stem-splitter-be/src/shared/lib/errors/mark"
)

var _ jobentity.Store = &JobStore{}

func NewDummyJobStore() *JobStore {
	return &JobStore{
		Unavailable: false,
		State:       make(map[string]jobentity.Job),
	}
}

type JobStore struct {
	Unavailable bool
	State       map[string]jobentity.Job
	mutex       sync.RWMutex
}

func (j *JobStore) GetJob(ctx context.Context, jobID string) (jobentity.Job, error) {
	if j.Unavailable {
		return jobentity.Job{}, NetworkFailure
	}

	j.mutex.RLock()
	defer j.mutex.RUnlock()

	job, ok := j.State[jobID]
	if !ok {
		return jobentity.Job{}, mark.Wrap(NotFound, jobstorage.JobNotFound, "No job exists for this ID")
	}

	return job, nil
}

func (j *JobStore) SetJob(ctx context.Context, job jobentity.Job) error {
	if j.Unavailable {
		return NetworkFailure
	}

	j.mutex.Lock()
	defer j.mutex.Unlock()

	j.State[job.ID] = job
	return nil
}

func (j *JobStore) UpdateJob(ctx context.Context, jobID string, updater jobentity.JobUpdater) error {
	if j.Unavailable {
		return NetworkFailure
	}

	job, err := j.GetJob(ctx, jobID)
	if err != nil {
		return errors.Wrap(err, "Failed to get job from the store")
	}

	updatedJob, err := updater(job)
	if err != nil {
		return errors.Wrap(err, "Job update function failed")
	}

	updatedJob.ID = job.ID

	return j.SetJob(ctx, updatedJob)
}
