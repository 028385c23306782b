package jobentity

import (
	"context"
)

type JobUpdater func(job Job) (Job, error)

type Store interface {
	GetJob(ctx context.Context, jobID string) (Job, error)
	SetJob(ctx context.Context, job Job) error
	UpdateJob(ctx context.Context, jobID string, updater JobUpdater) error
}
