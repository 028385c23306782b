package job_router

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rabbitmq/amqp091-go"
	jobentity "github.com/tonefield/stem-splitter-be/src/shared/job/entity"
	"github.com/tonefield/stem-splitter-be/src/shared/lib/rabbitmq"
	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/jobs/job_message"
	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/jobs/save_results"
	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/jobs/separate"
	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/jobs/start"
	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/metrics"
	"github.com/tonefield/stem-splitter-be/src/shared/lib/cerr"
)

func NewJobRouter(
	jobStore jobentity.Store,
	publisher rabbitmq.Publisher,
	startHandler start.StartJobHandler,
	separateHandler separate.SeparateJobHandler,
	saveResultsHandler save_results.SaveResultsJobHandler,
) JobRouter {
	return JobRouter{
		jobStore:           jobStore,
		publisher:          publisher,
		startHandler:       startHandler,
		separateHandler:    separateHandler,
		saveResultsHandler: saveResultsHandler,
	}
}

// JobRouter dispatches queue messages to their handlers and chains the
// next job in the sequence when a handler succeeds. A handler error is
// recorded on the job row before it propagates to the queue consumer.
type JobRouter struct {
	jobStore           jobentity.Store
	publisher          rabbitmq.Publisher
	startHandler       start.StartJobHandler
	separateHandler    separate.SeparateJobHandler
	saveResultsHandler save_results.SaveResultsJobHandler
}

func (j JobRouter) HandleMessage(message amqp091.Delivery) error {
	timer := time.Now()
	err := j.routeMessage(message)

	metrics.JobDuration.WithLabelValues(message.Type).Observe(time.Since(timer).Seconds())
	if err != nil {
		metrics.JobsFailed.WithLabelValues(message.Type).Inc()
		return j.reportJobFailure(message, err)
	}

	metrics.JobsProcessed.WithLabelValues(message.Type).Inc()
	return nil
}

func (j JobRouter) routeMessage(message amqp091.Delivery) error {
	switch message.Type {
	case start.JobType:
		params, err := j.startHandler.HandleStartJob(message.Body)
		if err != nil {
			return cerr.Wrap(err).Error(start.ErrorMessage)
		}

		nextParams := separate.JobParams{
			JobIdentifier: params.JobIdentifier,
		}
		return j.publishNextJob(separate.JobType, nextParams)

	case separate.JobType:
		params, results, err := j.separateHandler.HandleSeparateJob(message.Body)
		if err != nil {
			return cerr.Wrap(err).Error(separate.ErrorMessage)
		}

		nextParams := save_results.JobParams{
			JobIdentifier: params.JobIdentifier,
			StemNames:     results.StemNames,
			ArchiveKey:    results.ArchiveKey,
		}
		return j.publishNextJob(save_results.JobType, nextParams)

	case save_results.JobType:
		if err := j.saveResultsHandler.HandleSaveResultsJob(message.Body); err != nil {
			return cerr.Wrap(err).Error(save_results.ErrorMessage)
		}
		return nil

	default:
		return cerr.Field("message_type", message.Type).
			Error("Message type matches no known job")
	}
}

func (j JobRouter) publishNextJob(jobType string, params any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return cerr.Field("job_type", jobType).
			Wrap(err).Error("Failed to marshal the next job params")
	}

	nextJob := amqp091.Publishing{
		Type:         jobType,
		Body:         body,
		DeliveryMode: amqp091.Persistent,
		ContentType:  "application/json",
	}

	if err := j.publisher.Publish(nextJob); err != nil {
		return cerr.Field("job_type", jobType).
			Wrap(err).Error("Failed to publish the next job")
	}

	return nil
}

// reportJobFailure records the failure on the job row so that status
// polls see it. The original handler error is returned either way.
func (j JobRouter) reportJobFailure(message amqp091.Delivery, handlerErr error) error {
	identifier := job_message.JobIdentifier{}
	if err := json.Unmarshal(message.Body, &identifier); err != nil || identifier.JobID == "" {
		return handlerErr
	}

	updater := func(job jobentity.Job) (jobentity.Job, error) {
		job.MarkFailed(handlerErr.Error())
		return job, nil
	}

	if err := j.jobStore.UpdateJob(context.Background(), identifier.JobID, updater); err != nil {
		cerr.Log(cerr.Field("job_id", identifier.JobID).
			Wrap(err).Error("Failed to record the job failure"))
	}

	return handlerErr
}
