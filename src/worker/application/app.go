package application

import (
	"net/http"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/guregu/dynamo"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rabbitmq/amqp091-go"
	"github.com/tonefield/stem-splitter-be/src/shared/config"
	jobentity "github.com/tonefield/stem-splitter-be/src/shared/job/entity"
	jobstorage "github.com/tonefield/stem-splitter-be/src/shared/job/storage"
	dynamolib "github.com/tonefield/stem-splitter-be/src/shared/lib/dynamo"
	"github.com/tonefield/stem-splitter-be/src/shared/lib/rabbitmq"
	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/audio"
	cloudstorage "github.com/tonefield/stem-splitter-be/src/shared/cloud_storage/entity"
	filestore "github.com/tonefield/stem-splitter-be/src/shared/cloud_storage/store"
	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/executor"
	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/jobs/job_router"
	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/jobs/save_results"
	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/jobs/separate"
	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/jobs/start"
	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/mvsep"
	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/pipeline"
	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/worker"
	"github.com/tonefield/stem-splitter-be/src/shared/lib/cerr"
	"github.com/tonefield/stem-splitter-be/src/shared/lib/storagepath"
	"google.golang.org/api/option"
)

func must[T any](t T, err error) T {
	if err != nil {
		panic(err)
	}

	return t
}

type App struct {
	worker      worker.QueueWorker
	metricsAddr string
}

type Config struct {
	RabbitMQURL        string
	RabbitMQQueueName  string
	DynamoConfig       config.Dynamo
	CloudStorageConfig config.CloudStorage
	MVSepConfig        config.MVSep

	FFmpegBinPath        string
	WorkerWorkingDirPath string

	// MetricsAddr serves prometheus metrics when set, e.g. ":9102".
	MetricsAddr string
}

func NewApp(config Config) App {
	consumerConn := must(amqp091.Dial(config.RabbitMQURL))

	return App{
		worker:      newWorker(config, consumerConn),
		metricsAddr: config.MetricsAddr,
	}
}

func (a *App) Start() error {
	a.serveMetrics()

	err := a.worker.Start()
	if err != nil {
		return cerr.Wrap(err).Error("Failed to start worker")
	}

	return nil
}

func (a *App) Stop() {
	a.worker.Stop()
}

func (a *App) serveMetrics() {
	if a.metricsAddr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(a.metricsAddr, mux); err != nil {
			cerr.Log(cerr.Field("metrics_addr", a.metricsAddr).
				Wrap(err).Error("Metrics endpoint stopped"))
		}
	}()
}

func newWorker(config Config, consumerConn *amqp091.Connection) worker.QueueWorker {
	publisher := newPublisher(config)

	jobStore := jobstorage.NewDB(newDynamoDB(config.DynamoConfig))
	queueWorker := must(worker.NewQueueWorkerFromConnection(
		consumerConn,
		config.RabbitMQQueueName,
		newJobRouter(config, jobStore, publisher)))

	return queueWorker
}

func newPublisher(config Config) *rabbitmq.QueuePublisher {
	return must(rabbitmq.NewQueuePublisher(config.RabbitMQURL, config.RabbitMQQueueName))
}

func newDynamoDB(dynamoConfig config.Dynamo) dynamolib.DynamoDBWrapper {
	dbSession := session.Must(session.NewSession())

	var dbConfig *aws.Config

	switch t := dynamoConfig.(type) {
	case config.ProdDynamo:
		dbConfig = aws.NewConfig().
			WithCredentials(credentials.NewStaticCredentials(
				t.AccessKeyID,
				t.SecretAccessKey,
				"",
			)).
			WithRegion(t.Region)

	case config.LocalDynamo:
		dbConfig = aws.NewConfig().
			WithCredentials(credentials.NewStaticCredentials(
				t.AccessKeyID,
				t.SecretAccessKey,
				"",
			)).
			WithRegion(t.Region).
			WithEndpoint(t.Host)

	default:
		panic("Unexpected dynamo config type")
	}

	return dynamolib.DynamoDBWrapper{
		DB: dynamo.New(dbSession, dbConfig),
	}
}

func newGoogleFileStore(cloudStorageConfig config.CloudStorage) filestore.GoogleFileStore {
	switch t := cloudStorageConfig.(type) {
	case config.ProdCloudStorage:
		return must(filestore.NewGoogleFileStore(
			t.StorageHost,
			option.WithCredentialsJSON([]byte(t.SecretKey)),
		))

	case config.LocalCloudStorage:
		return must(filestore.NewGoogleFileStore(
			t.StorageHost,
			option.WithEndpoint(t.HostEndpoint),
			option.WithAPIKey("fake_api_key"),
		))

	default:
		panic("Unrecognized cloud storage config")
	}
}

func newJobRouter(config Config, jobStore jobentity.Store, publisher rabbitmq.Publisher) job_router.JobRouter {
	pathGenerator := storagepath.Generator{
		Host:   config.CloudStorageConfig.GetStorageHost(),
		Bucket: config.CloudStorageConfig.GetBucket(),
	}

	return job_router.NewJobRouter(
		jobStore,
		publisher,
		newStartJobHandler(jobStore),
		newSeparateJobHandler(config, jobStore, pathGenerator),
		newSaveResultsJobHandler(jobStore))
}

func newStartJobHandler(jobStore jobentity.Store) start.JobHandler {
	return start.NewJobHandler(jobStore)
}

func newSeparateJobHandler(config Config, jobStore jobentity.Store, pathGenerator storagepath.Generator) separate.JobHandler {
	cascade := must(pipeline.NewCascade(
		newMVSepClient(config.MVSepConfig),
		audio.NewNormalizer(config.FFmpegBinPath, executor.BinaryFileExecutor{}),
		config.WorkerWorkingDirPath,
	))

	var fileStore cloudstorage.FileStore = newGoogleFileStore(config.CloudStorageConfig)

	return must(separate.NewJobHandler(
		cascade,
		jobStore,
		fileStore,
		pathGenerator,
		config.WorkerWorkingDirPath,
	))
}

func newMVSepClient(mvsepConfig config.MVSep) mvsep.APIClient {
	return mvsep.NewAPIClient(mvsepConfig.APIHost, mvsepConfig.APIToken, mvsep.PollPolicy{})
}

func newSaveResultsJobHandler(jobStore jobentity.Store) save_results.JobHandler {
	return save_results.NewJobHandler(jobStore)
}
