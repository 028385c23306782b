package application

import (
	"net/http"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/cockroachdb/errors"
	"github.com/guregu/dynamo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/tonefield/stem-splitter-be/src/server/crm"
	accessusecase "github.com/tonefield/stem-splitter-be/src/server/internal/access/usecase"
	jobgateway "github.com/tonefield/stem-splitter-be/src/server/internal/job/gateway"
	jobusecase "github.com/tonefield/stem-splitter-be/src/server/internal/job/usecase"
	"github.com/tonefield/stem-splitter-be/src/shared/config"
	cloudstorage "github.com/tonefield/stem-splitter-be/src/shared/cloud_storage/entity"
	filestore "github.com/tonefield/stem-splitter-be/src/shared/cloud_storage/store"
	jobstorage "github.com/tonefield/stem-splitter-be/src/shared/job/storage"
	dynamolib "github.com/tonefield/stem-splitter-be/src/shared/lib/dynamo"
	"github.com/tonefield/stem-splitter-be/src/shared/lib/rabbitmq"
	"github.com/tonefield/stem-splitter-be/src/shared/lib/storagepath"
	"google.golang.org/api/option"
)

type HTTPMethod string

const (
	GET    HTTPMethod = "GET"
	POST   HTTPMethod = "POST"
	PUT    HTTPMethod = "PUT"
	DELETE HTTPMethod = "DELETE"
)

type App struct {
	echo *echo.Echo
	port string
}

type Config struct {
	DynamoConfig       config.Dynamo
	CloudStorageConfig config.CloudStorage
	RabbitMQURL        string
	RabbitMQQueueName  string
	CORSAllowedOrigins []string
	AccessValidator    crm.Validator
	Port               string
	Log                bool
}

func NewApp(config Config) App {
	e := echo.New()

	if config.Log {
		e.Use(middleware.Logger())
	}

	corsMiddleware := makeCorsMiddleware(config)

	handleRoute := func(method HTTPMethod, path string, handlerFunc echo.HandlerFunc) {
		params := func() (string, echo.HandlerFunc, echo.MiddlewareFunc) {
			return path, handlerFunc, corsMiddleware
		}

		e.OPTIONS(params())

		switch method {
		case GET:
			e.GET(params())
		case POST:
			e.POST(params())
		case PUT:
			e.PUT(params())
		case DELETE:
			e.DELETE(params())
		default:
			panic("unhandled http method!")
		}
	}

	dynamoDB := makeDynamoDB(config.DynamoConfig)
	rabbitmqPublisher := makeRabbitMQPublisher(config)
	accessUsecase := accessusecase.NewUsecase(config.AccessValidator)

	jobGateway := makeJobGateway(config, dynamoDB, rabbitmqPublisher, accessUsecase)

	// health check
	handleRoute(GET, "/health-check", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	// job routes
	handleRoute(POST, "/jobs", jobGateway.CreateJob)
	handleRoute(GET, "/jobs/:id", func(c echo.Context) error {
		jobID := c.Param("id")
		return jobGateway.GetJob(c, jobID)
	})
	handleRoute(GET, "/jobs/:id/download", func(c echo.Context) error {
		jobID := c.Param("id")
		return jobGateway.DownloadResults(c, jobID)
	})

	return App{
		echo: e,
		port: config.Port,
	}
}

func (a *App) Start() error {
	err := a.echo.Start(a.port)
	if err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "Couldn't start echo server")
	}

	return nil
}

func (a *App) Stop() error {
	err := a.echo.Close()
	if err != nil {
		return errors.Wrap(err, "Failed to stop echo server")
	}

	return nil
}

func makeRabbitMQPublisher(config Config) rabbitmq.Publisher {
	publisher, err := rabbitmq.NewQueuePublisher(config.RabbitMQURL, config.RabbitMQQueueName)
	if err != nil {
		panic(errors.Wrap(err, "Failed to create rabbitMQ publisher"))
	}

	return publisher
}

func makeDynamoDB(dynamoConfig config.Dynamo) dynamolib.DynamoDBWrapper {
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

	db := dynamo.New(dbSession, dbConfig)
	return dynamolib.NewDynamoDBWrapper(db)
}

func makeFileStore(cloudStorageConfig config.CloudStorage) cloudstorage.FileStore {
	switch t := cloudStorageConfig.(type) {
	case config.ProdCloudStorage:
		store, err := filestore.NewGoogleFileStore(
			t.StorageHost,
			option.WithCredentialsJSON([]byte(t.SecretKey)),
		)
		if err != nil {
			panic(errors.Wrap(err, "Failed to create google file store"))
		}
		return store

	case config.LocalCloudStorage:
		store, err := filestore.NewGoogleFileStore(
			t.StorageHost,
			option.WithEndpoint(t.HostEndpoint),
			option.WithAPIKey("fake_api_key"),
		)
		if err != nil {
			panic(errors.Wrap(err, "Failed to create google file store"))
		}
		return store

	default:
		panic("Unrecognized cloud storage config")
	}
}

func makeJobGateway(
	config Config,
	dynamoDB dynamolib.DynamoDBWrapper,
	publisher rabbitmq.Publisher,
	accessUsecase accessusecase.Usecase,
) jobgateway.Gateway {
	pathGenerator := storagepath.Generator{
		Host:   config.CloudStorageConfig.GetStorageHost(),
		Bucket: config.CloudStorageConfig.GetBucket(),
	}

	jobDB := jobstorage.NewDB(dynamoDB)
	jobUsecase := jobusecase.NewUsecase(
		jobDB,
		makeFileStore(config.CloudStorageConfig),
		pathGenerator,
		publisher,
		accessUsecase,
	)

	return jobgateway.NewGateway(jobUsecase)
}

func makeCorsMiddleware(config Config) echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: config.CORSAllowedOrigins,
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization, "X-User-Email"},
	})
}
