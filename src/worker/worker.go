package main

import (
	"path"

	"github.com/tonefield/stem-splitter-be/src/shared/config"
	"github.com/tonefield/stem-splitter-be/src/shared/config/dev"
	"github.com/tonefield/stem-splitter-be/src/shared/config/envvar"
	"github.com/tonefield/stem-splitter-be/src/shared/config/local"
	"github.com/tonefield/stem-splitter-be/src/shared/config/prod"
	"github.com/tonefield/stem-splitter-be/src/shared/lib/env"
	"github.com/tonefield/stem-splitter-be/src/worker/application"
)

func main() {
	var appConfig application.Config

	switch env.Get() {
	case env.Production:
		appConfig = application.Config{
			DynamoConfig: config.ProdDynamo{
				AccessKeyID:     envvar.MustGet(envvar.AWS_ACCESS_KEY_ID),
				SecretAccessKey: envvar.MustGet(envvar.AWS_SECRET_ACCESS_KEY),
				Region:          prod.DynamoDBRegion,
			},
			CloudStorageConfig: config.ProdCloudStorage{
				StorageHost: prod.GOOGLE_STORAGE_HOST,
				SecretKey:   envvar.MustGet(envvar.GOOGLE_CLOUD_KEY),
				BucketName:  envvar.MustGet(envvar.GOOGLE_CLOUD_STORAGE_BUCKET_NAME),
			},
			MVSepConfig: config.MVSep{
				APIToken: envvar.MustGet(envvar.MVSEP_API_TOKEN),
				APIHost:  prod.MVSEP_API_HOST,
			},
			RabbitMQURL:          envvar.MustGet(envvar.RABBITMQ_URL),
			RabbitMQQueueName:    envvar.MustGet(envvar.RABBITMQ_QUEUE_NAME),
			FFmpegBinPath:        envvar.MustGet(envvar.FFMPEG_BIN_PATH),
			WorkerWorkingDirPath: envvar.MustGet(envvar.WORKER_WORKING_DIR_PATH),
			MetricsAddr:          prod.WorkerMetricsAddr,
		}

	case env.Development:
		appConfig = application.Config{
			DynamoConfig: dev.DynamoConfig,
			// using prod for now because the local fake GCS doesn't persist
			CloudStorageConfig: config.ProdCloudStorage{
				StorageHost: prod.GOOGLE_STORAGE_HOST,
				SecretKey:   envvar.MustGet(envvar.GOOGLE_CLOUD_KEY),
				BucketName:  envvar.MustGet(envvar.GOOGLE_CLOUD_STORAGE_BUCKET_NAME),
			},
			MVSepConfig: config.MVSep{
				APIToken: envvar.MustGet(envvar.MVSEP_API_TOKEN),
				APIHost:  prod.MVSEP_API_HOST,
			},
			RabbitMQURL:          dev.RabbitMQHost,
			RabbitMQQueueName:    dev.RabbitMQQueueName,
			FFmpegBinPath:        config.FFmpegPath(),
			WorkerWorkingDirPath: path.Join(local.ProjectRoot(), "/src/worker/wd"),
		}
	default:
		panic("Unexpected environment")
	}

	app := application.NewApp(appConfig)
	if err := app.Start(); err != nil {
		panic(err)
	}
}
