package joberrors

import (
	"github.com/tonefield/stem-splitter-be/src/server/internal/errors/api"
)

const (
	JobNotFoundCode      = api.ErrorCode("job_not_found")
	BadJobDataCode       = api.ErrorCode("bad_job_data")
	UnsupportedMediaCode = api.ErrorCode("unsupported_media")
	ResultsNotReadyCode  = api.ErrorCode("results_not_ready")
)
