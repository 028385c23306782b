package gateway

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tonefield/stem-splitter-be/src/server/api_error"
	"github.com/tonefield/stem-splitter-be/src/server/internal/errors/api"
	"github.com/tonefield/stem-splitter-be/src/server/internal/errors/auth"
	joberrors "github.com/tonefield/stem-splitter-be/src/server/internal/job/errors"
)

var httpStatusCodeMap = map[api.ErrorCode]int{
	api.DefaultErrorCode:           http.StatusInternalServerError,
	auth.MissingEmailCode:          http.StatusBadRequest,
	auth.NoContactCode:             http.StatusUnauthorized,
	auth.NotEntitledCode:           http.StatusForbidden,
	auth.AccessCheckFailsCode:      http.StatusServiceUnavailable,
	joberrors.JobNotFoundCode:      http.StatusNotFound,
	joberrors.BadJobDataCode:       http.StatusBadRequest,
	joberrors.UnsupportedMediaCode: http.StatusUnsupportedMediaType,
	joberrors.ResultsNotReadyCode:  http.StatusConflict,
}

func ErrorResponse(c echo.Context, err *api.Error) error {
	statusCode, ok := httpStatusCodeMap[err.ErrorCode]
	if !ok {
		msg := fmt.Sprintf("Error code %s has no HTTP status code mapping", err.ErrorCode)
		panic(msg)
	}

	return c.JSON(statusCode, api_error.JSONAPIError{
		Code:         string(err.ErrorCode),
		Msg:          err.UserMessage,
		ErrorDetails: err.Error(),
	})
}
