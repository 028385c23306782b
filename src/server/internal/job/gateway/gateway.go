package jobgateway

import (
	"fmt"
	"io"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"github.com/tonefield/stem-splitter-be/src/server/internal/errors/api"
	"github.com/tonefield/stem-splitter-be/src/server/internal/errors/gateway"
	joberrors "github.com/tonefield/stem-splitter-be/src/server/internal/job/errors"
	jobusecase "github.com/tonefield/stem-splitter-be/src/server/internal/job/usecase"
	"github.com/tonefield/stem-splitter-be/src/server/internal/lib/request"
)

const uploadFieldName = "file"

type Gateway struct {
	usecase jobusecase.Usecase
}

func NewGateway(usecase jobusecase.Usecase) Gateway {
	return Gateway{
		usecase: usecase,
	}
}

func (g Gateway) CreateJob(c echo.Context) error {
	ctx := request.Context(c)

	email, apiErr := request.UserEmail(c)
	if apiErr != nil {
		return gateway.ErrorResponse(c, apiErr)
	}

	fileHeader, err := c.FormFile(uploadFieldName)
	if err != nil {
		err = errors.Wrap(err, "Failed to read the uploaded file from the request")
		apiErr := api.CommitError(err,
			joberrors.BadJobDataCode,
			"No file was attached to the upload. Please attach an audio file")
		return gateway.ErrorResponse(c, apiErr)
	}

	file, err := fileHeader.Open()
	if err != nil {
		err = errors.Wrap(err, "Failed to open the uploaded file")
		apiErr := api.CommitError(err,
			joberrors.BadJobDataCode,
			"The uploaded file could not be read")
		return gateway.ErrorResponse(c, apiErr)
	}
	defer file.Close()

	contents, err := io.ReadAll(file)
	if err != nil {
		err = errors.Wrap(err, "Failed to read the uploaded file contents")
		apiErr := api.CommitError(err,
			joberrors.BadJobDataCode,
			"The uploaded file could not be read")
		return gateway.ErrorResponse(c, apiErr)
	}

	job, apiErr := g.usecase.CreateJob(ctx, email, fileHeader.Filename, contents)
	if apiErr != nil {
		return gateway.ErrorResponse(c, apiErr)
	}

	return c.JSON(http.StatusCreated, job)
}

func (g Gateway) GetJob(c echo.Context, jobID string) error {
	ctx := request.Context(c)

	email, apiErr := request.UserEmail(c)
	if apiErr != nil {
		return gateway.ErrorResponse(c, apiErr)
	}

	job, apiErr := g.usecase.GetJob(ctx, email, jobID)
	if apiErr != nil {
		apiErr = api.WrapError(apiErr, "Failed to get the job")
		return gateway.ErrorResponse(c, apiErr)
	}

	return c.JSON(http.StatusOK, job)
}

func (g Gateway) DownloadResults(c echo.Context, jobID string) error {
	ctx := request.Context(c)

	email, apiErr := request.UserEmail(c)
	if apiErr != nil {
		return gateway.ErrorResponse(c, apiErr)
	}

	archiveName, contents, apiErr := g.usecase.DownloadResults(ctx, email, jobID)
	if apiErr != nil {
		return gateway.ErrorResponse(c, apiErr)
	}

	c.Response().Header().Set(
		echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s"`, archiveName))

	return c.Blob(http.StatusOK, "application/zip", contents)
}
