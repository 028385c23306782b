package request

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"github.com/tonefield/stem-splitter-be/src/server/internal/errors/api"
	"github.com/tonefield/stem-splitter-be/src/server/internal/errors/auth"
)

const emailHeaderKey = "X-User-Email"

func Context(c echo.Context) context.Context {
	return c.Request().Context()
}

// UserEmail extracts the requester's email from the request header.
// The email is the identity that gets checked against the CRM.
func UserEmail(c echo.Context) (string, *api.Error) {
	email := strings.ToLower(strings.TrimSpace(c.Request().Header.Get(emailHeaderKey)))
	if email == "" {
		return "", api.CommitError(
			errors.New("No email header present on the request"),
			auth.MissingEmailCode,
			"No email was provided with this request")
	}

	return email, nil
}
