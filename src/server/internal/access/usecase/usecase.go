package accessusecase

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/markers"
	"github.com/tonefield/stem-splitter-be/src/server/crm"
	"github.com/tonefield/stem-splitter-be/src/server/internal/errors/api"
	"github.com/tonefield/stem-splitter-be/src/server/internal/errors/auth"
)

type Usecase struct {
	validator crm.Validator
}

func NewUsecase(validator crm.Validator) Usecase {
	return Usecase{
		validator: validator,
	}
}

// VerifyAccess checks the requester's email against the CRM. Every job
// route runs through here before touching any job data.
func (u Usecase) VerifyAccess(ctx context.Context, email string) *api.Error {
	_, err := u.validator.ValidateEmail(ctx, email)
	if err != nil {
		err = errors.Wrap(err, "Failed to validate email access")
		switch {
		case markers.Is(err, crm.NoContactMark):
			return api.CommitError(err,
				auth.NoContactCode,
				"This email isn't registered. Please sign up or use the email you signed up with")

		case markers.Is(err, crm.NotEntitledMark):
			return api.CommitError(err,
				auth.NotEntitledCode,
				"This email doesn't have access to the stem splitter")

		case markers.Is(err, crm.LookupFailedMark):
			return api.CommitError(err,
				auth.AccessCheckFailsCode,
				"Couldn't verify access right now. Please try again shortly")

		default:
			return api.CommitError(err,
				api.DefaultErrorCode,
				"Unknown error: Failed to verify access")
		}
	}

	return nil
}
