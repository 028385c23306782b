package auth

import (
	"github.com/tonefield/stem-splitter-be/src/server/internal/errors/api"
)

const (
	MissingEmailCode     = api.ErrorCode("missing_email")
	NoContactCode        = api.ErrorCode("no_contact")
	NotEntitledCode      = api.ErrorCode("missing_access_tag")
	AccessCheckFailsCode = api.ErrorCode("access_check_failed")
)
