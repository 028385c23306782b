package jobstorage

import "github.com/cockroachdb/errors"

var (
	DefaultErrorMark = errors.New("default_error")
	JobNotFound      = errors.New("job_not_found")
	IDEmptyMark      = errors.New("id_empty")
	MarshalMark      = errors.New("marshal_error")
	UnmarshalMark    = errors.New("unmarshal_error")
)
