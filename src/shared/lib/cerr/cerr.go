package cerr

import (
	"fmt"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
)

// F is a loose bag of diagnostic fields that get attached
// to errors as they travel up the stack
type F map[string]any

type ErrorContext struct {
	fields     F
	wrappedErr error
}

func Error(msg string) error {
	return ErrorContext{}.Error(msg)
}

func Wrap(err error) ErrorContext {
	return ErrorContext{}.Wrap(err)
}

func Field(key string, value any) ErrorContext {
	return ErrorContext{}.Field(key, value)
}

func Fields(fields F) ErrorContext {
	return ErrorContext{}.Fields(fields)
}

func (e ErrorContext) Field(key string, value any) ErrorContext {
	return e.Fields(F{key: value})
}

func (e ErrorContext) Fields(fields F) ErrorContext {
	newFields := F{}
	for k, v := range e.fields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}

	return ErrorContext{
		fields:     newFields,
		wrappedErr: e.wrappedErr,
	}
}

func (e ErrorContext) Wrap(err error) ErrorContext {
	return ErrorContext{
		fields:     e.fields,
		wrappedErr: err,
	}
}

func (e ErrorContext) Error(msg string) error {
	var err error
	if e.wrappedErr != nil {
		err = errors.Wrap(e.wrappedErr, msg)
	} else {
		err = errors.New(msg)
	}

	for k, v := range e.fields {
		err = errors.WithDetailf(err, "%s: %v", k, v)
	}

	return err
}

func Log(err error) {
	log.WithField("error", fmt.Sprintf("%+v", err)).
		Error("Error occurred")
}
