package mark

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/markers"
)

func Wrap(handledErr error, markingError error, msg string) error {
	newErr := errors.Mark(handledErr, markingError)
	return errors.Wrap(newErr, msg)
}

func Message(markingError error, msg string) error {
	err := errors.New(msg)
	return errors.Mark(err, markingError)
}

func Is(err error, markingError error) bool {
	return markers.Is(err, markingError)
}
