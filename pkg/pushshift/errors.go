package pushshift

import (
	"errors"
	"fmt"
)

// Builder failures. Every error returned by a Builder wraps one of these.
var (
	ErrDuplicateParameter = errors.New("parameter already set")
	ErrInvalidCollection  = errors.New("invalid collection name")
	ErrPageSizeTooLarge   = errors.New("page size too large")
	ErrNoParameters       = errors.New("no parameters set")
)

// BuildError carries the parameter and value that caused a builder failure.
type BuildError struct {
	Err   error
	Param string
	Value string
}

func (e *BuildError) Error() string {
	if e.Param == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s %s=%q", e.Err, e.Param, e.Value)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}
