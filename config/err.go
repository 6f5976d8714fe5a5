package config

import (
	"errors"

	"github.com/ezrec/alpha/translate"
)

var f = translate.From

var (
	ErrConfigInvalid = errors.New(f("configuration invalid"))
	ErrFormatUnknown = errors.New(f("configuration format unknown"))
	ErrFieldUnknown  = errors.New(f("unknown field"))
	ErrNotPositive   = errors.New(f("must be positive"))
	ErrNegative      = errors.New(f("must not be negative"))
	ErrIndexRange    = errors.New(f("index out of range"))
	ErrWrongType     = errors.New(f("wrong type"))
)

// ErrField is a configuration field that failed validation.
type ErrField struct {
	Field string
	Err   error
}

func (err *ErrField) Error() string {
	return f("%v: %v", err.Field, err.Err)
}

func (err *ErrField) Unwrap() error {
	return err.Err
}

func (err *ErrField) Is(target error) bool {
	return target == ErrConfigInvalid
}
