package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// HasField reports whether `field` failed validation.
func (err ValidationError) HasField(field string) bool {
	for _, f := range err.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// ConflictError reports input that clashes with existing data, eg: a UIDAI number already registered.
type ConflictError struct {
	Err    error
	Fields []FieldError
}

func NewConflictError(err error, flds ...FieldError) error {
	return &ConflictError{err, flds}
}

func (err ConflictError) Error() string {
	if err.Err == nil {
		return "conflict"
	}
	return err.Err.Error()
}

// MergeValidationErrors combines the field errors of several *ValidationError into one.
// Returns nil if none of errs carries field errors.
func MergeValidationErrors(errs ...error) error {
	var flds []FieldError
	for _, err := range errs {
		if err == nil {
			continue
		}
		if vErr, ok := errors.Cause(err).(*ValidationError); ok {
			flds = append(flds, vErr.Fields...)
			continue
		}
		return err
	}
	if len(flds) == 0 {
		return nil
	}
	return NewValidationError(nil, flds...)
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
