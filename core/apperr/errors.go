// Package apperr defines the error kinds the back-office core surfaces to callers.
package apperr

import (
	"errors"
	"fmt"
)

// GenericMessage is shown for every failure that is not caller-correctable.
const GenericMessage = "operation failed"

// ValidationError is caller-correctable: bad quantity, mismatched variant,
// stock that would go negative. The transaction that raised it was aborted.
type ValidationError struct {
	Reason   string
	notFound bool
}

func (e *ValidationError) Error() string { return e.Reason }

// ConsistencyError means a row vanished or changed between validation and
// locking. Retrying the operation is safe.
type ConsistencyError struct {
	Reason string
}

func (e *ConsistencyError) Error() string { return "consistency: " + e.Reason }

// ConfigurationError means the catalog lacks a field the core needs, such as a price.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string { return "configuration: " + e.Reason }

func Validation(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// NotFound is a ValidationError reported as 404 by the HTTP layer.
func NotFound(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...), notFound: true}
}

func Consistency(format string, args ...interface{}) error {
	return &ConsistencyError{Reason: fmt.Sprintf(format, args...)}
}

func Configuration(format string, args ...interface{}) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsNotFound(err error) bool {
	var v *ValidationError
	return errors.As(err, &v) && v.notFound
}

func IsConsistency(err error) bool {
	var c *ConsistencyError
	return errors.As(err, &c)
}

func IsConfiguration(err error) bool {
	var c *ConfigurationError
	return errors.As(err, &c)
}

// PublicMessage returns the display-ready reason for validation failures and
// GenericMessage for everything else.
func PublicMessage(err error) string {
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Reason
	}
	return GenericMessage
}
