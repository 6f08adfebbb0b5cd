package factor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xraph/factor/pricing"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("factor: not found")
	ErrAlreadyExists = errors.New("factor: already exists")
	ErrInvalidInput  = errors.New("factor: invalid input")

	// Invoice errors
	ErrInvoiceNotFound     = errors.New("factor: invoice not found")
	ErrInvalidTransition   = errors.New("factor: invalid status transition")
	ErrInvalidDeadline     = pricing.ErrInvalidDeadline
	ErrInsufficientBalance = errors.New("factor: insufficient balance")
	ErrDistributionFailed  = errors.New("factor: yield distribution failed")

	// Staking errors
	ErrStakeBookNotFound   = errors.New("factor: stake book not found")
	ErrUnsupportedDuration = errors.New("factor: unsupported stake duration")
	ErrInsufficientStake   = errors.New("factor: insufficient stake")
	ErrConcurrentUpdate    = errors.New("factor: concurrent update")

	// Store errors
	ErrStoreNotReady   = errors.New("factor: store not ready")
	ErrStoreClosed     = errors.New("factor: store is closed")
	ErrMigrationFailed = errors.New("factor: migration failed")
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string
	Message string
	// Err optionally names the sentinel behind the rejection.
	Err error
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationError lists every field an operation rejected. It matches
// ErrInvalidInput and the sentinel of each field, if any.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "factor: validation failed"
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Error()
	}
	return fmt.Sprintf("factor: validation failed: %s", strings.Join(parts, "; "))
}

// Unwrap exposes ErrInvalidInput and the field sentinels to errors.Is.
func (e *ValidationError) Unwrap() []error {
	errs := []error{ErrInvalidInput}
	for _, f := range e.Fields {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errs
}

// Add records a rejected field.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// AddErr records a rejected field caused by err.
func (e *ValidationError) AddErr(field string, err error) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: err.Error(), Err: err})
}

// Has reports whether field was rejected.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// OrNil returns e if any field was rejected, nil otherwise.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvoiceNotFound) ||
		errors.Is(err, ErrStakeBookNotFound)
}

// IsValidation returns true if the caller supplied bad input.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) || errors.Is(err, ErrInvalidInput)
}

// IsRetryable returns true if the error is temporary and the operation can
// be retried as is.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentUpdate) ||
		errors.Is(err, ErrStoreNotReady)
}
