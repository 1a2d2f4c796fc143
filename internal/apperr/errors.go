package apperr

import (
	"errors"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidKind        = errors.New("unknown account kind")
)

// ValidationError is a form-level failure. Message is shown inline; Fields
// carries per-field detail when the failure came from struct validation.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string { return e.Message }

// Invalid builds a ValidationError with a single message.
func Invalid(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

// FromValidation converts an ozzo-validation result into a ValidationError.
// A nil err yields nil. The message is the first field error in key order.
func FromValidation(err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return &ValidationError{Message: err.Error()}
	}
	keys := make([]string, 0, len(errs))
	fields := make(map[string]string, len(errs))
	for k, fe := range errs {
		if fe == nil {
			continue
		}
		keys = append(keys, k)
		fields[k] = fe.Error()
	}
	sort.Strings(keys)
	msg := "invalid input"
	if len(keys) > 0 {
		msg = fields[keys[0]]
		if !strings.HasSuffix(msg, ".") {
			msg += "."
		}
	}
	return &ValidationError{Message: msg, Fields: fields}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
