package apperr

import (
	"errors"
	"fmt"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func TestFromValidation_Nil(t *testing.T) {
	if err := FromValidation(nil); err != nil {
		t.Fatalf("got %v, want nil", err)
	}
}

func TestFromValidation_Fields(t *testing.T) {
	in := struct{ Name, Email string }{}
	err := FromValidation(validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required.Error("Name is required")),
		validation.Field(&in.Email, validation.Required.Error("Email is required")),
	))
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(ve.Fields) != 2 {
		t.Errorf("fields = %v", ve.Fields)
	}
	if ve.Message == "" {
		t.Error("message should not be empty")
	}
}

func TestIsValidation_Wrapped(t *testing.T) {
	err := fmt.Errorf("session: create: %w", Invalid("Select a technician."))
	if !IsValidation(err) {
		t.Error("wrapped validation error not detected")
	}
	if IsValidation(ErrNotFound) {
		t.Error("sentinel should not be a validation error")
	}
}
