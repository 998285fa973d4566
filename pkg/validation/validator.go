// Package validation bounds-checks wire-ingested payloads before they
// reach the membership core. Structs carry `validate` tags; Struct applies
// them and renders the first failure as a readable error.
package validation

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// Validation constants
	MaxMembersPerPayload = 4096
	MaxEndpointIDLength  = 128
	MaxMetadataEntries   = 64
	MaxMetadataValue     = 512
	MaxSyncGroupLength   = 64
)

func init() {
	validate = validator.New()
}

// Struct validates any tagged struct
func Struct(v any) error {
	if v == nil {
		return errors.New("value cannot be nil")
	}
	if err := validate.Struct(v); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// Var validates a single value against a tag expression
func Var(value any, tag string) error {
	if err := validate.Var(value, tag); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateMetadata bounds-checks an opaque metadata map
func ValidateMetadata(metadata map[string]string) error {
	if len(metadata) > MaxMetadataEntries {
		return fmt.Errorf("Metadata: maximum %d entries allowed, got %d", MaxMetadataEntries, len(metadata))
	}
	for key, value := range metadata {
		if key == "" {
			return errors.New("Metadata: keys cannot be empty")
		}
		if len(value) > MaxMetadataValue {
			return fmt.Errorf("Metadata: value for %q exceeds maximum length of %d", key, MaxMetadataValue)
		}
	}
	return nil
}

// formatValidationError converts validator errors into readable messages
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		first := validationErrors[0]
		return fmt.Errorf("%s: failed %q validation (value: %v)", first.Field(), first.Tag(), first.Value())
	}
	return err
}
