package llm

import (
	"errors"
	"fmt"
)

// The collaborator boundary distinguishes three failure classes:
// transport failures (retryable, converted to fallbacks by callers),
// schema failures (the model returned text we cannot use), and
// validation failures (structurally valid output violating domain rules;
// these propagate, never silently corrected).

// TransportError wraps API, network and timeout failures
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport error: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// SchemaError reports a structured response missing required fields or
// failing to parse as JSON
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("schema error: field %q: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("schema error: %s", e.Reason)
}

// ValidationError reports domain-level rubric violations in collaborator output
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Reason)
}

// IsTransport reports whether err is (or wraps) a transport failure
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsSchema reports whether err is (or wraps) a schema failure
func IsSchema(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// IsValidation reports whether err is (or wraps) a validation failure
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Recoverable reports whether the caller should degrade to its deterministic
// fallback rather than propagate. Validation errors are never recoverable.
func Recoverable(err error) bool {
	return err != nil && !IsValidation(err)
}
