// Package foundation holds small building blocks shared by the configuration
// layer and the CLI.
package foundation

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
)

// Validator checks one aspect of a value.
type Validator[T any] func(T) ValidationResult

// ValidationResult collects field errors.
type ValidationResult struct {
	Errors []FieldError
}

// FieldError is a single validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (fe FieldError) Error() string {
	if fe.Field != "" {
		return fmt.Sprintf("%s: %s", fe.Field, fe.Message)
	}
	return fe.Message
}

// Valid returns an empty result.
func Valid() ValidationResult { return ValidationResult{} }

// Invalid returns a result holding errs.
func Invalid(errs ...FieldError) ValidationResult {
	return ValidationResult{Errors: errs}
}

// Fail returns a result with a single field error.
func Fail(field, code, format string, args ...any) ValidationResult {
	return Invalid(FieldError{Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
}

// OK reports whether no errors were recorded.
func (vr ValidationResult) OK() bool { return len(vr.Errors) == 0 }

// Combine merges two results.
func (vr ValidationResult) Combine(other ValidationResult) ValidationResult {
	if other.OK() {
		return vr
	}
	if vr.OK() {
		return other
	}
	all := make([]FieldError, 0, len(vr.Errors)+len(other.Errors))
	all = append(all, vr.Errors...)
	all = append(all, other.Errors...)
	return Invalid(all...)
}

// ToError returns nil for a valid result and a configuration error listing
// every failure otherwise.
func (vr ValidationResult) ToError() error {
	if vr.OK() {
		return nil
	}
	messages := make([]string, 0, len(vr.Errors))
	for _, fe := range vr.Errors {
		messages = append(messages, fe.Error())
	}
	return errors.ConfigError("invalid configuration: "+strings.Join(messages, "; ")).
		WithContext("fields", len(vr.Errors)).
		Build()
}

// ValidatorChain runs validators in order and keeps every failure.
type ValidatorChain[T any] struct {
	validators []Validator[T]
}

// NewValidatorChain creates a chain.
func NewValidatorChain[T any](validators ...Validator[T]) *ValidatorChain[T] {
	return &ValidatorChain[T]{validators: validators}
}

// Add appends a validator.
func (vc *ValidatorChain[T]) Add(v Validator[T]) *ValidatorChain[T] {
	vc.validators = append(vc.validators, v)
	return vc
}

// Validate runs all validators.
func (vc *ValidatorChain[T]) Validate(value T) ValidationResult {
	result := Valid()
	for _, v := range vc.validators {
		result = result.Combine(v(value))
	}
	return result
}

// Required fails when value is empty after trimming.
func Required(field, value string) ValidationResult {
	if strings.TrimSpace(value) == "" {
		return Fail(field, "required", "must not be empty")
	}
	return Valid()
}

// NonNegative fails when value is below zero.
func NonNegative(field string, value int) ValidationResult {
	if value < 0 {
		return Fail(field, "range", "must not be negative, got %d", value)
	}
	return Valid()
}
