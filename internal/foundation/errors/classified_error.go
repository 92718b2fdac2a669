package errors

import (
	stderrors "errors"
	"maps"
	"sort"
)

// ClassifiedError is an error with a category, a severity and structured
// fields. It is immutable; WithContext returns a copy.
type ClassifiedError struct {
	category ErrorCategory
	severity ErrorSeverity
	message  string
	cause    error
	fields   map[string]any
}

// Error returns the message followed by the cause. Fields are not included;
// put names the reader needs into the message.
func (e *ClassifiedError) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

// Unwrap returns the cause.
func (e *ClassifiedError) Unwrap() error { return e.cause }

// Category returns the error category.
func (e *ClassifiedError) Category() ErrorCategory { return e.category }

// Severity returns the error severity.
func (e *ClassifiedError) Severity() ErrorSeverity { return e.severity }

// Message returns the message without the cause.
func (e *ClassifiedError) Message() string { return e.message }

// Field returns one structured field.
func (e *ClassifiedError) Field(key string) (any, bool) {
	v, ok := e.fields[key]
	return v, ok
}

// Fields returns a copy of the structured fields.
func (e *ClassifiedError) Fields() map[string]any {
	return maps.Clone(e.fields)
}

// FieldKeys returns the field names in sorted order.
func (e *ClassifiedError) FieldKeys() []string {
	keys := make([]string, 0, len(e.fields))
	for k := range e.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WithContext returns a copy of e with key set to value.
func (e *ClassifiedError) WithContext(key string, value any) *ClassifiedError {
	cp := *e
	cp.fields = make(map[string]any, len(e.fields)+1)
	maps.Copy(cp.fields, e.fields)
	cp.fields[key] = value
	return &cp
}

// Is matches another classified error with the same category and message.
func (e *ClassifiedError) Is(target error) bool {
	other, ok := target.(*ClassifiedError)
	return ok && e.category == other.category && e.message == other.message
}

// AsClassified returns the first ClassifiedError in err's chain.
func AsClassified(err error) (*ClassifiedError, bool) {
	var classified *ClassifiedError
	if stderrors.As(err, &classified) {
		return classified, true
	}
	return nil, false
}

// HasCategory reports whether any classified error reachable from err,
// including every branch of a join, belongs to category.
func HasCategory(err error, category ErrorCategory) bool {
	found := false
	walk(err, func(e error) bool {
		if c, ok := e.(*ClassifiedError); ok && c.category == category {
			found = true
		}
		return !found
	})
	return found
}

// Categories lists the distinct categories reachable from err in visit order.
func Categories(err error) []ErrorCategory {
	var out []ErrorCategory
	seen := make(map[ErrorCategory]bool)
	walk(err, func(e error) bool {
		if c, ok := e.(*ClassifiedError); ok && !seen[c.category] {
			seen[c.category] = true
			out = append(out, c.category)
		}
		return true
	})
	return out
}

// walk visits err and everything reachable through Unwrap() error and
// Unwrap() []error until visit returns false.
func walk(err error, visit func(error) bool) bool {
	if err == nil {
		return true
	}
	if !visit(err) {
		return false
	}
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		for _, inner := range u.Unwrap() {
			if !walk(inner, visit) {
				return false
			}
		}
	case interface{ Unwrap() error }:
		return walk(u.Unwrap(), visit)
	}
	return true
}
