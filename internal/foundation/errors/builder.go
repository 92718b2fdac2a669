package errors

// ErrorBuilder assembles a ClassifiedError.
type ErrorBuilder struct {
	err ClassifiedError
}

// NewError starts an error of category with the category's default severity.
func NewError(category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{err: ClassifiedError{
		category: category,
		severity: category.DefaultSeverity(),
		message:  message,
	}}
}

// WrapError starts an error of category caused by err.
func WrapError(err error, category ErrorCategory, message string) *ErrorBuilder {
	return NewError(category, message).WithCause(err)
}

// WithSeverity overrides the default severity.
func (b *ErrorBuilder) WithSeverity(severity ErrorSeverity) *ErrorBuilder {
	b.err.severity = severity
	return b
}

// WithCause sets the wrapped error.
func (b *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	b.err.cause = err
	return b
}

// WithContext adds a structured field.
func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	if b.err.fields == nil {
		b.err.fields = make(map[string]any)
	}
	b.err.fields[key] = value
	return b
}

// Build returns the error. The builder must not be reused.
func (b *ErrorBuilder) Build() *ClassifiedError {
	e := b.err
	return &e
}

// ConfigError reports a graph or configuration problem found before any phase runs.
func ConfigError(message string) *ErrorBuilder { return NewError(CategoryConfig, message) }

// ValidationError reports invalid command line usage.
func ValidationError(message string) *ErrorBuilder { return NewError(CategoryValidation, message) }

// VisibilityError reports a request for another pipeline's documents that the
// graph does not allow. It fails the requesting pipeline only.
func VisibilityError(message string) *ErrorBuilder { return NewError(CategoryVisibility, message) }

// ModuleError reports a module failure.
func ModuleError(message string) *ErrorBuilder { return NewError(CategoryModule, message) }

// DisposedError reports access to released content or metadata.
func DisposedError(message string) *ErrorBuilder { return NewError(CategoryDisposed, message) }

// SnapshotError reports a write-history persistence failure.
func SnapshotError(message string) *ErrorBuilder { return NewError(CategorySnapshot, message) }

// FileSystemError reports a failed read or write.
func FileSystemError(message string) *ErrorBuilder { return NewError(CategoryFileSystem, message) }

// NetworkError reports a failed notification or remote call.
func NetworkError(message string) *ErrorBuilder { return NewError(CategoryNetwork, message) }

// CanceledError reports a run stopped through its context.
func CanceledError(message string) *ErrorBuilder { return NewError(CategoryCanceled, message) }

// RuntimeError reports an environment failure outside the pipelines.
func RuntimeError(message string) *ErrorBuilder { return NewError(CategoryRuntime, message) }

// InternalError reports a broken engine invariant.
func InternalError(message string) *ErrorBuilder { return NewError(CategoryInternal, message) }
