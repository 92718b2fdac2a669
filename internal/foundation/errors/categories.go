package errors

// ErrorCategory says which part of a run produced an error.
type ErrorCategory string

const (
	// CategoryConfig covers graph and configuration problems detected before
	// any phase runs: cycles, duplicate names, unknown modules.
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"
	// CategoryVisibility is raised when a pipeline asks for documents it may not see.
	CategoryVisibility ErrorCategory = "visibility"
	// CategoryModule covers failures returned by modules and failed dependencies.
	CategoryModule ErrorCategory = "module"
	// CategoryDisposed marks access to content or lazy metadata after release.
	CategoryDisposed ErrorCategory = "disposed"
	// CategorySnapshot covers write-history persistence; callers log and continue.
	CategorySnapshot   ErrorCategory = "snapshot"
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryNetwork    ErrorCategory = "network"
	CategoryCanceled   ErrorCategory = "canceled"
	CategoryRuntime    ErrorCategory = "runtime"
	CategoryInternal   ErrorCategory = "internal"
)

// ErrorSeverity is the impact of an error on the current run.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // stops the run
	SeverityError   ErrorSeverity = "error"   // fails one pipeline
	SeverityWarning ErrorSeverity = "warning" // logged, run continues
)

type categoryInfo struct {
	severity ErrorSeverity
	exitCode int
}

var categoryTable = map[ErrorCategory]categoryInfo{
	CategoryValidation: {SeverityFatal, 2},
	CategoryConfig:     {SeverityFatal, 7},
	CategoryNetwork:    {SeverityError, 8},
	CategoryInternal:   {SeverityFatal, 10},
	CategoryModule:     {SeverityError, 11},
	CategoryVisibility: {SeverityError, 11},
	CategoryDisposed:   {SeverityError, 11},
	CategoryFileSystem: {SeverityError, 11},
	CategoryRuntime:    {SeverityFatal, 12},
	CategorySnapshot:   {SeverityWarning, 13},
	CategoryCanceled:   {SeverityError, 130},
}

// DefaultSeverity returns the severity errors of c are built with.
func (c ErrorCategory) DefaultSeverity() ErrorSeverity {
	if info, ok := categoryTable[c]; ok {
		return info.severity
	}
	return SeverityError
}

// ExitCode returns the process exit code for c; unknown categories exit 1.
func (c ErrorCategory) ExitCode() int {
	if info, ok := categoryTable[c]; ok {
		return info.exitCode
	}
	return 1
}
