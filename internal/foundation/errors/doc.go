// Package errors classifies the failures sitepipe reports.
//
// A ClassifiedError carries a category that says which part of a run failed
// (graph configuration, a module, visibility between pipelines, a disposed
// document) together with a severity and structured fields. Categories decide
// the CLI exit code; the engine uses them to tell cancellation apart from
// module failures.
//
//	err := errors.VisibilityError(`pipeline "assets" is isolated`).
//		WithContext("requested_by", caller).
//		Build()
//
// HasCategory searches %w chains and errors.Join trees, so a classified error
// stays detectable after the engine attaches pipeline and phase context.
package errors
