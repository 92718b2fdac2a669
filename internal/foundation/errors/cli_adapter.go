package errors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// CLIErrorAdapter turns a command error into a message and an exit code.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
	out     io.Writer
	exit    func(int)
}

// NewCLIErrorAdapter returns an adapter writing to stderr.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{verbose: verbose, logger: logger, out: os.Stderr, exit: os.Exit}
}

// ExitCodeFor returns the exit code for err. A run that failed for several
// reasons exits with the highest code among them, so cancellation wins over
// module failures.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	code := 0
	for _, c := range Categories(err) {
		code = max(code, c.ExitCode())
	}
	if code == 0 {
		return 1
	}
	return code
}

// FormatError renders err for the terminal. Joined errors, one per failed
// pipeline, become one line each.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	parts := []error{err}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		parts = j.Unwrap()
	}
	if len(parts) == 1 {
		return "Error: " + a.formatOne(parts[0])
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %d failures", len(parts))
	for _, p := range parts {
		sb.WriteString("\n  - ")
		sb.WriteString(a.formatOne(p))
	}
	return sb.String()
}

func (a *CLIErrorAdapter) formatOne(err error) string {
	classified, ok := AsClassified(err)
	if !ok {
		return err.Error()
	}
	if classified.Category() == CategoryInternal && !a.verbose {
		return "internal error occurred (use -v for details)"
	}
	if !a.verbose {
		return err.Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s:%s] %s", classified.Category(), classified.Severity(), err.Error())
	for _, k := range classified.FieldKeys() {
		v, _ := classified.Field(k)
		fmt.Fprintf(&sb, " %s=%v", k, v)
	}
	return sb.String()
}

// HandleError prints err and exits with its code. A nil error is ignored.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}
	if a.verbose {
		a.logError(err)
	}
	_, _ = fmt.Fprintln(a.out, a.FormatError(err))
	a.exit(a.ExitCodeFor(err))
}

func (a *CLIErrorAdapter) logError(err error) {
	classified, ok := AsClassified(err)
	if !ok {
		a.logger.Error("Command failed", slog.String("error", err.Error()))
		return
	}
	level := slog.LevelError
	if classified.Severity() == SeverityWarning {
		level = slog.LevelWarn
	}
	attrs := []slog.Attr{slog.String("category", string(classified.Category()))}
	for _, k := range classified.FieldKeys() {
		v, _ := classified.Field(k)
		attrs = append(attrs, slog.Any(k, v))
	}
	a.logger.LogAttrs(context.Background(), level, classified.Message(), attrs...)
}
