package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyPipeline   = "pipeline"
	KeyPhase      = "phase"
	KeyModule     = "module"
	KeyState      = "state"
	KeyDocumentID = "document_id"
	KeyDocuments  = "documents"
	KeyPath       = "path"
	KeySource     = "source"
	KeyDuration   = "duration_ms"
	KeyWrites     = "writes"
	KeyActual     = "actual_writes"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr          { return slog.String(KeyRunID, id) }
func Pipeline(name string) slog.Attr     { return slog.String(KeyPipeline, name) }
func Phase(name string) slog.Attr        { return slog.String(KeyPhase, name) }
func Module(name string) slog.Attr       { return slog.String(KeyModule, name) }
func State(s string) slog.Attr           { return slog.String(KeyState, s) }
func DocumentID(id string) slog.Attr     { return slog.String(KeyDocumentID, id) }
func Documents(n int) slog.Attr          { return slog.Int(KeyDocuments, n) }
func Path(p string) slog.Attr            { return slog.String(KeyPath, p) }
func Source(p string) slog.Attr          { return slog.String(KeySource, p) }
func Writes(n int) slog.Attr             { return slog.Int(KeyWrites, n) }
func ActualWrites(n int) slog.Attr       { return slog.Int(KeyActual, n) }
func Duration(d time.Duration) slog.Attr { return slog.Int64(KeyDuration, d.Milliseconds()) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
