package config

import (
	"fmt"
	"strings"
)

// NormalizationResult captures adjustments made while canonicalizing.
type NormalizationResult struct {
	Warnings []string
}

func (r *NormalizationResult) changed(field string, from, to any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf("normalized %s from '%v' to '%v'", field, from, to))
}

func (r *NormalizationResult) unknown(field, value string, def any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf("unknown %s '%s', defaulting to %v", field, value, def))
}

// NormalizeConfig canonicalizes enumerations, lists and bounds in place.
// It runs before defaults so that canonical values drive them.
func NormalizeConfig(c *Config) (*NormalizationResult, error) {
	if c == nil {
		return nil, fmt.Errorf("config nil")
	}
	res := &NormalizationResult{}
	normalizeLogging(&c.Logging, res)
	normalizeTracker(&c.Tracker, res)
	normalizeEngine(&c.Engine, res)
	c.Input.Roots = trimStringSlice(c.Input.Roots)
	for i := range c.Pipelines {
		normalizePipeline(&c.Pipelines[i], res)
	}
	return res, nil
}

func normalizeLogging(l *LoggingConfig, res *NormalizationResult) {
	if raw := string(l.Level); raw != "" {
		if lvl, ok := logLevelNormalizer.Lookup(raw); ok {
			if lvl != l.Level {
				res.changed("logging.level", l.Level, lvl)
			}
			l.Level = lvl
		} else {
			res.unknown("logging.level", raw, LogLevelInfo)
			l.Level = LogLevelInfo
		}
	}
	if raw := string(l.Format); raw != "" {
		if f, ok := logFormatNormalizer.Lookup(raw); ok {
			if f != l.Format {
				res.changed("logging.format", l.Format, f)
			}
			l.Format = f
		} else {
			res.unknown("logging.format", raw, LogFormatText)
			l.Format = LogFormatText
		}
	}
}

// normalizeTracker leaves unknown backends in place so validation rejects them.
func normalizeTracker(t *TrackerConfig, res *NormalizationResult) {
	if b, ok := trackerBackendNormalizer.Lookup(string(t.Backend)); ok && b != t.Backend {
		res.changed("tracker.backend", t.Backend, b)
		t.Backend = b
	}
}

func normalizeEngine(e *EngineConfig, res *NormalizationResult) {
	if e.Concurrency < 0 {
		res.changed("engine.concurrency", e.Concurrency, 0)
		e.Concurrency = 0
	}
}

func normalizePipeline(p *PipelineConfig, res *NormalizationResult) {
	p.Name = strings.TrimSpace(p.Name)
	p.Dependencies = trimStringSlice(p.Dependencies)
	for _, mods := range [][]ModuleConfig{p.Input, p.Process, p.Render, p.Write} {
		for i := range mods {
			name := strings.ToLower(strings.TrimSpace(mods[i].Name))
			if name != mods[i].Name {
				res.changed(fmt.Sprintf("pipelines.%s module", p.Name), mods[i].Name, name)
				mods[i].Name = name
			}
		}
	}
}

// trimStringSlice removes empty entries without reordering.
func trimStringSlice(in []string) []string {
	if len(in) == 0 {
		return in
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}
