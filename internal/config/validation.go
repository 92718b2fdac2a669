package config

import (
	"fmt"
	"time"

	"git.home.luguber.info/inful/sitepipe/internal/foundation"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
	"git.home.luguber.info/inful/sitepipe/internal/retry"
)

// ValidateConfig checks the whole configuration and reports every problem
// in a single configuration error. Graph checks (unknown dependencies,
// cycles) are left to the engine.
func ValidateConfig(cfg *Config) error {
	chain := foundation.NewValidatorChain(
		validatePipelines,
		validateTracker,
		validateDurations,
		validateNotify,
	)
	return chain.Validate(cfg).ToError()
}

func validatePipelines(cfg *Config) foundation.ValidationResult {
	if len(cfg.Pipelines) == 0 {
		return foundation.Fail("pipelines", "required", "at least one pipeline must be configured")
	}
	res := foundation.Valid()
	seen := make(map[string]string, len(cfg.Pipelines))
	for i, p := range cfg.Pipelines {
		field := fmt.Sprintf("pipelines[%d]", i)
		if p.Name == "" {
			res = res.Combine(foundation.Required(field+".name", p.Name))
			continue
		}
		if prev, dup := seen[pipeline.Key(p.Name)]; dup {
			res = res.Combine(foundation.Fail(field+".name", "duplicate",
				"pipeline %q duplicates %q", p.Name, prev))
		}
		seen[pipeline.Key(p.Name)] = p.Name
		phases := p.phases()
		for _, ph := range pipeline.Phases {
			for j, m := range phases[ph] {
				res = res.Combine(foundation.Required(fmt.Sprintf("pipelines.%s.%s[%d]", p.Name, ph, j), m.Name))
			}
		}
	}
	return res
}

func validateTracker(cfg *Config) foundation.ValidationResult {
	if _, err := ParseTrackerBackend(string(cfg.Tracker.Backend)); err != nil {
		return foundation.Fail("tracker.backend", "one_of", "%s", err.Error())
	}
	return foundation.Valid()
}

func validateDurations(cfg *Config) foundation.ValidationResult {
	res := foundation.Valid()
	check := func(field, value string) {
		if value == "" {
			return
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			res = res.Combine(foundation.Fail(field, "duration", "invalid duration %q", value))
			return
		}
		if d < 0 {
			res = res.Combine(foundation.Fail(field, "range", "must not be negative, got %s", value))
		}
	}
	check("watch.debounce", cfg.Watch.Debounce)
	check("watch.interval", cfg.Watch.Interval)
	if cfg.Notify != nil {
		check("notify.timeout", cfg.Notify.Timeout)
	}
	return res.Combine(foundation.NonNegative("engine.concurrency", cfg.Engine.Concurrency))
}

func validateNotify(cfg *Config) foundation.ValidationResult {
	if cfg.Notify == nil {
		return foundation.Valid()
	}
	res := foundation.Required("notify.url", cfg.Notify.URL).
		Combine(foundation.Required("notify.subject", cfg.Notify.Subject)).
		Combine(foundation.NonNegative("notify.retries", cfg.Notify.Retries))
	if _, err := retry.ParseBackoffMode(cfg.Notify.Backoff); err != nil {
		res = res.Combine(foundation.Fail("notify.backoff", "invalid", "%v", err))
	}
	return res
}
