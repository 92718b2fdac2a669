package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Example returns the configuration written by Init: Markdown pages rendered
// to HTML next to static assets copied verbatim.
func Example() *Config {
	return &Config{
		Version: CurrentVersion,
		Input:   InputConfig{Roots: []string{"content"}},
		Output:  OutputConfig{Directory: "public", Cache: ".sitepipe"},
		Engine:  EngineConfig{ProcessCache: true},
		Tracker: TrackerConfig{Backend: TrackerBackendJSON},
		Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
		Watch:   WatchConfig{Debounce: "500ms"},
		Settings: map[string]any{
			"site_title": "My Site",
			"base_url":   "https://example.com",
		},
		Pipelines: []PipelineConfig{
			{
				Name:  "pages",
				Input: []ModuleConfig{moduleWithArgs("read_files", map[string]any{"patterns": []string{"**/*.md"}})},
				Process: []ModuleConfig{
					{Name: "front_matter"},
					{Name: "git_info"},
					{Name: "fingerprint"},
					{Name: "markdown"},
				},
				Render: []ModuleConfig{{Name: "html_title"}},
				Write:  []ModuleConfig{{Name: "write_files"}},
			},
			{
				Name:     "assets",
				Isolated: true,
				Input: []ModuleConfig{moduleWithArgs("read_files", map[string]any{
					"patterns": []string{"**/*.css", "**/*.js", "**/*.png", "**/*.svg"},
				})},
				Write: []ModuleConfig{{Name: "write_files"}},
			},
		},
	}
}

func moduleWithArgs(name string, args any) ModuleConfig {
	var n yaml.Node
	if err := n.Encode(args); err != nil {
		panic(fmt.Sprintf("encode example args: %v", err))
	}
	return ModuleConfig{Name: name, Args: &n}
}

// Init writes the example configuration to path. An existing file is only
// replaced when force is set.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
	}
	data, err := yaml.Marshal(Example())
	if err != nil {
		return fmt.Errorf("marshal example config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
