package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

var envFileNames = []string{".env", ".env.local"}

// LoadEnvFiles loads .env and .env.local from each directory, in order.
// Variables already present in the environment are never overridden.
// It returns the files that were loaded.
func LoadEnvFiles(dirs ...string) []string {
	seen := make(map[string]bool)
	var loaded []string
	for _, dir := range dirs {
		abs, err := filepath.Abs(dir)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true
		for _, name := range envFileNames {
			p := filepath.Join(abs, name)
			if _, err := os.Stat(p); err != nil {
				continue
			}
			if err := godotenv.Load(p); err != nil {
				slog.Warn("Failed to load environment file", slog.String("path", p), slog.String("error", err.Error()))
				continue
			}
			loaded = append(loaded, p)
		}
	}
	return loaded
}
