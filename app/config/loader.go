package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadSeedFile reads an optional YAML settings file used to pre-fill a fresh
// installation. A missing file is not an error; the defaults are returned.
// Credential fields are never read from the seed file.
func LoadSeedFile(path string) (*Settings, error) {
	settings := Defaults()

	if path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return settings, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}

	if settings.Host != "" {
		cleaned := CleanURL(settings.Host)
		if cleaned == "" {
			return nil, fmt.Errorf("invalid host in settings file: %q", settings.Host)
		}
		settings.Host = cleaned
	}

	if len(settings.PostTypes) == 0 {
		settings.PostTypes = []string{"post"}
	}
	if settings.StatusTemplate == "" {
		settings.StatusTemplate = DefaultStatusTemplate
	}
	if settings.DelaySharing < 0 {
		settings.DelaySharing = 0
	}
	if settings.DelaySharing > MaxDelaySharing {
		settings.DelaySharing = MaxDelaySharing
	}

	slog.Debug("Settings seed file loaded", "path", path, "host", settings.Host)

	return settings, nil
}
