package delivery

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/segment-boneyard/integration-google-analytics/internal/ga"
)

// LoadSettings resolves the destination settings from the configured
// source. Inline JSON takes precedence over a file path.
func LoadSettings(cfg SettingsConfig) (ga.Settings, error) {
	var settings ga.Settings

	switch {
	case cfg.JSON != "":
		if err := json.Unmarshal([]byte(cfg.JSON), &settings); err != nil {
			return settings, fmt.Errorf("failed to parse inline settings: %w", err)
		}
	case cfg.Path != "":
		data, err := os.ReadFile(cfg.Path)
		if err != nil {
			return settings, fmt.Errorf("failed to read settings file: %w", err)
		}
		if err := json.Unmarshal(data, &settings); err != nil {
			return settings, fmt.Errorf("failed to parse settings file %s: %w", cfg.Path, err)
		}
	default:
		return settings, ErrNoSettings
	}

	if err := settings.Validate(); err != nil {
		return settings, err
	}
	return settings, nil
}
