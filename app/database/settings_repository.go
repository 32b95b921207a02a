package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pixelpress/pixelpress/app/config"
)

// Single fixed key under which the site configuration blob is stored.
const settingsKey = "site_settings"

// SettingsRepo handles persistence of the site configuration blob
type SettingsRepo struct {
	db *DB
}

// NewSettingsRepo creates a new settings repository
func NewSettingsRepo(db *DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

// Load returns the stored settings merged over the defaults. Missing or
// unknown fields in the stored blob fall back to their default values.
func (r *SettingsRepo) Load() (*config.Settings, error) {
	settings := config.Defaults()

	var value string
	err := r.db.QueryRow(`
		SELECT value FROM settings WHERE name = ?
	`, settingsKey).Scan(&value)

	if err == sql.ErrNoRows {
		return settings, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	if err := json.Unmarshal([]byte(value), settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}

	return settings, nil
}

// Save persists the full settings struct as one atomic row replace.
func (r *SettingsRepo) Save(settings *config.Settings) error {
	value, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO settings (name, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (name) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, settingsKey, string(value))

	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	return nil
}

// Reset reverts the stored settings to their defaults.
func (r *SettingsRepo) Reset() error {
	return r.Save(config.Defaults())
}

// SeedIfEmpty writes the given settings only when no row exists yet, so a
// seed file never overwrites configuration changed at runtime.
func (r *SettingsRepo) SeedIfEmpty(settings *config.Settings) (bool, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM settings WHERE name = ?`, settingsKey).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check settings: %w", err)
	}

	if count > 0 {
		return false, nil
	}

	if err := r.Save(settings); err != nil {
		return false, err
	}

	return true, nil
}
