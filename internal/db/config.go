package db

import (
	"encoding/json"

	"eve-importer/internal/config"
	"eve-importer/internal/logger"
)

const configKey = "settings"

// LoadConfig reads the stored config. Missing or unreadable settings fall
// back to defaults; fields absent from the stored JSON keep their defaults,
// so new fields pick up default values transparently.
func (d *DB) LoadConfig() *config.Config {
	cfg := config.Default()

	var raw string
	err := d.sql.QueryRow("SELECT value FROM config WHERE key = ?", configKey).Scan(&raw)
	if err != nil {
		return cfg
	}
	if err := json.Unmarshal([]byte(raw), cfg); err != nil {
		logger.Warn("DB", "stored config unreadable, using defaults: "+err.Error())
		return config.Default()
	}
	return cfg
}

// SaveConfig persists the config.
func (d *DB) SaveConfig(cfg *config.Config) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = d.sql.Exec(
		"INSERT INTO config (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		configKey, string(raw))
	return err
}
