package config

import (
	"os"
	"strings"
)

// Environment variables that override file values. Credentials live in the
// environment so config files can be committed without secrets.
const (
	EnvTelegramToken = "TELEGRAM_TOKEN"
	EnvLookupAPIKey  = "LOOKUP_API_KEY"
	EnvHealthAddr    = "HEALTH_ADDR"
)

// applyEnv overlays environment credentials onto a parsed config. Called on
// every Parse so hot reloads keep the overrides.
func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvTelegramToken)); v != "" {
		cfg.Telegram.Token = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLookupAPIKey)); v != "" {
		cfg.Lookup.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvHealthAddr)); v != "" {
		cfg.Health.Addr = v
	}
}
