package config

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Lookup   LookupConfig   `json:"lookup"`
	Recheck  RecheckConfig  `json:"recheck"`
	Notifier NotifierConfig `json:"notifier,omitempty"`
	Health   HealthConfig   `json:"health,omitempty"`
	Logging  LoggingConfig  `json:"logging"`
}

// TelegramConfig controls the inbound/outbound chat transport.
//
// Token normally comes from the TELEGRAM_TOKEN environment variable (it
// overrides the file value). An empty token disables the chat capability for
// the process lifetime; the rest of the daemon keeps running.
type TelegramConfig struct {
	Token string `json:"token,omitempty"`

	// PollTimeout is the getUpdates long-poll window, a Go duration string
	// (e.g. "30s"). PollBackoff is the wait after a failed poll before
	// retrying (default "10s").
	PollTimeout string `json:"poll_timeout,omitempty"`
	PollBackoff string `json:"poll_backoff,omitempty"`
}

// LookupConfig selects and tunes the product-lookup backend.
//
// Backend is "amazon" (HTML scrape, default) or "api" (structured JSON
// product API). APIKey comes from LOOKUP_API_KEY when set in the
// environment.
type LookupConfig struct {
	Backend string `json:"backend,omitempty"`
	// Timeout is a Go duration string bounding one fetch (default "25s").
	Timeout string `json:"timeout,omitempty"`
	APIURL  string `json:"api_url,omitempty"`
	APIKey  string `json:"api_key,omitempty"`
}

// RecheckConfig controls the periodic price re-check.
//
// Enabled is a pointer so "omitted" defaults to true.
type RecheckConfig struct {
	Enabled  *bool  `json:"enabled,omitempty"`
	Interval string `json:"interval,omitempty"` // default "1h"
}

type NotifierConfig struct {
	RatePerSec int `json:"rate_per_sec,omitempty"` // default 3
}

// HealthConfig controls the liveness HTTP server.
type HealthConfig struct {
	Enabled *bool  `json:"enabled,omitempty"`
	Addr    string `json:"addr,omitempty"` // default ":8080"
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// RecheckEnabled resolves the enabled flag with its default.
func (c RecheckConfig) RecheckEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// HealthEnabled resolves the enabled flag with its default.
func (c HealthConfig) HealthEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}
