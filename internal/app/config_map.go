package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pricewatch/internal/config"
	"pricewatch/internal/health"
	"pricewatch/internal/lookup"
	"pricewatch/internal/notifier"
	"pricewatch/internal/recheck"
	"pricewatch/internal/watcher"
	"pricewatch/pkg/logx"
)

// Mapping from file config to per-service configs, with defaults resolved in
// one place so services receive ready-to-use values.

func mapLookupOptions(cfg *config.Config) (lookup.Options, error) {
	timeout, err := config.ParseDurationOrDefault("lookup.timeout", cfg.Lookup.Timeout, 25*time.Second)
	if err != nil {
		return lookup.Options{}, err
	}
	return lookup.Options{
		Backend: cfg.Lookup.Backend,
		Timeout: timeout,
		APIURL:  cfg.Lookup.APIURL,
		APIKey:  cfg.Lookup.APIKey,
	}, nil
}

func mapWatcherConfig(cfg *config.Config) (watcher.Config, error) {
	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 30*time.Second)
	if err != nil {
		return watcher.Config{}, err
	}
	backoff, err := config.ParseDurationOrDefault("telegram.poll_backoff", cfg.Telegram.PollBackoff, 10*time.Second)
	if err != nil {
		return watcher.Config{}, err
	}
	return watcher.Config{PollTimeout: pollTimeout, PollBackoff: backoff}, nil
}

func mapRecheckConfig(cfg *config.Config) (recheck.Config, error) {
	interval, err := config.ParseDurationOrDefault("recheck.interval", cfg.Recheck.Interval, time.Hour)
	if err != nil {
		return recheck.Config{}, err
	}
	return recheck.Config{
		Enabled:  cfg.Recheck.RecheckEnabled(),
		Interval: interval,
	}, nil
}

func mapNotifierConfig(cfg *config.Config) notifier.Config {
	return notifier.Config{RatePerSec: cfg.Notifier.RatePerSec}
}

func mapHealthConfig(cfg *config.Config) health.Config {
	return health.Config{
		Enabled: cfg.Health.HealthEnabled(),
		Addr:    cfg.Health.Addr,
	}
}

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

// validateConfig is the hot-reload gate: a config that fails here is
// rejected and the previous one stays in effect.
func validateConfig(_ context.Context, cfg *config.Config) error {
	if _, err := mapWatcherConfig(cfg); err != nil {
		return err
	}
	if _, err := mapRecheckConfig(cfg); err != nil {
		return err
	}
	if _, err := mapLookupOptions(cfg); err != nil {
		return err
	}
	switch b := strings.ToLower(strings.TrimSpace(cfg.Lookup.Backend)); b {
	case "", lookup.BackendAmazon:
	case lookup.BackendAPI:
		if strings.TrimSpace(cfg.Lookup.APIURL) == "" {
			return fmt.Errorf("lookup.api_url is required when lookup.backend=api")
		}
	default:
		return fmt.Errorf("unknown lookup.backend: %s", b)
	}
	if cfg.Notifier.RatePerSec < 0 {
		return fmt.Errorf("notifier.rate_per_sec must be >= 0")
	}
	return nil
}
