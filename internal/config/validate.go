package config

import (
	"fmt"
	"time"
)

// Validate checks that every supplied field parses and makes sense together.
// Defaults are always valid; only explicit values can fail.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	durations := []struct {
		name  string
		value string
	}{
		{"poll_interval", cfg.PollInterval},
		{"tick_interval", cfg.TickInterval},
		{"call_timeout", cfg.CallTimeout},
		{"lock_timeout", cfg.LockTimeout},
		{"lock_stale_after", cfg.LockStaleAfter},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.name, d.value, err)
		}
		if parsed <= 0 {
			return fmt.Errorf("invalid %s %q: must be positive", d.name, d.value)
		}
	}

	if cfg.MaxPayloadBytes < 0 {
		return fmt.Errorf("invalid max_payload_bytes %d: must be positive", cfg.MaxPayloadBytes)
	}

	if cfg.PollIntervalDuration() >= cfg.CallTimeoutDuration() {
		return fmt.Errorf("poll_interval %s must be shorter than call_timeout %s",
			cfg.PollIntervalDuration(), cfg.CallTimeoutDuration())
	}
	if cfg.LockStaleAfterDuration() <= cfg.LockTimeoutDuration() {
		return fmt.Errorf("lock_stale_after %s must exceed lock_timeout %s",
			cfg.LockStaleAfterDuration(), cfg.LockTimeoutDuration())
	}
	return nil
}
