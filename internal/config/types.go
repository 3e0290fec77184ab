package config

import (
	"time"

	"github.com/capbridge/capbridge/internal/channel"
)

// Defaults applied when the config file omits a field. The channel package
// owns the protocol-level defaults; only the reference host tick is ours.
const (
	DefaultTickInterval = 25 * time.Millisecond

	DefaultPollInterval    = channel.DefaultPollInterval
	DefaultCallTimeout     = channel.DefaultCallTimeout
	DefaultLockTimeout     = channel.DefaultLockTimeout
	DefaultLockStaleAfter  = channel.DefaultLockStaleAfter
	DefaultMaxPayloadBytes = channel.DefaultMaxPayloadBytes
)

// Config is the top-level capbridge configuration.
//
// Durations are stored as strings ("100ms", "30s") and parsed on access so the
// TOML file stays human-editable. Every field can be overridden through the
// CAPBRIDGE_* environment variables.
type Config struct {
	// ChannelDir is the shared directory both processes rendezvous in.
	ChannelDir string `toml:"channel_dir" env:"CAPBRIDGE_CHANNEL_DIR"`

	// CaptureDir is the default directory searched for capture files.
	CaptureDir string `toml:"capture_dir" env:"CAPBRIDGE_CAPTURE_DIR"`

	PollInterval   string `toml:"poll_interval" env:"CAPBRIDGE_POLL_INTERVAL"`
	TickInterval   string `toml:"tick_interval" env:"CAPBRIDGE_TICK_INTERVAL"`
	CallTimeout    string `toml:"call_timeout" env:"CAPBRIDGE_CALL_TIMEOUT"`
	LockTimeout    string `toml:"lock_timeout" env:"CAPBRIDGE_LOCK_TIMEOUT"`
	LockStaleAfter string `toml:"lock_stale_after" env:"CAPBRIDGE_LOCK_STALE_AFTER"`

	// MaxPayloadBytes bounds an encoded request or response document.
	MaxPayloadBytes int64 `toml:"max_payload_bytes" env:"CAPBRIDGE_MAX_PAYLOAD_BYTES"`
}

func (c *Config) duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// PollIntervalDuration returns the client poll interval.
func (c *Config) PollIntervalDuration() time.Duration {
	return c.duration(c.PollInterval, DefaultPollInterval)
}

// TickIntervalDuration returns the reference host tick interval.
func (c *Config) TickIntervalDuration() time.Duration {
	return c.duration(c.TickInterval, DefaultTickInterval)
}

// CallTimeoutDuration returns the end-to-end call deadline.
func (c *Config) CallTimeoutDuration() time.Duration {
	return c.duration(c.CallTimeout, DefaultCallTimeout)
}

// LockTimeoutDuration returns the lock acquisition budget.
func (c *Config) LockTimeoutDuration() time.Duration {
	return c.duration(c.LockTimeout, DefaultLockTimeout)
}

// LockStaleAfterDuration returns the lock staleness reclamation threshold.
func (c *Config) LockStaleAfterDuration() time.Duration {
	return c.duration(c.LockStaleAfter, DefaultLockStaleAfter)
}

// MaxPayload returns the encoded document size ceiling in bytes.
func (c *Config) MaxPayload() int64 {
	if c.MaxPayloadBytes <= 0 {
		return DefaultMaxPayloadBytes
	}
	return c.MaxPayloadBytes
}

// ChannelOptions assembles the bridge options both ends share.
func (c *Config) ChannelOptions() channel.Options {
	return channel.Options{
		Dir:             c.ChannelDir,
		PollInterval:    c.PollIntervalDuration(),
		CallTimeout:     c.CallTimeoutDuration(),
		LockTimeout:     c.LockTimeoutDuration(),
		LockStaleAfter:  c.LockStaleAfterDuration(),
		MaxPayloadBytes: c.MaxPayload(),
	}
}
