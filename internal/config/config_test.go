package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func clearOverrides(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"CAPBRIDGE_CHANNEL_DIR", "CAPBRIDGE_CAPTURE_DIR", "CAPBRIDGE_POLL_INTERVAL",
		"CAPBRIDGE_TICK_INTERVAL", "CAPBRIDGE_CALL_TIMEOUT", "CAPBRIDGE_LOCK_TIMEOUT",
		"CAPBRIDGE_LOCK_STALE_AFTER", "CAPBRIDGE_MAX_PAYLOAD_BYTES",
	} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestLoadFromMissingFileReturnsDefaults(t *testing.T) {
	clearOverrides(t)
	t.Setenv("XDG_RUNTIME_DIR", "/tmp/run")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.ChannelDir != filepath.Join("/tmp/run", "capbridge", "channel") {
		t.Fatalf("ChannelDir = %q, want default channel dir", cfg.ChannelDir)
	}
	if got := cfg.PollIntervalDuration(); got != DefaultPollInterval {
		t.Fatalf("PollIntervalDuration() = %s, want %s", got, DefaultPollInterval)
	}
	if got := cfg.CallTimeoutDuration(); got != DefaultCallTimeout {
		t.Fatalf("CallTimeoutDuration() = %s, want %s", got, DefaultCallTimeout)
	}
	if got := cfg.MaxPayload(); got != int64(DefaultMaxPayloadBytes) {
		t.Fatalf("MaxPayload() = %d, want %d", got, int64(DefaultMaxPayloadBytes))
	}
}

func TestLoadFromParsesAllFields(t *testing.T) {
	clearOverrides(t)
	path := writeConfig(t, `
channel_dir = "/srv/bridge/channel"
capture_dir = "/srv/captures"
poll_interval = "50ms"
tick_interval = "10ms"
call_timeout = "10s"
lock_timeout = "2s"
lock_stale_after = "20s"
max_payload_bytes = 1048576
`)

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.ChannelDir != "/srv/bridge/channel" {
		t.Fatalf("ChannelDir = %q", cfg.ChannelDir)
	}
	if cfg.CaptureDir != "/srv/captures" {
		t.Fatalf("CaptureDir = %q", cfg.CaptureDir)
	}
	if got := cfg.PollIntervalDuration(); got != 50*time.Millisecond {
		t.Fatalf("PollIntervalDuration() = %s, want 50ms", got)
	}
	if got := cfg.TickIntervalDuration(); got != 10*time.Millisecond {
		t.Fatalf("TickIntervalDuration() = %s, want 10ms", got)
	}
	if got := cfg.CallTimeoutDuration(); got != 10*time.Second {
		t.Fatalf("CallTimeoutDuration() = %s, want 10s", got)
	}
	if got := cfg.LockStaleAfterDuration(); got != 20*time.Second {
		t.Fatalf("LockStaleAfterDuration() = %s, want 20s", got)
	}
	if got := cfg.MaxPayload(); got != 1048576 {
		t.Fatalf("MaxPayload() = %d, want 1048576", got)
	}
}

func TestLoadFromEnvOverridesWinOverFile(t *testing.T) {
	clearOverrides(t)
	path := writeConfig(t, `
channel_dir = "/from/file"
poll_interval = "100ms"
`)
	t.Setenv("CAPBRIDGE_CHANNEL_DIR", "/from/env")
	t.Setenv("CAPBRIDGE_POLL_INTERVAL", "10ms")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.ChannelDir != "/from/env" {
		t.Fatalf("ChannelDir = %q, want %q", cfg.ChannelDir, "/from/env")
	}
	if got := cfg.PollIntervalDuration(); got != 10*time.Millisecond {
		t.Fatalf("PollIntervalDuration() = %s, want 10ms", got)
	}
}

func TestLoadFromExpandsEnvPlaceholders(t *testing.T) {
	clearOverrides(t)
	t.Setenv("BRIDGE_ROOT", "/opt/bridge")
	path := writeConfig(t, `
channel_dir = "${BRIDGE_ROOT}/channel"
capture_dir = "${UNSET_BRIDGE_VAR}/captures"
`)

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.ChannelDir != "/opt/bridge/channel" {
		t.Fatalf("ChannelDir = %q, want expanded path", cfg.ChannelDir)
	}
	if cfg.CaptureDir != "${UNSET_BRIDGE_VAR}/captures" {
		t.Fatalf("CaptureDir = %q, want unresolved placeholder kept", cfg.CaptureDir)
	}
}

func TestLoadFromRejectsMalformedTOML(t *testing.T) {
	clearOverrides(t)
	path := writeConfig(t, "channel_dir = [broken")

	if _, err := LoadFrom(path); err == nil {
		t.Fatal("LoadFrom() error = nil, want parse error")
	}
}

func TestSaveToRoundTrips(t *testing.T) {
	clearOverrides(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := &Config{
		ChannelDir:      "/srv/bridge/channel",
		PollInterval:    "75ms",
		MaxPayloadBytes: 4096,
	}

	if err := SaveTo(path, cfg); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if loaded.ChannelDir != cfg.ChannelDir {
		t.Fatalf("ChannelDir = %q, want %q", loaded.ChannelDir, cfg.ChannelDir)
	}
	if loaded.PollInterval != "75ms" {
		t.Fatalf("PollInterval = %q, want 75ms", loaded.PollInterval)
	}
	if loaded.MaxPayloadBytes != 4096 {
		t.Fatalf("MaxPayloadBytes = %d, want 4096", loaded.MaxPayloadBytes)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat config: %v", err)
	}
	if got := info.Mode().Perm(); got != 0600 {
		t.Fatalf("config file mode = %o, want 600", got)
	}
}
