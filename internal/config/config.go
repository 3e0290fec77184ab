package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/BurntSushi/toml"
	env "github.com/caarlos0/env/v11"
	"github.com/capbridge/capbridge/internal/paths"
)

var envVarRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads the config file, applies CAPBRIDGE_* environment overrides and
// fills in defaults. A missing config file is not an error.
func Load() (*Config, error) {
	return LoadFrom(paths.ConfigFile())
}

// LoadFrom reads and parses a config file at the given path.
func LoadFrom(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// fall through to env overrides and defaults
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	cfg.ChannelDir = expandEnvVars(cfg.ChannelDir)
	cfg.CaptureDir = expandEnvVars(cfg.CaptureDir)
	if cfg.ChannelDir == "" {
		cfg.ChannelDir = paths.DefaultChannelDir()
	}
	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} with the value of the environment variable.
func expandEnvVars(s string) string {
	return envVarRe.ReplaceAllStringFunc(s, func(match string) string {
		name := envVarRe.FindStringSubmatch(match)[1]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match // leave unresolved vars as-is
	})
}
