// Package config resolves tempdash settings from flags, environment
// (TEMPDASH_*) and an optional YAML config file via viper.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Keys shared by flags, env vars and the config file.
const (
	KeyAPIBaseURL = "api_base_url"
	KeyAPIPrefix  = "api_prefix"
	KeySocketURL  = "socket_url"
	KeyTimeout    = "timeout"
	KeyLogLevel   = "log_level"
	KeyLogFormat  = "log_format"
	KeyLogFile    = "log_file"
	KeyDataDir    = "data_dir"
	KeyRecord     = "record"
	KeyTimezone   = "timezone"
)

const EnvPrefix = "TEMPDASH"

type Config struct {
	APIBaseURL string        `mapstructure:"api_base_url"` // backend origin, e.g. http://localhost:8000
	APIPrefix  string        `mapstructure:"api_prefix"`   // REST path prefix, e.g. /api
	SocketURL  string        `mapstructure:"socket_url"`   // push channel origin (defaults to api_base_url)
	Timeout    time.Duration `mapstructure:"timeout"`      // per-request HTTP timeout
	LogLevel   string        `mapstructure:"log_level"`
	LogFormat  string        `mapstructure:"log_format"` // console or json
	LogFile    string        `mapstructure:"log_file"`   // TUI log destination
	DataDir    string        `mapstructure:"data_dir"`   // reading cache directory
	Record     bool          `mapstructure:"record"`     // cache loaded readings on disk
	Timezone   string        `mapstructure:"timezone"`   // IANA zone for bucketing, empty = local

	location *time.Location
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyAPIBaseURL, "http://localhost:8000")
	v.SetDefault(KeyAPIPrefix, "/api")
	v.SetDefault(KeySocketURL, "")
	v.SetDefault(KeyTimeout, 10*time.Second)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyDataDir, "")
	v.SetDefault(KeyRecord, true)
	v.SetDefault(KeyTimezone, "")
}

// DefaultPath returns ~/.config/tempdash/config.yaml (or the platform
// equivalent).
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "tempdash", "config.yaml")
}

// ReadFile points v at path (or the default location) and reads it. A
// missing default file is not an error; a missing explicit file is.
func ReadFile(v *viper.Viper, path string) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
		if path == "" {
			return nil
		}
		if _, err := os.Stat(path); err != nil {
			return nil
		}
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	return nil
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	if cfg.SocketURL == "" {
		cfg.SocketURL = cfg.APIBaseURL
	}
	if cfg.APIPrefix != "" && !strings.HasPrefix(cfg.APIPrefix, "/") {
		cfg.APIPrefix = "/" + cfg.APIPrefix
	}
	cfg.APIPrefix = strings.TrimRight(cfg.APIPrefix, "/")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	for key, raw := range map[string]string{KeyAPIBaseURL: c.APIBaseURL, KeySocketURL: c.SocketURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return fmt.Errorf("%s: invalid URL %q", key, raw)
		}
		switch u.Scheme {
		case "http", "https", "ws", "wss":
		default:
			return fmt.Errorf("%s: unsupported scheme %q", key, u.Scheme)
		}
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("%s must be positive", KeyTimeout)
	}

	c.location = time.Local
	if c.Timezone != "" {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return fmt.Errorf("%s: %w", KeyTimezone, err)
		}
		c.location = loc
	}
	return nil
}

// APIURL is the REST base: origin plus prefix.
func (c *Config) APIURL() string { return c.APIBaseURL + c.APIPrefix }

// Location is the zone used for calendar bucketing.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}
