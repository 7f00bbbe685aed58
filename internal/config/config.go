// Package config provides ronin's configuration surface: defaults,
// RONIN_* environment variables, an optional config file, and cobra
// flag bindings, merged through viper.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type Config struct {
	DataDir       string              `mapstructure:"data_dir"`
	KeyName       string              `mapstructure:"key_name"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Events        EventsConfig        `mapstructure:"events"`
	Archive       ArchiveConfig       `mapstructure:"archive"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type StorageConfig struct {
	State BackendConfig `mapstructure:"state"`
}

type BackendConfig struct {
	Backend string            `mapstructure:"backend"`
	Config  map[string]string `mapstructure:"config"`
}

// EventsConfig selects the event sink. Sink is one of "log", "redis",
// or "none".
type EventsConfig struct {
	Sink   string            `mapstructure:"sink"`
	Config map[string]string `mapstructure:"config"`
}

// ArchiveConfig holds the S3 settings for ledger snapshots.
type ArchiveConfig struct {
	Config map[string]string `mapstructure:"config"`
}

type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	LogFormat      string `mapstructure:"log_format"`
	MetricsAddr    string `mapstructure:"metrics_addr"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPProtocol   string `mapstructure:"otlp_protocol"`
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`
}

// DefaultDataDir returns the default data directory (~/.ronin).
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ronin"
	}
	return filepath.Join(home, ".ronin")
}

// ResolvedDataDir returns the data directory from config, or the default.
func (c Config) ResolvedDataDir() string {
	if c.DataDir != "" {
		return c.DataDir
	}
	return DefaultDataDir()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("key_name", "")

	v.SetDefault("storage.state.backend", "badger")

	v.SetDefault("events.sink", "log")

	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.log_format", "text")
	v.SetDefault("observability.metrics_addr", ":9090")
	v.SetDefault("observability.otlp_endpoint", "")
	v.SetDefault("observability.otlp_protocol", "http")
	v.SetDefault("observability.service_name", "ronin")
	v.SetDefault("observability.service_version", "dev")
}

// BindCommonFlags binds the flags every command shares to viper.
func BindCommonFlags(cmd *cobra.Command, v *viper.Viper) {
	f := cmd.PersistentFlags()
	f.String("data-dir", "", "data directory (default ~/.ronin)")
	f.String("key", "", "keyring alias or public key hex to act as")
	f.String("backend", "", "state backend (memory, badger, sqlite, redis)")
	f.String("config", "", "config file path")
	f.String("log-level", "", "log level (debug, info, warn, error)")
	f.String("log-format", "", "log format (json, text)")

	_ = v.BindPFlag("data_dir", f.Lookup("data-dir"))
	_ = v.BindPFlag("key_name", f.Lookup("key"))
	_ = v.BindPFlag("storage.state.backend", f.Lookup("backend"))
	_ = v.BindPFlag("observability.log_level", f.Lookup("log-level"))
	_ = v.BindPFlag("observability.log_format", f.Lookup("log-format"))
}

// BindWatchFlags binds flags specific to long-running commands.
func BindWatchFlags(cmd *cobra.Command, v *viper.Viper) {
	f := cmd.Flags()
	f.String("metrics-addr", "", "metrics HTTP listen address")
	f.String("events", "", "event sink (log, redis, none)")

	_ = v.BindPFlag("observability.metrics_addr", f.Lookup("metrics-addr"))
	_ = v.BindPFlag("events.sink", f.Lookup("events"))
}

// Load reads config from flags, env, and file, returning the merged Config.
func Load(v *viper.Viper, configFile string) (Config, error) {
	setDefaults(v)

	v.SetEnvPrefix("RONIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("ronin")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.ronin")
		v.AddConfigPath("/etc/ronin")
	}

	// A discovered file may legitimately be absent, but a file that
	// exists and fails to parse is an error however it was located.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
