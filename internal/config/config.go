package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds every runtime setting. Values are resolved once at
// startup from defaults, an optional YAML file, and HOOKCATCH_*
// environment variables, and are read-only afterwards.
type Config struct {
	ListenAddr   string // HTTP bind address, e.g. ":8080"
	DatabasePath string // SQLite database file, ":memory:" for tests
	MaxBodyBytes int64  // webhook payload cap; larger bodies get 413
	LogLevel     string // zerolog level name
	LogPretty    bool   // console writer instead of JSON
	ServiceName  string // attached to every log line
}

// Load reads configuration from the given file (optional) with
// environment overrides. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("database_path", "hookcatch.db")
	v.SetDefault("max_body_bytes", int64(16*1024*1024))
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)
	v.SetDefault("service_name", "hookcatch")

	v.SetEnvPrefix("HOOKCATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		ListenAddr:   v.GetString("listen_addr"),
		DatabasePath: v.GetString("database_path"),
		MaxBodyBytes: v.GetInt64("max_body_bytes"),
		LogLevel:     v.GetString("log_level"),
		LogPretty:    v.GetBool("log_pretty"),
		ServiceName:  v.GetString("service_name"),
	}

	if cfg.MaxBodyBytes <= 0 {
		return nil, fmt.Errorf("max_body_bytes must be positive, got %d", cfg.MaxBodyBytes)
	}
	return cfg, nil
}
