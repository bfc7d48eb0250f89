// Package config provides configuration loading for the resolver daemon.
//
// Configuration is loaded with the following priority (highest to lowest):
//  1. Environment variables (RECUDNS_* prefix)
//  2. YAML/TOML config file (if specified with --config)
//  3. Hardcoded defaults
//
// Environment variables are mapped from RECUDNS_CATEGORY_SETTING format,
// e.g., RECUDNS_LOCAL_SERVER_PORT maps to local_server.port in the file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// ServerSettings names a DNS endpoint: the client-facing listener when used
// for local_server, or the fixed upstream entrypoint when used for
// root_server.
type ServerSettings struct {
	Addr string
	Port int
}

// FullDomain returns the "host:port" form used to dial or bind this server.
func (s ServerSettings) FullDomain() string {
	return fmt.Sprintf("%s:%d", s.Addr, s.Port)
}

// DatabaseSettings locates the persistent cache's SQLite file and its
// migrations.
type DatabaseSettings struct {
	Path          string
	MigrationsDir string
}

// DBURL renders path as a sqlite:// URL, mirroring the format consumed by
// this ecosystem's SQL connection helpers.
func (d DatabaseSettings) DBURL() string {
	return "sqlite://" + d.Path
}

// LoggingSettings controls the ambient slog handler.
type LoggingSettings struct {
	Level      string
	Structured bool
}

// AdminSettings controls the optional introspection HTTP surface.
type AdminSettings struct {
	Enabled bool
	Addr    string
}

// ResolverSettings bounds the iterative resolution loop.
type ResolverSettings struct {
	MaxHops int
}

// Config is the fully resolved, validated configuration for one process run.
type Config struct {
	LocalServer ServerSettings
	RootServer  ServerSettings
	Database    DatabaseSettings
	Logging     LoggingSettings
	Admin       AdminSettings
	Resolver    ResolverSettings
	QueryTimeout time.Duration
}

// Load reads configuration from environment variables, configPath (if
// non-empty), and defaults, in that order of decreasing priority, and
// validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("RECUDNS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %q: %w", configPath, err)
		}
	}

	cfg := &Config{
		LocalServer: ServerSettings{
			Addr: v.GetString("local_server.addr"),
			Port: v.GetInt("local_server.port"),
		},
		RootServer: ServerSettings{
			Addr: v.GetString("root_server.addr"),
			Port: v.GetInt("root_server.port"),
		},
		Database: DatabaseSettings{
			Path:          v.GetString("database.path"),
			MigrationsDir: v.GetString("database.migrations_dir"),
		},
		Logging: LoggingSettings{
			Level:      strings.ToUpper(v.GetString("logging.level")),
			Structured: v.GetBool("logging.structured"),
		},
		Admin: AdminSettings{
			Enabled: v.GetBool("admin.enabled"),
			Addr:    v.GetString("admin.addr"),
		},
		Resolver: ResolverSettings{
			MaxHops: v.GetInt("resolver.max_hops"),
		},
		QueryTimeout: v.GetDuration("server.query_timeout"),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("local_server.addr", "0.0.0.0")
	v.SetDefault("local_server.port", 1053)

	v.SetDefault("root_server.addr", "198.41.0.4")
	v.SetDefault("root_server.port", 53)

	v.SetDefault("database.path", "instance/cache.sqlite")
	v.SetDefault("database.migrations_dir", "internal/cache/migrations")

	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.structured", false)

	v.SetDefault("admin.enabled", false)
	v.SetDefault("admin.addr", "127.0.0.1:8080")

	v.SetDefault("resolver.max_hops", 16)
	v.SetDefault("server.query_timeout", "4s")
}

func validate(cfg *Config) error {
	if cfg.LocalServer.Port <= 0 || cfg.LocalServer.Port > 65535 {
		return fmt.Errorf("config: local_server.port %d out of range", cfg.LocalServer.Port)
	}
	if cfg.RootServer.Addr == "" {
		return fmt.Errorf("config: root_server.addr must not be empty")
	}
	if cfg.Database.Path == "" {
		return fmt.Errorf("config: database.path must not be empty")
	}
	if cfg.Resolver.MaxHops <= 0 {
		return fmt.Errorf("config: resolver.max_hops must be positive")
	}
	if cfg.QueryTimeout <= 0 {
		return fmt.Errorf("config: server.query_timeout must be positive")
	}
	return nil
}

// UseTestDatabase replaces Database.Path with a fresh, randomly-named
// scratch database under dir, so repeated test runs never collide on a
// shared file.
func (c *Config) UseTestDatabase(dir string) {
	c.Database.Path = fmt.Sprintf("%s/%s.sqlite", dir, uuid.New().String())
}
