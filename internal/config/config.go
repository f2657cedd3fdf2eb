// Package config loads server and CLI settings with viper.
//
// Precedence, highest first:
//
//  1. environment variables: the key upper-cased with "." replaced by "_",
//     so db.path is DB_PATH and jwt.secret is JWT_SECRET
//  2. the config file, if one is given (YAML, TOML or JSON by extension)
//  3. the defaults below
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sakif/snippet-oracle/internal/search"
)

// Supported db.driver values.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Port   int
	DB     DBConfig
	JWT    JWTConfig
	Cookie CookieConfig
	Log    LogConfig
	Search SearchConfig
}

type DBConfig struct {
	Driver string
	Path   string // sqlite file, or ":memory:"
	DSN    string // postgres connection string
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

type CookieConfig struct {
	Secure bool
}

type LogConfig struct {
	Level slog.Level
}

type SearchConfig struct {
	Mode search.Mode
	// CacheSize is the number of cached queries; 0 turns the cache off.
	CacheSize int
	CacheTTL  time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("db.driver", DriverSQLite)
	v.SetDefault("db.path", "data/snippets.db")
	v.SetDefault("db.dsn", "")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.ttl", 24*time.Hour)
	v.SetDefault("cookie.secure", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("search.mode", search.ModeConjunctive.String())
	v.SetDefault("search.cache_size", 256)
	v.SetDefault("search.cache_ttl", 30*time.Second)
}

// Load reads configuration from path (optional; "" means defaults and
// environment only) and validates it.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port: v.GetInt("port"),
		DB: DBConfig{
			Driver: strings.ToLower(strings.TrimSpace(v.GetString("db.driver"))),
			Path:   v.GetString("db.path"),
			DSN:    v.GetString("db.dsn"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
			TTL:    v.GetDuration("jwt.ttl"),
		},
		Cookie: CookieConfig{Secure: v.GetBool("cookie.secure")},
		Search: SearchConfig{
			CacheSize: v.GetInt("search.cache_size"),
			CacheTTL:  v.GetDuration("search.cache_ttl"),
		},
	}

	var errs []error

	if err := cfg.Log.Level.UnmarshalText([]byte(v.GetString("log.level"))); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	mode, err := search.ParseMode(v.GetString("search.mode"))
	if err != nil {
		errs = append(errs, fmt.Errorf("search.mode: %w", err))
	}
	cfg.Search.Mode = mode

	if cfg.Port < 1 || cfg.Port > 65535 {
		errs = append(errs, fmt.Errorf("port: %d is out of range", cfg.Port))
	}

	switch cfg.DB.Driver {
	case DriverSQLite:
		if cfg.DB.Path == "" {
			errs = append(errs, errors.New("db.path: required for the sqlite driver"))
		}
	case DriverPostgres:
		if cfg.DB.DSN == "" {
			errs = append(errs, errors.New("db.dsn: required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("db.driver: unknown driver %q (want sqlite or postgres)", cfg.DB.Driver))
	}

	if cfg.JWT.TTL <= 0 {
		errs = append(errs, errors.New("jwt.ttl: must be positive"))
	}
	if cfg.Search.CacheSize < 0 {
		errs = append(errs, errors.New("search.cache_size: must not be negative"))
	}
	if cfg.Search.CacheTTL < 0 {
		errs = append(errs, errors.New("search.cache_ttl: must not be negative"))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
