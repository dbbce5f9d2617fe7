// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeVault Contributors

// Package config loads SafeVault settings from a YAML file, command-line
// flags and the environment.
//
// Precedence, lowest first: flag defaults, config file, explicitly set
// flags, DATABASE_URL. A .env file in the working directory is read into the
// environment before anything else and never overrides variables that are
// already set.
package config

import (
	"errors"
	"io/fs"
	"net"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/safevault/safevault/internal/auth"
	"github.com/safevault/safevault/internal/store"
	"github.com/safevault/safevault/internal/xdg"
)

// Token store backends.
const (
	TokenBackendMemory = "memory"
	TokenBackendRedis  = "redis"
)

// DatabaseURLEnv overrides database.url when set.
const DatabaseURLEnv = "DATABASE_URL"

// DotEnvFile is loaded from the working directory when present.
const DotEnvFile = ".env"

// Config holds all SafeVault settings.
type Config struct {
	HTTP         HTTPConfig         `koanf:"http"`
	Metrics      MetricsConfig      `koanf:"metrics"`
	Database     DatabaseConfig     `koanf:"database"`
	Log          LogConfig          `koanf:"log"`
	Tokens       TokensConfig       `koanf:"tokens"`
	CORS         CORSConfig         `koanf:"cors"`
	Registration RegistrationConfig `koanf:"registration"`
	Hasher       HasherConfig       `koanf:"hasher"`
}

// HTTPConfig configures the public API listener.
type HTTPConfig struct {
	Addr string `koanf:"addr"`
}

// MetricsConfig configures the observability listener. An empty address
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// DatabaseConfig names the credential store.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// LogConfig configures log output.
type LogConfig struct {
	Format string `koanf:"format"`
}

// TokensConfig selects and configures the session token store.
type TokensConfig struct {
	Backend       string        `koanf:"backend"`
	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	TTL           time.Duration `koanf:"ttl"`
}

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// RegistrationConfig controls self-service registration.
type RegistrationConfig struct {
	AllowRoleSelection bool `koanf:"allow_role_selection"`
}

// HasherConfig holds argon2id cost parameters.
type HasherConfig struct {
	Time      uint32 `koanf:"time"`
	MemoryKiB uint32 `koanf:"memory_kib"`
	Threads   uint8  `koanf:"threads"`
}

// Argon2Params converts the hasher settings.
func (h HasherConfig) Argon2Params() auth.Argon2Params {
	return auth.Argon2Params{Time: h.Time, MemoryKiB: h.MemoryKiB, Threads: h.Threads}
}

// Default values for flags.
const (
	defaultHTTPAddr    = "127.0.0.1:8080"
	defaultMetricsAddr = "127.0.0.1:9100"
	defaultLogFormat   = "json"
)

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"http-addr":            "http.addr",
	"metrics-addr":         "metrics.addr",
	"database-url":         "database.url",
	"log-format":           "log.format",
	"token-backend":        "tokens.backend",
	"redis-addr":           "tokens.redis_addr",
	"redis-password":       "tokens.redis_password",
	"token-ttl":            "tokens.ttl",
	"cors-allowed-origins": "cors.allowed_origins",
	"allow-role-selection": "registration.allow_role_selection",
	"hasher-time":          "hasher.time",
	"hasher-memory-kib":    "hasher.memory_kib",
	"hasher-threads":       "hasher.threads",
}

// RegisterFlags defines the configuration flags on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	hasher := auth.DefaultArgon2Params()

	fs.String("http-addr", defaultHTTPAddr, "HTTP API listen address")
	fs.String("metrics-addr", defaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	fs.String("database-url", "", "database URL (default: XDG_DATA_HOME/safevault/safevault.db)")
	fs.String("log-format", defaultLogFormat, "log format (json or text)")
	fs.String("token-backend", TokenBackendMemory, "session token store (memory or redis)")
	fs.String("redis-addr", "", "Redis address for the redis token backend")
	fs.String("redis-password", "", "Redis password")
	fs.Duration("token-ttl", 0, "session token lifetime in Redis (0 = until logout)")
	fs.StringSlice("cors-allowed-origins", nil, "origins allowed by CORS")
	fs.Bool("allow-role-selection", false, "let registrants choose a role other than user")
	fs.Uint32("hasher-time", hasher.Time, "argon2id iterations")
	fs.Uint32("hasher-memory-kib", hasher.MemoryKiB, "argon2id memory in KiB")
	fs.Uint8("hasher-threads", hasher.Threads, "argon2id parallelism")
}

// Load builds a Config. configPath may be empty, in which case the XDG
// config file is used when it exists. fs must have been populated by
// RegisterFlags and parsed.
func Load(configPath string, fs *pflag.FlagSet) (*Config, error) {
	if err := loadDotEnv(DotEnvFile); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	path, err := resolveConfigPath(configPath)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("path", path).Wrapf(err, "read config file")
		}
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_INVALID").Wrapf(err, "read flags")
		}
	}

	if url := strings.TrimSpace(os.Getenv(DatabaseURLEnv)); url != "" {
		if err := k.Set("database.url", url); err != nil {
			return nil, oops.Code("CONFIG_INVALID").Wrapf(err, "apply %s", DatabaseURLEnv)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrapf(err, "decode config")
	}
	if cfg.Database.URL == "" {
		cfg.Database.URL = xdg.DatabaseFile()
	}
	return &cfg, nil
}

func resolveConfigPath(configPath string) (string, error) {
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return "", oops.Code("CONFIG_INVALID").With("path", configPath).Wrapf(err, "config file")
		}
		return configPath, nil
	}
	path := xdg.ConfigFile()
	if _, err := os.Stat(path); err != nil {
		return "", nil
	}
	return path, nil
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return oops.Code("CONFIG_INVALID").With("path", path).Wrapf(err, "read env file")
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := validateAddr("http.addr", c.HTTP.Addr, true); err != nil {
		return err
	}
	if err := validateAddr("metrics.addr", c.Metrics.Addr, false); err != nil {
		return err
	}
	if _, _, err := store.ParseDSN(c.Database.URL); err != nil {
		return oops.With("key", "database.url").Wrap(err)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid("log.format", "must be 'json' or 'text', got %q", c.Log.Format)
	}

	switch c.Tokens.Backend {
	case TokenBackendMemory:
	case TokenBackendRedis:
		if c.Tokens.RedisAddr == "" {
			return invalid("tokens.redis_addr", "is required when tokens.backend is redis")
		}
		if err := validateAddr("tokens.redis_addr", c.Tokens.RedisAddr, true); err != nil {
			return err
		}
	default:
		return invalid("tokens.backend", "must be 'memory' or 'redis', got %q", c.Tokens.Backend)
	}
	if c.Tokens.TTL < 0 {
		return invalid("tokens.ttl", "must not be negative")
	}

	if err := c.Hasher.Argon2Params().Validate(); err != nil {
		return oops.With("key", "hasher").Wrap(err)
	}
	return nil
}

func validateAddr(key, addr string, required bool) error {
	if addr == "" {
		if required {
			return invalid(key, "is required")
		}
		return nil
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return invalid(key, "must be host:port, got %q", addr)
	}
	return nil
}

func invalid(key, format string, args ...any) error {
	return oops.Code("CONFIG_INVALID").With("key", key).Errorf(key+" "+format, args...)
}
