// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeVault Contributors

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safevault/safevault/internal/auth"
	"github.com/safevault/safevault/pkg/errutil"
)

// isolate points XDG lookups and the working directory at empty temp dirs so
// the developer's own files never leak into a test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv(DatabaseURLEnv, "")
	t.Chdir(dir)
	return dir
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load("", newFlags(t))
	require.NoError(t, err)

	defaults := auth.DefaultArgon2Params()
	assert.Equal(t, defaultHTTPAddr, cfg.HTTP.Addr)
	assert.Equal(t, defaultMetricsAddr, cfg.Metrics.Addr)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, TokenBackendMemory, cfg.Tokens.Backend)
	assert.Equal(t, time.Duration(0), cfg.Tokens.TTL)
	assert.False(t, cfg.Registration.AllowRoleSelection)
	assert.Equal(t, defaults, cfg.Hasher.Argon2Params())
	assert.Equal(t, filepath.Join(dir, "data", "safevault", "safevault.db"), cfg.Database.URL)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FileOverridesFlagDefaults(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	writeFile(t, path, `
http:
  addr: 0.0.0.0:8443
database:
  url: postgres://vault:secret@db:5432/vault
tokens:
  backend: redis
  redis_addr: cache:6379
  ttl: 30m
cors:
  allowed_origins:
    - https://vault.example.com
registration:
  allow_role_selection: true
hasher:
  time: 2
  memory_kib: 32768
  threads: 2
`)

	cfg, err := Load(path, newFlags(t))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8443", cfg.HTTP.Addr)
	assert.Equal(t, defaultMetricsAddr, cfg.Metrics.Addr, "unset keys keep flag defaults")
	assert.Equal(t, "postgres://vault:secret@db:5432/vault", cfg.Database.URL)
	assert.Equal(t, TokenBackendRedis, cfg.Tokens.Backend)
	assert.Equal(t, "cache:6379", cfg.Tokens.RedisAddr)
	assert.Equal(t, 30*time.Minute, cfg.Tokens.TTL)
	assert.Equal(t, []string{"https://vault.example.com"}, cfg.CORS.AllowedOrigins)
	assert.True(t, cfg.Registration.AllowRoleSelection)
	assert.Equal(t, auth.Argon2Params{Time: 2, MemoryKiB: 32768, Threads: 2}, cfg.Hasher.Argon2Params())
	require.NoError(t, cfg.Validate())
}

func TestLoad_ExplicitFlagsOverrideFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "http:\n  addr: 0.0.0.0:8443\nlog:\n  format: json\n")

	cfg, err := Load(path, newFlags(t, "--http-addr", "127.0.0.1:9999", "--log-format", "text"))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9999", cfg.HTTP.Addr)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_XDGConfigFileUsedWhenPresent(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config", "safevault", "config.yaml"), "log:\n  format: text\n")

	cfg, err := Load("", newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	dir := isolate(t)

	_, err := Load(filepath.Join(dir, "nope.yaml"), newFlags(t))
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bad.yaml")
	writeFile(t, path, "http: [unclosed\n")

	_, err := Load(path, newFlags(t))
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}

func TestLoad_DatabaseURLEnvWins(t *testing.T) {
	isolate(t)
	t.Setenv(DatabaseURLEnv, "postgres://env@db/vault")

	cfg, err := Load("", newFlags(t, "--database-url", "flag.db"))
	require.NoError(t, err)
	assert.Equal(t, "postgres://env@db/vault", cfg.Database.URL)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := isolate(t)
	// godotenv never overrides set variables, so the variable must be absent.
	require.NoError(t, os.Unsetenv(DatabaseURLEnv))
	t.Cleanup(func() { _ = os.Unsetenv(DatabaseURLEnv) })
	writeFile(t, filepath.Join(dir, DotEnvFile), DatabaseURLEnv+"=sqlite://from-dotenv.db\n")

	cfg, err := Load("", newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, "sqlite://from-dotenv.db", cfg.Database.URL)
}

func validConfig() Config {
	return Config{
		HTTP:     HTTPConfig{Addr: "127.0.0.1:8080"},
		Metrics:  MetricsConfig{Addr: ""},
		Database: DatabaseConfig{URL: ":memory:"},
		Log:      LogConfig{Format: "json"},
		Tokens:   TokensConfig{Backend: TokenBackendMemory},
		Hasher:   HasherConfig{Time: 1, MemoryKiB: 64, Threads: 1},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantKey string
		code    string
	}{
		{"valid", func(*Config) {}, "", ""},
		{"missing http addr", func(c *Config) { c.HTTP.Addr = "" }, "http.addr", "CONFIG_INVALID"},
		{"bad http addr", func(c *Config) { c.HTTP.Addr = "localhost" }, "http.addr", "CONFIG_INVALID"},
		{"bad metrics addr", func(c *Config) { c.Metrics.Addr = "9100" }, "metrics.addr", "CONFIG_INVALID"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format", "CONFIG_INVALID"},
		{"unknown token backend", func(c *Config) { c.Tokens.Backend = "memcached" }, "tokens.backend", "CONFIG_INVALID"},
		{"redis without addr", func(c *Config) { c.Tokens.Backend = TokenBackendRedis }, "tokens.redis_addr", "CONFIG_INVALID"},
		{"negative ttl", func(c *Config) { c.Tokens.TTL = -time.Second }, "tokens.ttl", "CONFIG_INVALID"},
		{"bad database scheme", func(c *Config) { c.Database.URL = "mysql://db" }, "database.url", "INVALID_DSN"},
		{"bad hasher", func(c *Config) { c.Hasher.Time = 0 }, "hasher", "AUTH_INVALID_HASH_PARAMS"},
		{"redis with addr", func(c *Config) {
			c.Tokens.Backend = TokenBackendRedis
			c.Tokens.RedisAddr = "cache:6379"
		}, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.code == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.code)
			errutil.AssertErrorContext(t, err, "key", tt.wantKey)
		})
	}
}
