package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "database", cfg.Store.Driver)
	assert.Equal(t, "remote", cfg.Normalizer.Provider)
	assert.Equal(t, 60*time.Second, cfg.Normalizer.Endpoint.Timeout)
	assert.Equal(t, 4, cfg.Ingest.Workers)
	assert.Equal(t, 5*time.Second, cfg.Ingest.RecordTimeout)
	assert.Equal(t, int64(20<<20), cfg.Ingest.MaxUploadBytes())
	assert.True(t, cfg.Jobs.Persist)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("NORMALIZER_API_KEY", "secret")
	t.Setenv("STORE_BASE_URL", "http://store:8081")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, "store:\n  driver: http\n"))
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Normalizer.Endpoint.APIKey)
	assert.Equal(t, "http://store:8081", cfg.Store.Endpoint.BaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadResolvesEndpointEnvReferences(t *testing.T) {
	t.Setenv("MY_NORMALIZER_URL", "http://norm:9000")

	cfg, err := Load(writeConfig(t, `
normalizer:
  endpoint:
    base_url: ""
    base_url_env: MY_NORMALIZER_URL
`))
	require.NoError(t, err)
	assert.Equal(t, "http://norm:9000", cfg.Normalizer.Endpoint.BaseURL)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database:   DatabaseConfig{Driver: "sqlite"},
			Store:      StoreConfig{Driver: "database"},
			Normalizer: NormalizerConfig{Provider: "local"},
			Ingest:     IngestConfig{Workers: 1},
		}
	}
	require.NoError(t, valid().Validate())

	cases := map[string]func(*Config){
		"unknown database":  func(c *Config) { c.Database.Driver = "mysql" },
		"unknown store":     func(c *Config) { c.Store.Driver = "redis" },
		"http store no url": func(c *Config) { c.Store.Driver = "http"; c.Store.Endpoint.Timeout = time.Second },
		"remote no timeout": func(c *Config) {
			c.Normalizer.Provider = "remote"
			c.Normalizer.Endpoint.BaseURL = "http://n"
		},
		"unknown provider": func(c *Config) { c.Normalizer.Provider = "ai" },
		"no workers":       func(c *Config) { c.Ingest.Workers = 0 },
		"storage bucket":   func(c *Config) { c.Storage.Enabled = true },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDSN(t *testing.T) {
	pg := DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", DBName: "leadflow", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=leadflow sslmode=disable", pg.DSN())

	lite := DatabaseConfig{Driver: "sqlite", Path: "/tmp/x.db"}
	assert.Equal(t, "/tmp/x.db?_busy_timeout=5000", lite.DSN())
}
