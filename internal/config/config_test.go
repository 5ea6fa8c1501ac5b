package config

import (
	"os"
	"path/filepath"
	"strings"
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

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
etsy:
  api_key: key
  store_id: "12345"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://openapi.etsy.com/v2/private", cfg.Etsy.BaseURL)
	assert.Equal(t, 25, cfg.Etsy.PageSize)
	assert.Equal(t, 3, cfg.Etsy.Retry.MaxAttempts)
	assert.Equal(t, 24*time.Hour, cfg.Sync.Interval)
	assert.Equal(t, DedupByListingID, cfg.Sync.DedupKey)
	assert.Equal(t, 4, cfg.Media.Concurrency)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.RabbitMQ.Enabled)
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_ETSY_API_KEY", "from-env")
	path := writeConfig(t, `
etsy:
  api_key: ${TEST_ETSY_API_KEY}
  store_id: "12345"
sync:
  interval: 1h
  dedup_key: title
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Etsy.APIKey)
	assert.Equal(t, time.Hour, cfg.Sync.Interval)
	assert.Equal(t, DedupByTitle, cfg.Sync.DedupKey)
}

func TestLoad_RequiresCredentials(t *testing.T) {
	path := writeConfig(t, `
etsy:
  store_id: "12345"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
}

func TestLoad_RejectsUnknownDedupKey(t *testing.T) {
	path := writeConfig(t, `
etsy:
  api_key: key
  store_id: "12345"
sync:
  dedup_key: sku
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dedup_key")
}

func TestLoad_RejectsNonPositiveValues(t *testing.T) {
	cases := map[string]string{
		"sync.interval":    "sync:\n  interval: -1h\n",
		"etsy.max_pages":   "etsy:\n  api_key: key\n  store_id: \"12345\"\n  max_pages: -1\n",
		"media.max_bytes":  "media:\n  max_bytes: -5\n",
		"etsy.page_size":   "etsy:\n  api_key: key\n  store_id: \"12345\"\n  page_size: -10\n",
		"sync.run_timeout": "sync:\n  run_timeout: -1m\n",
	}

	for field, extra := range cases {
		t.Run(field, func(t *testing.T) {
			body := extra
			if !strings.Contains(extra, "api_key") {
				body = "etsy:\n  api_key: key\n  store_id: \"12345\"\n" + extra
			}

			_, err := Load(writeConfig(t, body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), field)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "etsy", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=etsy sslmode=disable", d.DSN())
}
