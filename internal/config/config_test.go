package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orrn/printflow/internal/config"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Queue.RetryDelay)
	assert.Equal(t, 30*time.Second, cfg.Queue.PrinterRetryDelay)
	assert.Equal(t, 5*time.Minute, cfg.Queue.MaxRetryDelay)
	assert.Equal(t, "A", cfg.Delivery.StartLetter)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "printflow.yaml")
	content := `
server:
  port: 9090
queue:
  retry_delay: 5s
  printer_retry_delay: 45s
  max_retry_delay: 2m
printer:
  name: office-laser
  settle_delay: 3s
delivery:
  start_letter: K
webhooks:
  - url: http://hooks.local/print
    secret: shh
    events: [job_completed]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Queue.RetryDelay)
	assert.Equal(t, 45*time.Second, cfg.Queue.PrinterRetryDelay)
	assert.Equal(t, "office-laser", cfg.Printer.Name)
	assert.Equal(t, 3*time.Second, cfg.Printer.SettleDelay)
	assert.Equal(t, "K", cfg.Delivery.StartLetter)
	require.Len(t, cfg.Webhooks, 1)
	assert.Equal(t, []string{"job_completed"}, cfg.Webhooks[0].Events)

	// Untouched sections keep their defaults.
	assert.Equal(t, "./data/queue.json", cfg.Storage.QueuePath)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PRINTFLOW_PORT", "7070")
	t.Setenv("PRINTFLOW_PRINTER", "warehouse")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "warehouse", cfg.Printer.Name)
}

func TestValidate(t *testing.T) {
	base := func() *config.Config {
		cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"bad port", func(c *config.Config) { c.Server.Port = 0 }},
		{"empty queue path", func(c *config.Config) { c.Storage.QueuePath = "" }},
		{"zero retry delay", func(c *config.Config) { c.Queue.RetryDelay = 0 }},
		{"cap below base", func(c *config.Config) { c.Queue.MaxRetryDelay = time.Second }},
		{"negative settle delay", func(c *config.Config) { c.Printer.SettleDelay = -time.Second }},
		{"lowercase start letter", func(c *config.Config) { c.Delivery.StartLetter = "a" }},
		{"multi-char start letter", func(c *config.Config) { c.Delivery.StartLetter = "AB" }},
		{"webhook without url", func(c *config.Config) { c.Webhooks = []config.WebhookConfig{{Secret: "x"}} }},
		{"bad log level", func(c *config.Config) { c.Logging.Level = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
