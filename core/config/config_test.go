package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
  admin_id: 42
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, "so'm", cfg.Shop.Currency)
	assert.Equal(t, 30, cfg.Shop.OrdersPageLimit)
	assert.Equal(t, 10, cfg.Database.MaxConnections)
}

func TestLoadRequiresToken(t *testing.T) {
	path := writeConfig(t, `
telegram:
  admin_id: 42
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "token")
}

func TestLoadRequiresAdminID(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "admin_id")
}

func TestNormalizeAcceptsPollingAlias(t *testing.T) {
	cfg := &Config{}
	cfg.Telegram.Token = "123:abc"
	cfg.Telegram.AdminID = 42
	cfg.Telegram.RunMode = "polling"

	require.NoError(t, Normalize(cfg))
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
}

func TestNormalizeWebhookValidation(t *testing.T) {
	cfg := &Config{}
	cfg.Telegram.Token = "123:abc"
	cfg.Telegram.AdminID = 42
	cfg.Telegram.RunMode = RunModeWebhook

	err := Normalize(cfg)
	assert.ErrorContains(t, err, "webhook.url")
}
