package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("SMSR_CONFIG", "")
	// Keep godotenv away from any .env next to the package.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(home))
	t.Cleanup(func() { os.Chdir(wd) })
	return home
}

func TestLoadDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Retriever.Enabled)
	assert.Equal(t, 300, cfg.Retriever.Window)
	assert.Equal(t, "webhook", cfg.Delivery.Mode)
	assert.Equal(t, ":18791", cfg.Webhook.Addr)
	assert.Equal(t, filepath.Join(home, ".config", "sms-retriever"), cfg.State.Dir)
}

func TestLoadFileThenEnv(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "custom.toml")
	body := `
[retriever]
app_hash = "FA+9qCX9VSu"
window = 120

[delivery]
mode = "gateway"

[security]
mode = "allowlist"
allow = ["+15550001111"]
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("SMSR_CONFIG", path)
	t.Setenv("SMSR_WINDOW", "60")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "FA+9qCX9VSu", cfg.Retriever.AppHash)
	assert.Equal(t, 60, cfg.Retriever.Window, "env wins over file")
	assert.Equal(t, "gateway", cfg.Delivery.Mode)
	assert.Equal(t, []string{"+15550001111"}, cfg.Security.Allow)
}

func TestLoadDotEnv(t *testing.T) {
	home := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(home, ".env"), []byte("SMSR_APP_HASH=fromdotenv1\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("SMSR_APP_HASH") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "fromdotenv1", cfg.Retriever.AppHash)
}

func TestLoadInvalidFile(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[retriever\n"), 0o600))
	t.Setenv("SMSR_CONFIG", path)

	_, err := Load()
	assert.Error(t, err)
}

func TestValidateNormalises(t *testing.T) {
	cfg := Config{
		Delivery: DeliveryConfig{Mode: "CARRIER-PIGEON", PollInterval: 1},
		Security: SecurityConfig{Mode: "whatever"},
	}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "webhook", cfg.Delivery.Mode)
	assert.Equal(t, 30, cfg.Delivery.PollInterval)
	assert.Equal(t, 300, cfg.Retriever.Window)
	assert.Equal(t, "open", cfg.Security.Mode)
	assert.Equal(t, 10, cfg.Security.RateLimit)
}

func TestUsesSource(t *testing.T) {
	cfg := Config{Delivery: DeliveryConfig{Mode: "webhook", PollFallback: true}}
	assert.True(t, cfg.UsesSource("webhook"))
	assert.True(t, cfg.UsesSource("polling"))
	assert.False(t, cfg.UsesSource("gateway"))

	cfg.Delivery.Mode = "all"
	assert.True(t, cfg.UsesSource("gateway"))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"+1", "+2"}, splitList(" +1, ,+2 "))
	assert.Nil(t, splitList(""))
}
