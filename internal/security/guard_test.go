package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Enriquefft/openclaw-sms-retriever/internal/config"
)

func testCfg() config.SecurityConfig {
	return config.SecurityConfig{
		Mode:       "allowlist",
		Allow:      []string{"+1 (555) 000-1111", "MyBank"},
		RateLimit:  3,
		RateWindow: 60,
	}
}

func TestAllowlistAllow(t *testing.T) {
	g := New(testCfg())
	assert.Equal(t, Allow, g.Check("+15550001111"))
	assert.Equal(t, Allow, g.Check("MyBank"))
}

func TestAllowlistDeny(t *testing.T) {
	g := New(testCfg())
	assert.Equal(t, Deny, g.Check("+19999999999"))
}

func TestOpenModeAllowsAnyone(t *testing.T) {
	cfg := testCfg()
	cfg.Mode = "open"
	g := New(cfg)
	assert.Equal(t, Allow, g.Check("+19999999999"))
}

func TestRateLimit(t *testing.T) {
	g := New(testCfg())
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.Equal(t, Allow, g.Check("+15550001111"), "message %d", i+1)
	}
	assert.Equal(t, RateLimited, g.Check("+15550001111"))

	now = now.Add(61 * time.Second)
	assert.Equal(t, Allow, g.Check("+15550001111"), "new window")
}

func TestNoRateLimit(t *testing.T) {
	cfg := testCfg()
	cfg.RateLimit = 0
	g := New(cfg)
	for i := 0; i < 20; i++ {
		assert.Equal(t, Allow, g.Check("MyBank"))
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "+15550001111", Normalize("+1 (555) 000-1111"))
	assert.Equal(t, "15550001111", Normalize("1-555-000-1111"))
	assert.Equal(t, "MyBank", Normalize("MyBank"))
	assert.Equal(t, "", Normalize(""))
}

func TestVerdictString(t *testing.T) {
	assert.Equal(t, "allow", Allow.String())
	assert.Equal(t, "deny", Deny.String())
	assert.Equal(t, "rate_limited", RateLimited.String())
}
