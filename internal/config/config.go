package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the sms-retriever daemon.
type Config struct {
	Retriever RetrieverConfig `toml:"retriever"`
	Delivery  DeliveryConfig  `toml:"delivery"`
	Webhook   WebhookConfig   `toml:"webhook"`
	Gateway   GatewayConfig   `toml:"gateway"`
	Inbox     InboxConfig     `toml:"inbox"`
	Security  SecurityConfig  `toml:"security"`
	State     StateConfig     `toml:"state"`
	Log       LogConfig       `toml:"log"`
}

type RetrieverConfig struct {
	Enabled     bool   `toml:"enabled"`
	AppHash     string `toml:"app_hash"`
	PackageName string `toml:"package_name"`
	SigningCert string `toml:"signing_cert"`
	Window      int    `toml:"window"` // seconds
}

type DeliveryConfig struct {
	Mode         string `toml:"mode"`
	PollInterval int    `toml:"poll_interval"`
	PollFallback bool   `toml:"poll_fallback"`
}

type WebhookConfig struct {
	Addr   string `toml:"addr"`
	Secret string `toml:"secret"`
	Funnel bool   `toml:"funnel"`
}

type GatewayConfig struct {
	URL     string `toml:"url"`
	Token   string `toml:"token"`
	Forward bool   `toml:"forward"`
}

type InboxConfig struct {
	URL    string `toml:"url"`
	APIKey string `toml:"api_key"`
}

type SecurityConfig struct {
	Mode       string   `toml:"mode"`
	Allow      []string `toml:"allow"`
	RateLimit  int      `toml:"rate_limit"`
	RateWindow int      `toml:"rate_window"` // seconds
}

type StateConfig struct {
	Dir string `toml:"dir"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

func defaults() Config {
	home := os.Getenv("HOME")
	return Config{
		Retriever: RetrieverConfig{
			Enabled: true,
			Window:  300,
		},
		Delivery: DeliveryConfig{
			Mode:         "webhook",
			PollInterval: 30,
		},
		Webhook: WebhookConfig{
			Addr: ":18791",
		},
		Gateway: GatewayConfig{
			URL: "ws://127.0.0.1:18789",
		},
		Security: SecurityConfig{
			Mode:       "open",
			RateLimit:  10,
			RateWindow: 60,
		},
		State: StateConfig{
			Dir: filepath.Join(home, ".config", "sms-retriever"),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads configuration from the TOML config file (if it exists), loads a
// .env file from the working directory (if present) and applies environment
// variable overrides. Env vars always win.
//
// Config file resolution: SMSR_CONFIG env var → ~/.config/sms-retriever/config.toml → skip.
func Load() (*Config, error) {
	cfg := defaults()

	// A missing .env is the common case.
	_ = godotenv.Load()

	path := configPath()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return nil, err
			}
		}
	}

	applyEnv(&cfg)
	return &cfg, nil
}

func configPath() string {
	if p := os.Getenv("SMSR_CONFIG"); p != "" {
		return expandHome(p)
	}
	home := os.Getenv("HOME")
	if home == "" {
		return ""
	}
	return filepath.Join(home, ".config", "sms-retriever", "config.toml")
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SMSR_ENABLED"); v != "" {
		cfg.Retriever.Enabled = v == "true"
	}
	if v := os.Getenv("SMSR_APP_HASH"); v != "" {
		cfg.Retriever.AppHash = v
	}
	if v := os.Getenv("SMSR_PACKAGE_NAME"); v != "" {
		cfg.Retriever.PackageName = v
	}
	if v := os.Getenv("SMSR_SIGNING_CERT"); v != "" {
		cfg.Retriever.SigningCert = v
	}
	if v := os.Getenv("SMSR_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retriever.Window = n
		}
	}

	if v := os.Getenv("SMSR_MODE"); v != "" {
		cfg.Delivery.Mode = strings.ToLower(v)
	}
	if v := os.Getenv("SMSR_POLL_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Delivery.PollInterval = n
		}
	}
	if v := os.Getenv("SMSR_POLL_FALLBACK"); v != "" {
		cfg.Delivery.PollFallback = v == "true"
	}

	if v := os.Getenv("SMSR_WEBHOOK_ADDR"); v != "" {
		cfg.Webhook.Addr = v
	}
	if v := os.Getenv("SMSR_WEBHOOK_SECRET"); v != "" {
		cfg.Webhook.Secret = v
	}
	if v := os.Getenv("SMSR_WEBHOOK_FUNNEL"); v != "" {
		cfg.Webhook.Funnel = v == "true"
	}

	if v := os.Getenv("SMSR_GATEWAY_URL"); v != "" {
		cfg.Gateway.URL = v
	}
	if v := os.Getenv("SMSR_GATEWAY_TOKEN"); v != "" {
		cfg.Gateway.Token = v
	}
	if v := os.Getenv("SMSR_GATEWAY_FORWARD"); v != "" {
		cfg.Gateway.Forward = v == "true"
	}

	if v := os.Getenv("SMSR_INBOX_URL"); v != "" {
		cfg.Inbox.URL = v
	}
	if v := os.Getenv("SMSR_INBOX_API_KEY"); v != "" {
		cfg.Inbox.APIKey = v
	}

	if v := os.Getenv("SMSR_SECURITY_MODE"); v != "" {
		cfg.Security.Mode = v
	}
	if v := os.Getenv("SMSR_ALLOW"); v != "" {
		cfg.Security.Allow = splitList(v)
	}

	if v := os.Getenv("SMSR_STATE_DIR"); v != "" {
		cfg.State.Dir = v
	}
	if v := os.Getenv("SMSR_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("SMSR_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// Validate normalises values that are out of range or unknown. It never fails
// on a missing optional section; sources that need a field check it themselves.
func (c *Config) Validate() error {
	if c.Delivery.PollInterval < 5 {
		c.Delivery.PollInterval = 30
	}
	if c.Retriever.Window <= 0 {
		c.Retriever.Window = 300
	}

	mode := strings.ToLower(c.Delivery.Mode)
	switch mode {
	case "webhook", "gateway", "polling", "all":
		c.Delivery.Mode = mode
	default:
		c.Delivery.Mode = "webhook"
	}

	switch strings.ToLower(c.Security.Mode) {
	case "allowlist":
		c.Security.Mode = "allowlist"
	default:
		c.Security.Mode = "open"
	}
	if c.Security.RateLimit <= 0 {
		c.Security.RateLimit = 10
	}
	if c.Security.RateWindow <= 0 {
		c.Security.RateWindow = 60
	}

	return nil
}

// UsesSource reports whether the delivery mode enables the named source.
func (c *Config) UsesSource(name string) bool {
	if c.Delivery.Mode == "all" {
		return true
	}
	if name == "polling" && c.Delivery.PollFallback {
		return true
	}
	return c.Delivery.Mode == name
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home := os.Getenv("HOME"); home != "" {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
