package security

import (
	"sync"
	"time"

	"github.com/Enriquefft/openclaw-sms-retriever/internal/config"
)

// Verdict represents the outcome of a guard check.
type Verdict int

const (
	Allow Verdict = iota
	Deny
	RateLimited
)

func (v Verdict) String() string {
	switch v {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	default:
		return "rate_limited"
	}
}

// bucket tracks rate limit state for a single sender.
type bucket struct {
	tokens    int
	windowEnd time.Time
}

// Guard enforces the sender allowlist and per-sender rate limiting on inbound
// SMS before they are offered to the retrieval service.
type Guard struct {
	mode       string
	allowed    map[string]struct{}
	rateLimit  int
	rateWindow time.Duration
	now        func() time.Time
	mu         sync.Mutex
	buckets    map[string]*bucket
}

// New creates a Guard from the security config.
func New(cfg config.SecurityConfig) *Guard {
	allowed := make(map[string]struct{}, len(cfg.Allow))
	for _, phone := range cfg.Allow {
		allowed[Normalize(phone)] = struct{}{}
	}

	return &Guard{
		mode:       cfg.Mode,
		allowed:    allowed,
		rateLimit:  cfg.RateLimit,
		rateWindow: time.Duration(cfg.RateWindow) * time.Second,
		now:        time.Now,
		buckets:    make(map[string]*bucket),
	}
}

// Check returns Allow, Deny, or RateLimited for the given sender. Alphanumeric
// sender IDs ("MyBank") normalise to themselves.
func (g *Guard) Check(from string) Verdict {
	n := Normalize(from)

	if g.mode == "allowlist" {
		if _, ok := g.allowed[n]; !ok {
			return Deny
		}
	}

	if g.rateLimit <= 0 {
		return Allow
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	b, ok := g.buckets[n]
	if !ok || now.After(b.windowEnd) {
		g.buckets[n] = &bucket{
			tokens:    g.rateLimit - 1,
			windowEnd: now.Add(g.rateWindow),
		}
		return Allow
	}

	if b.tokens <= 0 {
		return RateLimited
	}
	b.tokens--
	return Allow
}

// Normalize strips all characters except digits and a leading + from phone
// numbers. Sender IDs containing letters are returned unchanged.
func Normalize(phone string) string {
	if phone == "" {
		return ""
	}

	for _, r := range phone {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return phone
		}
	}

	out := make([]rune, 0, len(phone))
	for i, r := range phone {
		if r == '+' && i == 0 {
			out = append(out, r)
		} else if r >= '0' && r <= '9' {
			out = append(out, r)
		}
	}
	return string(out)
}
