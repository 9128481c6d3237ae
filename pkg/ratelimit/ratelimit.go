// Package ratelimit provides in-memory sliding-window rate limiting
// keyed by (client, route class).
//
// Routes are classified by an ordered list of prefix [Rule]s; the first
// matching prefix in declaration order applies and unmatched routes are
// unlimited. Admission prunes the recorded timestamps for the matching
// (client, rule) pair to the trailing window and rejects once the quota
// is reached. Rejected attempts are not recorded, so a saturating client
// does not push its own window forward.
//
// State lives in process memory only: it does not survive restarts and
// is not shared across horizontally-scaled instances.
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	lverr "github.com/LetterVault/lettervault-core/pkg/errors"
)

// UnknownClientKey is the shared sentinel key used when a client's
// network address cannot be determined. Unidentified clients degrade to
// a shared quota rather than an unlimited one.
const UnknownClientKey = "unknown"

// ---------------------------------------------------------------------------
// Rules
// ---------------------------------------------------------------------------

// Rule limits requests to routes under a path prefix.
type Rule struct {
	// Prefix is the route prefix this rule applies to (e.g., "/auth").
	Prefix string `json:"prefix" yaml:"prefix"`

	// MaxRequests is the number of requests allowed per window.
	MaxRequests int `json:"max_requests" yaml:"max_requests"`

	// Window is the sliding window duration.
	Window time.Duration `json:"window" yaml:"window"`
}

// DefaultRules returns the production rule set: authentication routes
// are limited to 5 requests per minute per client, mail routes to 10.
func DefaultRules() []Rule {
	return []Rule{
		{Prefix: "/auth", MaxRequests: 5, Window: time.Minute},
		{Prefix: "/mail", MaxRequests: 10, Window: time.Minute},
	}
}

// ---------------------------------------------------------------------------
// Limiter
// ---------------------------------------------------------------------------

// Limiter is an in-memory sliding-window rate limiter. It is safe for
// concurrent use by multiple goroutines; a single mutex guards the
// timestamp map so concurrent checks from the same client cannot lose
// updates and over-admit.
type Limiter struct {
	rules []Rule
	now   func() time.Time

	mu      sync.Mutex
	entries map[limiterKey][]time.Time
}

// limiterKey identifies one client's usage of one rule.
type limiterKey struct {
	client string
	prefix string
}

// LimiterOption customizes a [Limiter].
type LimiterOption func(*Limiter)

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) LimiterOption {
	return func(l *Limiter) { l.now = now }
}

// NewLimiter creates a Limiter with the given rules. Rules are evaluated
// in declaration order and the first matching prefix wins, so more
// specific prefixes must be listed before less specific ones.
func NewLimiter(rules []Rule, opts ...LimiterOption) *Limiter {
	l := &Limiter{
		rules:   rules,
		now:     time.Now,
		entries: make(map[limiterKey][]time.Time),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Admit checks whether the client may access the route. Routes that
// match no rule are always admitted. On success the request is recorded
// against the matching rule's window; on rejection nothing is recorded
// and a *[lverr.Error] with code [lverr.CodeRateLimited] is returned.
// An empty clientKey degrades to [UnknownClientKey].
func (l *Limiter) Admit(clientKey, route string) error {
	rule, ok := l.match(route)
	if !ok {
		return nil
	}
	if clientKey == "" {
		clientKey = UnknownClientKey
	}

	key := limiterKey{client: clientKey, prefix: rule.Prefix}
	now := l.now()
	cutoff := now.Add(-rule.Window)

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := pruneBefore(l.entries[key], cutoff)

	if len(kept) >= rule.MaxRequests {
		l.entries[key] = kept
		return lverr.Newf(lverr.CodeRateLimited,
			"ratelimit: quota of %d requests per %s exhausted for %q",
			rule.MaxRequests, rule.Window, rule.Prefix)
	}

	l.entries[key] = append(kept, now)
	return nil
}

// match returns the first rule whose prefix matches the route.
func (l *Limiter) match(route string) (Rule, bool) {
	for _, rule := range l.rules {
		if strings.HasPrefix(route, rule.Prefix) {
			return rule, true
		}
	}
	return Rule{}, false
}

// pruneBefore drops timestamps at or before the cutoff. Timestamps are
// appended in order, so the first retained index bounds the window.
func pruneBefore(stamps []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(stamps) && !stamps[idx].After(cutoff) {
		idx++
	}
	if idx == 0 {
		return stamps
	}
	// Copy forward so released timestamps do not pin the backing array.
	kept := make([]time.Time, len(stamps)-idx)
	copy(kept, stamps[idx:])
	return kept
}

// Sweep removes entries whose every timestamp has aged out of its
// rule's window. Admit prunes lazily per key; Sweep reclaims memory for
// clients that stopped sending requests entirely.
func (l *Limiter) Sweep() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, stamps := range l.entries {
		window := l.windowFor(key.prefix)
		kept := pruneBefore(stamps, now.Add(-window))
		if len(kept) == 0 {
			delete(l.entries, key)
			continue
		}
		l.entries[key] = kept
	}
}

// windowFor returns the window of the rule with the given prefix.
func (l *Limiter) windowFor(prefix string) time.Duration {
	for _, rule := range l.rules {
		if rule.Prefix == prefix {
			return rule.Window
		}
	}
	return 0
}

// StartSweeping runs Sweep at the given interval until the context is
// cancelled. Run it in a goroutine at startup:
//
//	go limiter.StartSweeping(ctx, time.Minute)
func (l *Limiter) StartSweeping(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// ---------------------------------------------------------------------------
// HTTP integration
// ---------------------------------------------------------------------------

// ClientKey extracts the client's network address from the request,
// preferring Cloudflare's CF-Connecting-IP header, then X-Forwarded-For,
// and falling back to RemoteAddr. When no address can be determined it
// returns [UnknownClientKey].
func ClientKey(r *http.Request) string {
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// First IP in the chain is the original client.
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return UnknownClientKey
	}
	return host
}

// Middleware returns an HTTP middleware that checks admission for every
// request before passing it on. Rejected requests receive HTTP 429.
func Middleware(limiter *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := limiter.Admit(ClientKey(r), r.URL.Path); err != nil {
				status := http.StatusTooManyRequests
				if e, ok := lverr.AsError(err); ok {
					status = e.HTTPStatus()
				}
				http.Error(w, "too many requests", status)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
