// Package trust holds the curated trusted-account set and classifies accounts
// against it.
//
// The set is replaced wholesale on refresh; readers always see a complete set
// and never block a refresh.
package trust

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"rugguard/internal/logging"
	"rugguard/internal/metrics"
)

// Level is the outcome of a classification.
type Level string

const (
	DirectlyTrusted  Level = "directly_trusted"
	NetworkBacked    Level = "network_backed"
	PartiallyVouched Level = "partially_vouched"
	NotVouched       Level = "not_vouched"
	Unknown          Level = "unknown"
)

// Decision is immutable once returned.
type Decision struct {
	Level       Level
	Trusted     bool
	Vouchers    []string
	Explanation string
}

// UnknownDecision is used whenever trust cannot be established.
func UnknownDecision() Decision {
	return Decision{Level: Unknown, Vouchers: []string{}, Explanation: "Unable to verify trust status"}
}

type set map[string]struct{}

// Options configure a Ledger.
type Options struct {
	// Minimum interval between refreshes; ForceRefresh ignores it.
	Interval            time.Duration
	MinTrustedFollowers int
	Now                 func() time.Time
}

// Ledger is safe for concurrent use.
type Ledger struct {
	source Source
	cache  Cache
	opts   Options

	current     atomic.Pointer[set]
	lastRefresh atomic.Int64
	// serialises refreshes; never held by readers
	refreshMu sync.Mutex
}

// NewLedger returns a ledger with an empty set. cache may be nil.
func NewLedger(src Source, cache Cache, opts Options) *Ledger {
	if opts.Interval <= 0 {
		opts.Interval = time.Hour
	}
	if opts.MinTrustedFollowers <= 0 {
		opts.MinTrustedFollowers = 3
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	l := &Ledger{source: src, cache: cache, opts: opts}
	l.swap(set{})
	return l
}

func (l *Ledger) swap(s set) {
	l.current.Store(&s)
	metrics.TrustedSetSize.Set(float64(len(s)))
}

func newSet(names []string) set {
	s := make(set, len(names))
	for _, n := range names {
		if n = normalize(n); n != "" {
			s[n] = struct{}{}
		}
	}
	return s
}

// Load populates the set from the cache. A missing or empty cache leaves the
// set empty and does not count as a refresh.
func (l *Ledger) Load(ctx context.Context) (int, error) {
	if l.cache == nil {
		return 0, nil
	}
	names, err := l.cache.LoadTrustedAccounts(ctx)
	if err != nil {
		return 0, fmt.Errorf("load trusted cache: %w", err)
	}
	if len(names) == 0 {
		return 0, nil
	}
	l.swap(newSet(names))
	logging.Info("trusted_cache_loaded", map[string]any{"count": len(names)})
	return len(names), nil
}

// Refresh reloads from the source unless the last refresh is younger than the
// interval. It reports whether a reload happened.
func (l *Ledger) Refresh(ctx context.Context) (bool, error) {
	last := l.lastRefresh.Load()
	if last != 0 && l.opts.Now().Sub(time.Unix(0, last)) < l.opts.Interval {
		return false, nil
	}
	if err := l.ForceRefresh(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// ForceRefresh reloads from the source regardless of the interval. On error the
// previous set stays active.
func (l *Ledger) ForceRefresh(ctx context.Context) error {
	l.refreshMu.Lock()
	defer l.refreshMu.Unlock()

	names, err := l.source.Fetch(ctx)
	if err == nil && len(names) == 0 {
		err = ErrEmptyList
	}
	if err != nil {
		metrics.TrustedRefreshErrors.Inc()
		logging.Error("trusted_refresh_failed", map[string]any{"error": err.Error(), "kept": l.Size()})
		return err
	}
	l.swap(newSet(names))
	l.lastRefresh.Store(l.opts.Now().UnixNano())
	metrics.TrustedRefreshes.Inc()
	logging.Info("trusted_refreshed", map[string]any{"count": len(names)})

	if l.cache != nil {
		if err := l.cache.SaveTrustedAccounts(ctx, names); err != nil {
			logging.Warn("trusted_cache_save_failed", map[string]any{"error": err.Error()})
		}
	}
	return nil
}

// Contains reports whether username (any case, optional @) is trusted.
func (l *Ledger) Contains(username string) bool {
	s := l.current.Load()
	if s == nil {
		return false
	}
	_, ok := (*s)[normalize(username)]
	return ok
}

func (l *Ledger) Size() int {
	s := l.current.Load()
	if s == nil {
		return 0
	}
	return len(*s)
}

// Usernames returns the active set, sorted.
func (l *Ledger) Usernames() []string {
	s := l.current.Load()
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(*s))
	for n := range *s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// MinTrustedFollowers is the vouch threshold for network_backed.
func (l *Ledger) MinTrustedFollowers() int { return l.opts.MinTrustedFollowers }

// Classify decides trust for username given the trusted accounts known to
// follow it. Followers not in the active set are ignored.
func (l *Ledger) Classify(username string, trustedFollowers []string) Decision {
	s := l.current.Load()
	handle := strings.TrimPrefix(strings.TrimSpace(username), "@")
	if s == nil || handle == "" {
		return UnknownDecision()
	}
	handle = normalize(handle)
	if _, ok := (*s)[handle]; ok {
		return Decision{
			Level:       DirectlyTrusted,
			Trusted:     true,
			Vouchers:    []string{},
			Explanation: fmt.Sprintf("@%s is directly on the trusted accounts list", handle),
		}
	}

	vouchers := make([]string, 0, len(trustedFollowers))
	seen := make(map[string]bool, len(trustedFollowers))
	for _, f := range trustedFollowers {
		n := normalize(f)
		if _, ok := (*s)[n]; ok && !seen[n] {
			seen[n] = true
			vouchers = append(vouchers, n)
		}
	}

	count, threshold := len(vouchers), l.opts.MinTrustedFollowers
	switch {
	case count >= threshold:
		shown := vouchers
		if len(shown) > 3 {
			shown = shown[:3]
		}
		expl := fmt.Sprintf("Followed by %d trusted accounts: %s", count, strings.Join(shown, ", "))
		if count > 3 {
			expl += fmt.Sprintf(" and %d others", count-3)
		}
		return Decision{Level: NetworkBacked, Trusted: true, Vouchers: vouchers, Explanation: expl}
	case count > 0:
		return Decision{
			Level:       PartiallyVouched,
			Vouchers:    vouchers,
			Explanation: fmt.Sprintf("Followed by %d trusted account(s) (minimum %d required)", count, threshold),
		}
	default:
		return Decision{Level: NotVouched, Vouchers: vouchers, Explanation: "Not followed by any trusted accounts"}
	}
}

// Close drops the set. Later classifications return Unknown.
func (l *Ledger) Close() error {
	l.current.Store(nil)
	metrics.TrustedSetSize.Set(0)
	return nil
}
