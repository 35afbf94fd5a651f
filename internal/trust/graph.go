package trust

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"rugguard/internal/logging"
)

// VouchGraph finds which trusted accounts follow a given account.
type VouchGraph interface {
	TrustedFollowers(ctx context.Context, accountID string, trusted []string) ([]string, error)
}

// NoGraph never finds vouchers, so network_backed is unreachable with it.
type NoGraph struct{}

func (NoGraph) TrustedFollowers(ctx context.Context, accountID string, trusted []string) ([]string, error) {
	return []string{}, nil
}

// FollowingLister returns the IDs of the accounts username follows.
type FollowingLister interface {
	FollowingIDs(ctx context.Context, username string) ([]string, error)
}

// FollowingGraph checks the following lists of a bounded sample of trusted
// accounts. Lists are cached per trusted account.
type FollowingGraph struct {
	lister FollowingLister
	sample int
	cache  *expirable.LRU[string, map[string]struct{}]
}

func NewFollowingGraph(lister FollowingLister, sample int, ttl time.Duration) *FollowingGraph {
	if sample <= 0 {
		sample = 20
	}
	return &FollowingGraph{
		lister: lister,
		sample: sample,
		cache:  expirable.NewLRU[string, map[string]struct{}](sample*4, nil, ttl),
	}
}

// TrustedFollowers skips trusted accounts whose list cannot be fetched.
func (g *FollowingGraph) TrustedFollowers(ctx context.Context, accountID string, trusted []string) ([]string, error) {
	if len(trusted) > g.sample {
		trusted = trusted[:g.sample]
	}
	out := []string{}
	for _, name := range trusted {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		following, ok := g.cache.Get(name)
		if !ok {
			ids, err := g.lister.FollowingIDs(ctx, name)
			if err != nil {
				logging.Debug("vouch_lookup_failed", map[string]any{"trusted": name, "error": err.Error()})
				continue
			}
			following = make(map[string]struct{}, len(ids))
			for _, id := range ids {
				following[id] = struct{}{}
			}
			g.cache.Add(name, following)
		}
		if _, ok := following[accountID]; ok {
			out = append(out, name)
		}
	}
	return out, nil
}
