package trust

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	following map[string][]string
	calls     map[string]int
}

func (f *fakeLister) FollowingIDs(ctx context.Context, username string) ([]string, error) {
	f.calls[username]++
	ids, ok := f.following[username]
	if !ok {
		return nil, errors.New("not found")
	}
	return ids, nil
}

func TestNoGraph(t *testing.T) {
	got, err := NoGraph{}.TrustedFollowers(context.Background(), "42", []string{"alice"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFollowingGraph(t *testing.T) {
	lister := &fakeLister{
		following: map[string][]string{
			"alice": {"1", "42"},
			"bob":   {"42"},
			"carol": {"7"},
			"dave":  {"42"},
		},
		calls: map[string]int{},
	}
	g := NewFollowingGraph(lister, 4, time.Minute)
	trusted := []string{"alice", "bob", "carol", "ghost", "dave"}

	got, err := g.TrustedFollowers(context.Background(), "42", trusted)
	require.NoError(t, err)
	// dave is past the sample
	assert.Equal(t, []string{"alice", "bob"}, got)

	_, err = g.TrustedFollowers(context.Background(), "7", trusted)
	require.NoError(t, err)
	assert.Equal(t, 1, lister.calls["alice"])
	assert.Equal(t, 2, lister.calls["ghost"])
}
