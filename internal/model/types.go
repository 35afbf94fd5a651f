package model

import (
	"sort"
	"time"
)

// AccountSnapshot is the subset of X user fields one analysis works from.
// It is fetched once per request and not mutated afterwards.
type AccountSnapshot struct {
	ID             string
	Username       string
	Name           string
	Description    string
	CreatedAt      time.Time
	Verified       bool
	FollowersCount int
	FollowingCount int
	TweetCount     int
	ListedCount    int
	URL            string
}

// TweetSample is one tweet from the account's recent timeline.
type TweetSample struct {
	ID           string
	AuthorID     string
	Text         string
	CreatedAt    time.Time
	Language     string
	LikeCount    int
	RetweetCount int
	ReplyCount   int
	QuoteCount   int
}

// TriggerEvent is a reply that asked the bot to analyze the author of the
// tweet it replies to.
type TriggerEvent struct {
	TriggerTweetID   string
	TriggerAuthorID  string
	OriginalTweetID  string
	OriginalAuthorID string
	TriggeredAt      time.Time
}

// SortByRecency returns a copy of tweets ordered newest first.
func SortByRecency(tweets []TweetSample) []TweetSample {
	out := make([]TweetSample, len(tweets))
	copy(out, tweets)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
