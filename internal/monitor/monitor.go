// Package monitor finds reply tweets that ask the bot to analyze an account.
package monitor

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"rugguard/internal/logging"
	"rugguard/internal/model"
	"rugguard/internal/xclient"
)

// CursorKey is where the newest seen trigger id is stored.
const CursorKey = "monitor:since_id"

// KnownPhrases match regardless of the configured phrase; the first is a
// common misspelling of the handle.
var KnownPhrases = []string{
	"@projectruggaurd riddle me this",
	"@projectrugguard riddle me this",
}

// Searcher is the part of the X API the detector needs.
type Searcher interface {
	SearchRecentTweets(ctx context.Context, query, sinceID string, limit int) (xclient.SearchPage, error)
	GetTweet(ctx context.Context, id string) (xclient.Tweet, error)
}

// CursorStore persists the since_id between runs.
type CursorStore interface {
	LoadCursor(ctx context.Context, name string) (string, error)
	SaveCursor(ctx context.Context, name, value string) error
}

type Options struct {
	Phrase           string
	MonitoredAccount string
	MaxAge           time.Duration
	// Triggers written by this user id are ignored.
	IgnoreAuthorID string
	Now            func() time.Time
}

// Detector is safe for concurrent use; polls are serialised.
type Detector struct {
	mu      sync.Mutex
	api     Searcher
	cursors CursorStore
	opts    Options
	sinceID string
	loaded  bool
	seen    *expirable.LRU[string, struct{}]
}

// NewDetector builds a detector. cursors may be nil.
func NewDetector(api Searcher, cursors CursorStore, opts Options) *Detector {
	if opts.MaxAge <= 0 {
		opts.MaxAge = time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Detector{
		api:     api,
		cursors: cursors,
		opts:    opts,
		seen:    expirable.NewLRU[string, struct{}](10_000, nil, 2*opts.MaxAge),
	}
}

// Query is the recent-search query for the configured phrase.
func (d *Detector) Query() string {
	p := strings.TrimSpace(d.opts.Phrase)
	q := `"` + p + `" -is:retweet`
	if strings.HasPrefix(p, "@") {
		q = p + " -is:retweet"
	}
	if d.opts.MonitoredAccount != "" {
		q += " to:" + strings.TrimPrefix(d.opts.MonitoredAccount, "@")
	}
	return q
}

// searchLimit is the page size of one trigger search.
const searchLimit = 100

// Poll returns new valid triggers, oldest first, and advances the cursor to the
// newest result. When a trigger cannot be resolved for a transient reason the
// cursor stops just before it, so the next search returns it again.
func (d *Detector) Poll(ctx context.Context) ([]model.TriggerEvent, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.loaded && d.cursors != nil {
		v, err := d.cursors.LoadCursor(ctx, CursorKey)
		if err != nil {
			return nil, err
		}
		d.sinceID = v
	}
	d.loaded = true

	page, err := d.api.SearchRecentTweets(ctx, d.Query(), d.sinceID, searchLimit)
	if err != nil {
		return nil, err
	}

	var out []model.TriggerEvent
	next, held := page.NewestID, false
	for i := len(page.Tweets) - 1; i >= 0; i-- {
		tw := page.Tweets[i]
		if d.seen.Contains(tw.ID) || !d.IsValid(tw) {
			continue
		}
		ev, err := d.resolve(ctx, tw)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return out, err
			}
			logging.Warn("trigger_unresolved", map[string]any{"tweet_id": tw.ID, "error": err.Error()})
			if !transient(err) {
				d.seen.Add(tw.ID, struct{}{})
			} else if !held {
				held = true
				next = d.sinceID
				if prev, ok := previousID(tw.ID); ok {
					next = prev
				}
			}
			continue
		}
		d.seen.Add(tw.ID, struct{}{})
		out = append(out, ev)
	}

	if next != "" && next != d.sinceID {
		d.setCursor(ctx, next)
	}
	return out, nil
}

// Retry hands a trigger that could not be answered back to later polls. It is
// dropped for good once it is older than MaxAge.
func (d *Detector) Retry(ctx context.Context, ev model.TriggerEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen.Remove(ev.TriggerTweetID)
	prev, ok := previousID(ev.TriggerTweetID)
	if !ok || d.sinceID == "" || !olderID(prev, d.sinceID) {
		return
	}
	logging.Info("trigger_retry_scheduled", map[string]any{"tweet_id": ev.TriggerTweetID})
	d.setCursor(ctx, prev)
}

func (d *Detector) setCursor(ctx context.Context, id string) {
	d.sinceID = id
	if d.cursors == nil {
		return
	}
	if err := d.cursors.SaveCursor(context.WithoutCancel(ctx), CursorKey, id); err != nil {
		logging.Warn("cursor_save_failed", map[string]any{"error": err.Error()})
	}
}

// previousID is the id just below a numeric tweet id, usable as an exclusive since_id.
func previousID(id string) (string, bool) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil || n == 0 {
		return "", false
	}
	return strconv.FormatUint(n-1, 10), true
}

func olderID(a, b string) bool {
	x, err1 := strconv.ParseUint(a, 10, 64)
	y, err2 := strconv.ParseUint(b, 10, 64)
	return err1 == nil && err2 == nil && x < y
}

// transient reports whether resolving may succeed on a later poll.
func transient(err error) bool {
	return !errors.Is(err, xclient.ErrNotFound) && !errors.Is(err, errNoParent) && !errors.Is(err, errNoAuthor)
}

// IsValid reports whether tw is a fresh reply carrying the trigger phrase.
func (d *Detector) IsValid(tw xclient.Tweet) bool {
	if tw.InReplyToUserID == "" {
		return false
	}
	if d.opts.IgnoreAuthorID != "" && tw.AuthorID == d.opts.IgnoreAuthorID {
		return false
	}
	text := strings.ToLower(tw.Text)
	matched := false
	for _, p := range KnownPhrases {
		if strings.Contains(text, p) {
			matched = true
			break
		}
	}
	if !matched {
		phrase := strings.ToLower(strings.TrimSpace(d.opts.Phrase))
		matched = phrase != "" && strings.Contains(text, phrase)
	}
	if !matched || tw.CreatedAt.IsZero() {
		return false
	}
	return d.opts.Now().Sub(tw.CreatedAt) <= d.opts.MaxAge
}

var (
	errNoParent = errors.New("trigger is not a reply to a tweet")
	errNoAuthor = errors.New("original tweet has no author")
)

func (d *Detector) resolve(ctx context.Context, tw xclient.Tweet) (model.TriggerEvent, error) {
	parentID, ok := tw.RepliedTo()
	if !ok {
		return model.TriggerEvent{}, errNoParent
	}
	parent, err := d.api.GetTweet(ctx, parentID)
	if err != nil {
		return model.TriggerEvent{}, err
	}
	if parent.AuthorID == "" {
		return model.TriggerEvent{}, errNoAuthor
	}
	return model.TriggerEvent{
		TriggerTweetID:   tw.ID,
		TriggerAuthorID:  tw.AuthorID,
		OriginalTweetID:  parentID,
		OriginalAuthorID: parent.AuthorID,
		TriggeredAt:      tw.CreatedAt,
	}, nil
}
