package xclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"golang.org/x/time/rate"

	"rugguard/internal/metrics"
	"rugguard/internal/model"
)

// API is the subset of X API v2 the bot reads from.
type API interface {
	GetUserByUsername(ctx context.Context, username string) (model.AccountSnapshot, error)
	GetUserByID(ctx context.Context, id string) (model.AccountSnapshot, error)
	GetUserTweets(ctx context.Context, userID string, limit int) ([]model.TweetSample, error)
	SearchRecentTweets(ctx context.Context, query, sinceID string, limit int) (SearchPage, error)
	GetTweet(ctx context.Context, id string) (Tweet, error)
	GetFollowing(ctx context.Context, userID string, limit int) ([]string, error)
}

// Poster publishes replies.
type Poster interface {
	PostReply(ctx context.Context, inReplyToID, text string) (string, error)
}

// ReferencedTweet links a tweet to the one it replies to, quotes or retweets.
type ReferencedTweet struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Tweet is a timeline sample plus the reply metadata trigger detection needs.
type Tweet struct {
	model.TweetSample
	InReplyToUserID string
	Referenced      []ReferencedTweet
}

// RepliedTo returns the id of the tweet this one replies to, if any.
func (t Tweet) RepliedTo() (string, bool) {
	for _, r := range t.Referenced {
		if r.Type == "replied_to" {
			return r.ID, true
		}
	}
	return "", false
}

type SearchPage struct {
	Tweets   []Tweet
	NewestID string
}

// HTTPClient is a bearer-token client for X API v2. With OAuth1 credentials
// set it can also post.
type HTTPClient struct {
	baseURL     string
	bearerToken string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration
	signer      *Signer
}

var (
	_ API    = (*HTTPClient)(nil)
	_ Poster = (*HTTPClient)(nil)
)

func NewHTTPClient(bearerToken string) *HTTPClient {
	return &HTTPClient{
		baseURL:     "https://api.twitter.com/2",
		bearerToken: bearerToken,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		limiter:     newDefaultLimiter(),
		maxAttempts: getEnvInt("X_API_MAX_ATTEMPTS", 5),
		baseBackoff: time.Duration(getEnvInt("X_API_BASE_BACKOFF_MS", 500)) * time.Millisecond,
	}
}

// WithOAuth1 enables user-context requests (posting).
func (c *HTTPClient) WithOAuth1(s *Signer) *HTTPClient {
	c.signer = s
	return c
}

const (
	userFields  = "user.fields=public_metrics,created_at,verified,description,url"
	tweetFields = "tweet.fields=created_at,public_metrics,lang,author_id,in_reply_to_user_id,referenced_tweets"
)

type wireUser struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Username      string    `json:"username"`
	CreatedAt     time.Time `json:"created_at"`
	Verified      bool      `json:"verified"`
	Description   string    `json:"description"`
	URL           string    `json:"url"`
	PublicMetrics struct {
		FollowersCount int `json:"followers_count"`
		FollowingCount int `json:"following_count"`
		TweetCount     int `json:"tweet_count"`
		ListedCount    int `json:"listed_count"`
	} `json:"public_metrics"`
}

func (u wireUser) snapshot() model.AccountSnapshot {
	return model.AccountSnapshot{
		ID:             u.ID,
		Username:       u.Username,
		Name:           u.Name,
		Description:    u.Description,
		CreatedAt:      u.CreatedAt,
		Verified:       u.Verified,
		FollowersCount: u.PublicMetrics.FollowersCount,
		FollowingCount: u.PublicMetrics.FollowingCount,
		TweetCount:     u.PublicMetrics.TweetCount,
		ListedCount:    u.PublicMetrics.ListedCount,
		URL:            u.URL,
	}
}

type wireTweet struct {
	ID              string            `json:"id"`
	Text            string            `json:"text"`
	AuthorID        string            `json:"author_id"`
	CreatedAt       time.Time         `json:"created_at"`
	Lang            string            `json:"lang"`
	InReplyToUserID string            `json:"in_reply_to_user_id"`
	Referenced      []ReferencedTweet `json:"referenced_tweets"`
	PublicMetrics   struct {
		LikeCount    int `json:"like_count"`
		ReplyCount   int `json:"reply_count"`
		RetweetCount int `json:"retweet_count"`
		QuoteCount   int `json:"quote_count"`
	} `json:"public_metrics"`
}

func (t wireTweet) tweet() Tweet {
	return Tweet{
		TweetSample: model.TweetSample{
			ID:           t.ID,
			AuthorID:     t.AuthorID,
			Text:         t.Text,
			CreatedAt:    t.CreatedAt,
			Language:     t.Lang,
			LikeCount:    t.PublicMetrics.LikeCount,
			RetweetCount: t.PublicMetrics.RetweetCount,
			ReplyCount:   t.PublicMetrics.ReplyCount,
			QuoteCount:   t.PublicMetrics.QuoteCount,
		},
		InReplyToUserID: t.InReplyToUserID,
		Referenced:      t.Referenced,
	}
}

func (c *HTTPClient) GetUserByUsername(ctx context.Context, username string) (model.AccountSnapshot, error) {
	if username == "" {
		return model.AccountSnapshot{}, errors.New("empty username")
	}
	return c.getUser(ctx, fmt.Sprintf("%s/users/by/username/%s?%s", c.baseURL, url.PathEscape(username), userFields))
}

func (c *HTTPClient) GetUserByID(ctx context.Context, id string) (model.AccountSnapshot, error) {
	if id == "" {
		return model.AccountSnapshot{}, errors.New("empty user id")
	}
	return c.getUser(ctx, fmt.Sprintf("%s/users/%s?%s", c.baseURL, url.PathEscape(id), userFields))
}

func (c *HTTPClient) getUser(ctx context.Context, u string) (model.AccountSnapshot, error) {
	var raw struct {
		Data   *wireUser  `json:"data"`
		Errors []apiError `json:"errors"`
	}
	if err := c.getJSON(ctx, u, &raw); err != nil {
		return model.AccountSnapshot{}, err
	}
	if raw.Data == nil {
		return model.AccountSnapshot{}, notFoundFromErrors(raw.Errors)
	}
	return raw.Data.snapshot(), nil
}

// GetUserTweets returns the user's recent original tweets, newest first.
func (c *HTTPClient) GetUserTweets(ctx context.Context, userID string, limit int) ([]model.TweetSample, error) {
	u := fmt.Sprintf("%s/users/%s/tweets?max_results=%d&%s&exclude=retweets",
		c.baseURL, url.PathEscape(userID), clamp(limit, 5, 100), tweetFields)
	var raw struct {
		Data []wireTweet `json:"data"`
	}
	if err := c.getJSON(ctx, u, &raw); err != nil {
		return nil, err
	}
	out := make([]model.TweetSample, 0, len(raw.Data))
	for _, d := range raw.Data {
		t := d.tweet().TweetSample
		if t.AuthorID == "" {
			t.AuthorID = userID
		}
		out = append(out, t)
	}
	return out, nil
}

// SearchRecentTweets searches the last seven days. sinceID may be empty.
func (c *HTTPClient) SearchRecentTweets(ctx context.Context, query, sinceID string, limit int) (SearchPage, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("max_results", strconv.Itoa(clamp(limit, 10, 100)))
	if sinceID != "" {
		q.Set("since_id", sinceID)
	}
	u := fmt.Sprintf("%s/tweets/search/recent?%s&%s", c.baseURL, q.Encode(), tweetFields)
	var raw struct {
		Data []wireTweet `json:"data"`
		Meta struct {
			NewestID string `json:"newest_id"`
		} `json:"meta"`
	}
	if err := c.getJSON(ctx, u, &raw); err != nil {
		return SearchPage{}, err
	}
	page := SearchPage{Tweets: make([]Tweet, 0, len(raw.Data)), NewestID: raw.Meta.NewestID}
	for _, d := range raw.Data {
		page.Tweets = append(page.Tweets, d.tweet())
	}
	return page, nil
}

func (c *HTTPClient) GetTweet(ctx context.Context, id string) (Tweet, error) {
	var raw struct {
		Data   *wireTweet `json:"data"`
		Errors []apiError `json:"errors"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("%s/tweets/%s?%s", c.baseURL, url.PathEscape(id), tweetFields), &raw); err != nil {
		return Tweet{}, err
	}
	if raw.Data == nil {
		return Tweet{}, notFoundFromErrors(raw.Errors)
	}
	return raw.Data.tweet(), nil
}

// GetFollowing returns the IDs of the accounts userID follows (first page only).
func (c *HTTPClient) GetFollowing(ctx context.Context, userID string, limit int) ([]string, error) {
	u := fmt.Sprintf("%s/users/%s/following?max_results=%d", c.baseURL, url.PathEscape(userID), clamp(limit, 1, 1000))
	var raw struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.getJSON(ctx, u, &raw); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(raw.Data))
	for _, d := range raw.Data {
		out = append(out, d.ID)
	}
	return out, nil
}

// FollowingIDs resolves username and lists whom it follows.
func (c *HTTPClient) FollowingIDs(ctx context.Context, username string) ([]string, error) {
	u, err := c.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return c.GetFollowing(ctx, u.ID, 1000)
}

// PostReply posts text as a reply and returns the new tweet id.
func (c *HTTPClient) PostReply(ctx context.Context, inReplyToID, text string) (string, error) {
	if c.signer == nil {
		return "", fmt.Errorf("%w: posting needs oauth1 credentials", ErrUnauthorized)
	}
	body, err := json.Marshal(map[string]any{
		"text":  text,
		"reply": map[string]string{"in_reply_to_tweet_id": inReplyToID},
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tweets", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	// JSON bodies are not part of the OAuth1 signature base
	c.signer.Sign(req, nil)
	var raw struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.send(ctx, req, &raw); err != nil {
		return "", err
	}
	return raw.Data.ID, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	c.auth(req)
	return c.send(ctx, req, out)
}

func (c *HTTPClient) send(ctx context.Context, req *http.Request, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *HTTPClient) auth(req *http.Request) {
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "rugguard/"+versioninfo.Short())
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// doWithRetry retries transport errors, 429 and 5xx with exponential backoff,
// honouring Retry-After. The final attempt's response is returned as is.
func (c *HTTPClient) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	backoff := c.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		r := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			r.Body = body
		}
		resp, err := c.httpClient.Do(r)
		wait := backoff
		if err == nil {
			retryable := resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599)
			if !retryable || attempt == c.maxAttempts {
				return resp, nil
			}
			if ra := retryAfter(resp.Header.Get("Retry-After")); ra >= 0 {
				wait = ra
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		} else {
			lastErr = err
		}
		if attempt == c.maxAttempts {
			break
		}
		metrics.IncAPIRetry(route(req.URL.Path))
		select {
		case <-time.After(jitter(wait)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxAttempts, lastErr)
}

// route turns a request path into a metrics label, replacing user and tweet
// ids and usernames with placeholders.
func route(path string) string {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	for i := 1; i < len(segs); i++ {
		switch prev := segs[i-1]; {
		case prev == "username":
			segs[i] = ":username"
		case (prev == "users" || prev == "tweets") && isDigits(segs[i]):
			segs[i] = ":id"
		}
	}
	return strings.Join(segs, "/")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// retryAfter parses seconds or an HTTP date; -1 when absent or invalid.
func retryAfter(v string) time.Duration {
	if v == "" {
		return -1
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
		return 0
	}
	return -1
}

// jitter spreads d by +/-20%.
func jitter(d time.Duration) time.Duration {
	j := time.Duration(float64(d) * 0.2)
	if j <= 0 {
		return d
	}
	return d - j + time.Duration(rand.Int63n(int64(2*j)))
}
