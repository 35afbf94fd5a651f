package xclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient points a fast-retrying client at h.
func newTestClient(t *testing.T, h http.Handler) *HTTPClient {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	c := NewHTTPClient("test")
	c.maxAttempts = 3
	c.baseBackoff = 10 * time.Millisecond
	c.httpClient = ts.Client()
	c.baseURL = ts.URL
	return c
}

func TestDoWithRetryHandles429(t *testing.T) {
	attempts := 0
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	req, _ := http.NewRequest(http.MethodGet, c.baseURL+"/test", nil)
	resp, err := c.doWithRetry(context.Background(), req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, attempts)
}

func TestPersistentRateLimit(t *testing.T) {
	attempts := 0
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	_, err := c.GetUserByUsername(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 3, attempts)
}

func TestGetUserByUsername(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/users/by/username/alice":
			_, _ = w.Write([]byte(`{"data":{"id":"42","username":"alice","name":"Alice","created_at":"2020-01-02T03:04:05.000Z",
				"verified":true,"description":"building things","public_metrics":{"followers_count":1200,"following_count":300,"tweet_count":5000,"listed_count":7}}}`))
		case "/users/by/username/ghost":
			_, _ = w.Write([]byte(`{"errors":[{"title":"Not Found Error","detail":"Could not find user with username: [ghost]."}]}`))
		default:
			http.NotFound(w, r)
		}
	}))

	u, err := c.GetUserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "42", u.ID)
	assert.True(t, u.Verified)
	assert.Equal(t, 1200, u.FollowersCount)
	assert.Equal(t, 300, u.FollowingCount)
	assert.Equal(t, 7, u.ListedCount)
	assert.Equal(t, time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC), u.CreatedAt.UTC())

	_, err = c.GetUserByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.GetUserByID(context.Background(), "999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchRecentTweets(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tweets/search/recent", r.URL.Path)
		assert.Equal(t, "\"riddle me this\" is:reply", r.URL.Query().Get("query"))
		assert.Equal(t, "100", r.URL.Query().Get("since_id"))
		_, _ = w.Write([]byte(`{"data":[{"id":"101","text":"@projectrugguard riddle me this","author_id":"7","created_at":"2025-06-01T11:00:00.000Z",
			"in_reply_to_user_id":"42","referenced_tweets":[{"type":"replied_to","id":"55"}]}],"meta":{"newest_id":"101"}}`))
	}))

	page, err := c.SearchRecentTweets(context.Background(), `"riddle me this" is:reply`, "100", 10)
	require.NoError(t, err)
	assert.Equal(t, "101", page.NewestID)
	require.Len(t, page.Tweets, 1)
	tw := page.Tweets[0]
	assert.Equal(t, "7", tw.AuthorID)
	assert.Equal(t, "42", tw.InReplyToUserID)
	id, ok := tw.RepliedTo()
	assert.True(t, ok)
	assert.Equal(t, "55", id)
}

func TestGetUserTweetsAndFollowing(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/42/tweets":
			assert.Equal(t, "20", r.URL.Query().Get("max_results"))
			_, _ = w.Write([]byte(`{"data":[{"id":"1","text":"gm","lang":"en","created_at":"2025-06-01T11:00:00.000Z","public_metrics":{"like_count":3,"retweet_count":1,"reply_count":2,"quote_count":0}}]}`))
		case "/users/by/username/bob":
			_, _ = w.Write([]byte(`{"data":{"id":"9","username":"bob"}}`))
		case "/users/9/following":
			_, _ = w.Write([]byte(`{"data":[{"id":"42"},{"id":"43"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))

	tweets, err := c.GetUserTweets(context.Background(), "42", 20)
	require.NoError(t, err)
	require.Len(t, tweets, 1)
	assert.Equal(t, "42", tweets[0].AuthorID)
	assert.Equal(t, 3, tweets[0].LikeCount)
	assert.Equal(t, 2, tweets[0].ReplyCount)

	ids, err := c.FollowingIDs(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"42", "43"}, ids)
}

func TestPostReplyResendsBodyOnRetry(t *testing.T) {
	attempts := 0
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "OAuth "))
		body, _ := io.ReadAll(r.Body)
		var got struct {
			Text  string `json:"text"`
			Reply struct {
				InReplyTo string `json:"in_reply_to_tweet_id"`
			} `json:"reply"`
		}
		assert.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, "report", got.Text)
		assert.Equal(t, "101", got.Reply.InReplyTo)
		if attempts == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"202","text":"report"}}`))
	}))
	c.WithOAuth1(NewSigner("ck", "cs", "at", "as"))

	id, err := c.PostReply(context.Background(), "101", "report")
	require.NoError(t, err)
	assert.Equal(t, "202", id)
	assert.Equal(t, 2, attempts)
}

func TestPostReplyNeedsCredentials(t *testing.T) {
	c := NewHTTPClient("test")
	_, err := c.PostReply(context.Background(), "1", "x")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, 3*time.Second, retryAfter("3"))
	assert.Equal(t, time.Duration(-1), retryAfter(""))
	assert.Equal(t, time.Duration(-1), retryAfter("soon"))
	assert.Equal(t, time.Duration(0), retryAfter(time.Now().Add(-time.Minute).UTC().Format(http.TimeFormat)))
}

func TestRouteHidesIdentifiers(t *testing.T) {
	assert.Equal(t, "2/users/by/username/:username", route("/2/users/by/username/Alice"))
	assert.Equal(t, "2/users/:id/tweets", route("/2/users/12345/tweets"))
	assert.Equal(t, "2/users/:id/following", route("/2/users/12345/following"))
	assert.Equal(t, "2/tweets/:id", route("/2/tweets/987"))
	assert.Equal(t, "2/tweets/search/recent", route("/2/tweets/search/recent"))
	assert.Equal(t, "tweets", route("/tweets"))
}
