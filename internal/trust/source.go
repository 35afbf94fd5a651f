package trust

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"rugguard/internal/logging"
)

// Source produces the current trusted usernames.
type Source interface {
	Fetch(ctx context.Context) ([]string, error)
}

// HTTPSource downloads a plain-text list.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

// NewHTTPSource returns a source that retries transient failures.
func NewHTTPSource(url string) *HTTPSource {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 1 * time.Second
	rc.RetryWaitMax = 10 * time.Second
	rc.Logger = retryablehttp.LeveledLogger(logging.Leveled{})
	client := rc.StandardClient()
	client.Timeout = 30 * time.Second
	return &HTTPSource{URL: url, Client: client}
}

func (s *HTTPSource) Fetch(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch trusted list: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch trusted list: status %d", resp.StatusCode)
	}
	return ParseList(resp.Body)
}

// FileSource reads the list from a local file.
type FileSource struct {
	Path string
}

func (s FileSource) Fetch(ctx context.Context) ([]string, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseList(f)
}
