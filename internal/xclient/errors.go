package xclient

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	// ErrNotFound covers missing, suspended and protected accounts and tweets.
	ErrNotFound     = errors.New("x api: not found")
	ErrRateLimited  = errors.New("x api: rate limited")
	ErrUnauthorized = errors.New("x api: unauthorized")
)

// StatusError is a non-2xx response that is not one of the sentinel cases.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string { return fmt.Sprintf("x api status %d: %s", e.Status, e.Body) }

func checkStatus(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w (status %d)", ErrUnauthorized, resp.StatusCode)
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{Status: resp.StatusCode, Body: string(body)}
}

// apiError is an entry of the v2 "errors" array.
type apiError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Type   string `json:"type"`
}

// notFoundFromErrors maps a 200 response with no data to ErrNotFound.
func notFoundFromErrors(errs []apiError) error {
	if len(errs) == 0 {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %s", ErrNotFound, errs[0].Detail)
}
