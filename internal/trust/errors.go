package trust

import "errors"

// ErrEmptyList is returned when a refresh yields no usernames. The active set is kept.
var ErrEmptyList = errors.New("trusted list is empty")
