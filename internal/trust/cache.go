package trust

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Cache persists the last good trusted set so start-up does not depend on the network.
type Cache interface {
	SaveTrustedAccounts(ctx context.Context, usernames []string) error
	LoadTrustedAccounts(ctx context.Context) ([]string, error)
}

// FileCache keeps the set as sorted lines in a text file.
type FileCache struct {
	Path string
}

func (c FileCache) SaveTrustedAccounts(ctx context.Context, usernames []string) error {
	sorted := append([]string(nil), usernames...)
	sort.Strings(sorted)
	if dir := filepath.Dir(c.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := c.Path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strings.Join(sorted, "\n")+"\n"), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.Path)
}

// LoadTrustedAccounts returns nothing, without error, when the file does not exist yet.
func (c FileCache) LoadTrustedAccounts(ctx context.Context) ([]string, error) {
	f, err := os.Open(c.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseList(f)
}
