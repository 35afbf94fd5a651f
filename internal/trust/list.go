package trust

import (
	"bufio"
	"io"
	"sort"
	"strings"
)

// ParseList reads one username per line. Blank lines and lines starting with
// # are skipped; a leading @ is dropped and names are lower-cased. The result
// is sorted and de-duplicated.
func ParseList(r io.Reader) ([]string, error) {
	seen := make(map[string]struct{})
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name := normalize(line)
		if name == "" {
			continue
		}
		seen[name] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "@"))
}
