// Package theme renders the CLI banner.
package theme

import (
	"fmt"
	"io"
)

const (
	green  = "\033[32m"
	yellow = "\033[33m"
	reset  = "\033[0m"
)

// Banner returns the rugguard banner with the given version line.
func Banner(version string) string {
	return green + "  ┏━━━━━━━━━━━━━━━━━━━━━━━━━━━━┓\n" +
		"  ┃  " + reset + "R U G G U A R D" + green + "           ┃\n" +
		"  ┗━━━━━━━━━━━━━━━━━━━━━━━━━━━━┛\n" + reset +
		yellow + "   account trust checks for X  " + reset + version + "\n"
}

// PrintBanner writes the banner to w.
func PrintBanner(w io.Writer, version string) {
	fmt.Fprint(w, Banner(version))
}
