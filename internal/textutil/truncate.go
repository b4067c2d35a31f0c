// Package textutil holds the display-safe string helpers every UI surface
// must route paths and filenames through before drawing. Widths are terminal
// cell widths, not byte or rune counts, so double-width characters are
// accounted for and no slice ever lands inside an encoded character.
package textutil

import (
	"fmt"

	"github.com/mattn/go-runewidth"
)

const ellipsis = "…"

// Truncate shortens s to at most width display cells, appending an ellipsis
// when anything was cut. It is total: width <= 0 returns "", a string already
// within the limit is returned unchanged, and the cut never splits a rune.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= runewidth.StringWidth(ellipsis) {
		return ellipsis
	}
	return runewidth.Truncate(s, width, ellipsis)
}

// TruncateLeft shortens s to at most width display cells by cutting from the
// front, keeping the tail. Paths read better this way: the leaf name is the
// part the user is acting on.
func TruncateLeft(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= runewidth.StringWidth(ellipsis) {
		return ellipsis
	}
	return runewidth.TruncateLeft(s, runewidth.StringWidth(s)-width+runewidth.StringWidth(ellipsis), ellipsis)
}

// PadRight pads s with spaces to exactly width display cells, truncating
// first if it is too long.
func PadRight(s string, width int) string {
	s = Truncate(s, width)
	return runewidth.FillRight(s, width)
}

// FormatBytes renders a byte count in a compact human-readable form.
func FormatBytes(size int64) string {
	if size < 1024 {
		return fmt.Sprintf("%d B", size)
	}

	units := []string{"KB", "MB", "GB", "TB", "PB"}
	value := float64(size)
	for _, unit := range units {
		value /= 1024
		if value < 1024 {
			return fmt.Sprintf("%.1f %s", value, unit)
		}
	}
	return fmt.Sprintf("%.1f %s", value, units[len(units)-1])
}
