// Package humanbytes converts between byte counts and strings like "200M" or
// "1.50GiB", as used by the Max-Download-Size config field and download logs.
package humanbytes

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type unit struct {
	suffix string
	factor int64
}

// units is ordered by descending factor so that Format picks the largest
// fitting unit. Within the same factor, the short suffix wins.
var units = []unit{
	{"P", 1 << 50}, {"PiB", 1 << 50}, {"PB", 1e15},
	{"T", 1 << 40}, {"TiB", 1 << 40}, {"TB", 1e12},
	{"G", 1 << 30}, {"GiB", 1 << 30}, {"GB", 1e9},
	{"M", 1 << 20}, {"MiB", 1 << 20}, {"MB", 1e6},
	{"K", 1 << 10}, {"KiB", 1 << 10}, {"KB", 1e3},
}

// Format renders b using binary single-letter suffixes, e.g. 1536 → "1.50K".
func Format(b int64) string {
	for _, u := range units {
		if len(u.suffix) != 1 || b < u.factor {
			continue
		}
		return fmt.Sprintf("%.2f%s", float64(b)/float64(u.factor), u.suffix)
	}
	return fmt.Sprintf("%dB", b)
}

// Parse is the inverse of Format for integral values. It accepts "B" and the
// K/M/G/T/P suffixes in their bare (binary), "iB" (binary) and "B" (decimal)
// spellings. A value without suffix is a byte count.
func Parse(s string) (int64, error) {
	s = strings.TrimSpace(s)
	// Longest suffixes first so that "MiB" is not mistaken for "B".
	for _, width := range []int{3, 2, 1} {
		for _, u := range units {
			if len(u.suffix) != width || !strings.HasSuffix(s, u.suffix) {
				continue
			}
			b, err := strconv.ParseInt(strings.TrimSpace(strings.TrimSuffix(s, u.suffix)), 0, 64)
			if err != nil {
				return 0, fmt.Errorf("parse %q: %w", s, err)
			}
			if b < 0 || b > math.MaxInt64/u.factor {
				return 0, fmt.Errorf("parse %q: value out of range", s)
			}
			return b * u.factor, nil
		}
	}
	b, err := strconv.ParseInt(strings.TrimSuffix(s, "B"), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	return b, nil
}
