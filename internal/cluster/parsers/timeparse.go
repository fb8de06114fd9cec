package parsers

import (
	"strconv"
	"strings"
	"time"

	"github.com/rileyhilliard/sgpu/internal/cluster"
)

var timeLayouts = []string{
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// parseTime reads a scontrol timestamp in loc. Placeholders and unreadable
// values return the zero time.
func parseTime(s string, loc *time.Location) time.Time {
	s = strings.TrimSpace(s)
	switch s {
	case "", "0", "Unknown", "None", "N/A", "(null)":
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t
		}
	}
	return time.Time{}
}

// parseCount reads a non-negative integer field. Anything else is unknown.
func parseCount(s string) cluster.Count {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return cluster.Count{}
	}
	return cluster.Known(n)
}

// parseLeadingCount reads the minimum of a range like "1-2" or a plain "4".
func parseLeadingCount(s string) cluster.Count {
	lo, _, _ := strings.Cut(s, "-")
	return parseCount(lo)
}
