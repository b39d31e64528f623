package outreach

import (
	"strconv"
	"strings"
)

// InQuietHours reports whether hour falls inside the [start, end) quiet
// window. A window with start > end crosses midnight (22→7 covers 22:00
// through 06:59). Bounds are hour-of-day integers; minutes are not part of
// the gate.
func InQuietHours(hour, start, end int) bool {
	if start > end {
		return hour >= start || hour < end
	}
	return hour >= start && hour < end
}

// parseHour extracts the hour from an "HH:MM" preference string. Malformed
// or out-of-range values fall back so a bad preference row cannot disable
// the gate entirely.
func parseHour(s string, fallback int) int {
	hh, _, _ := strings.Cut(s, ":")
	h, err := strconv.Atoi(strings.TrimSpace(hh))
	if err != nil || h < 0 || h > 23 {
		return fallback
	}
	return h
}

// quietBounds resolves a user's quiet window to hour granularity.
func quietBounds(p Preferences) (start, end int) {
	return parseHour(p.QuietHoursStart, parseHour(defaultQuietStart, 22)),
		parseHour(p.QuietHoursEnd, parseHour(defaultQuietEnd, 7))
}
