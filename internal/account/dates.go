package account

import "time"

// DateFormat is the wire format for record timestamps
const DateFormat = time.RFC3339

// FormatDate renders a timestamp as RFC 3339 in UTC. The zero time renders
// as an empty string, meaning absent.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateFormat)
}

// ParseDate parses an RFC 3339 timestamp. Empty or malformed input yields
// the zero time.
func ParseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
