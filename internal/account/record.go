// Package account defines the tracked account record and the rotation
// status derived from it.
package account

import (
	"strings"
	"time"
)

// Field limits enforced before a record is stored
const (
	MaxServiceNameLen = 200
	MaxURLLen         = 200
	MaxUsernameLen    = 200
	MaxNotesLen       = 1000

	MinIntervalDays     = 1
	MaxIntervalDays     = 365
	DefaultIntervalDays = 90
)

// Category groups accounts for filtering and display
type Category string

const (
	CategoryGeneral   Category = "general"
	CategoryFinancial Category = "financial"
	CategoryEmail     Category = "email"
	CategorySocial    Category = "social"
	CategoryShopping  Category = "shopping"
	CategoryStreaming Category = "streaming"
	CategoryWork      Category = "work"
	CategoryGaming    Category = "gaming"
)

// Categories lists the valid categories in display order
func Categories() []Category {
	return []Category{
		CategoryGeneral,
		CategoryFinancial,
		CategoryEmail,
		CategorySocial,
		CategoryShopping,
		CategoryStreaming,
		CategoryWork,
		CategoryGaming,
	}
}

// NormalizeCategory maps arbitrary input to a valid category.
// Unknown or empty input becomes CategoryGeneral.
func NormalizeCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case CategoryGeneral, CategoryFinancial, CategoryEmail, CategorySocial,
		CategoryShopping, CategoryStreaming, CategoryWork, CategoryGaming:
		return c
	}
	return CategoryGeneral
}

// Record is one tracked account credential.
//
// A zero LastPasswordChange means the password was never changed (or the
// date is unknown); such records are always overdue. ID is assigned by the
// repository and never changes. DateAdded is set once at creation.
type Record struct {
	ID                  int64
	ServiceName         string
	URL                 string
	Username            string
	Category            Category
	RefreshIntervalDays int
	LastPasswordChange  time.Time
	DateAdded           time.Time
	Notes               string
}

// Sanitize normalizes a record in place: text fields are trimmed and
// length-clamped, the category canonicalized, the interval forced into range.
func (r *Record) Sanitize() {
	r.ServiceName = ClampText(r.ServiceName, MaxServiceNameLen)
	r.URL = ClampText(r.URL, MaxURLLen)
	r.Username = ClampText(r.Username, MaxUsernameLen)
	r.Notes = ClampText(r.Notes, MaxNotesLen)
	r.Category = NormalizeCategory(string(r.Category))
	r.RefreshIntervalDays = ClampInterval(r.RefreshIntervalDays)
}

// ClampText trims surrounding whitespace and truncates to max characters
func ClampText(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) > max {
		return string(runes[:max])
	}
	return s
}

// ClampInterval forces a rotation interval into the valid range.
// Zero means unset and becomes the default.
func ClampInterval(days int) int {
	switch {
	case days == 0:
		return DefaultIntervalDays
	case days < MinIntervalDays:
		return MinIntervalDays
	case days > MaxIntervalDays:
		return MaxIntervalDays
	}
	return days
}

// DedupKey identifies a record for import deduplication: the lowercased,
// trimmed service name and URL joined with "|".
func DedupKey(serviceName, url string) string {
	return strings.ToLower(strings.TrimSpace(serviceName)) + "|" +
		strings.ToLower(strings.TrimSpace(url))
}
