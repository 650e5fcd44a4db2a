package account

import (
	"math"
	"time"
)

// Status describes how urgently a password needs rotation
type Status string

const (
	StatusOverdue Status = "overdue"
	StatusDueSoon Status = "due_soon"
	StatusGood    Status = "good"
)

// DueSoonDays is the width of the warning window before the due date
const DueSoonDays = 7

const day = 24 * time.Hour

// ParseStatus maps user input to a Status
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusOverdue, StatusDueSoon, StatusGood:
		return Status(s), true
	}
	return "", false
}

// DueDate returns when the password is due for rotation. ok is false when
// the password was never changed.
func (r Record) DueDate() (due time.Time, ok bool) {
	if r.LastPasswordChange.IsZero() {
		return time.Time{}, false
	}
	return r.LastPasswordChange.Add(time.Duration(r.RefreshIntervalDays) * day), true
}

// Status classifies the record at the given moment. Never-changed records
// are overdue; otherwise overdue at or past the due date, due_soon within
// DueSoonDays before it, good before that.
func (r Record) Status(now time.Time) Status {
	due, ok := r.DueDate()
	if !ok {
		return StatusOverdue
	}
	if !now.Before(due) {
		return StatusOverdue
	}
	if !now.Before(due.Add(-DueSoonDays * day)) {
		return StatusDueSoon
	}
	return StatusGood
}

// DaysUntilDue returns whole days until the due date, rounded up so a
// partial day still counts as a day left. Negative when past due.
// ok is false when the password was never changed.
func (r Record) DaysUntilDue(now time.Time) (days int, ok bool) {
	due, ok := r.DueDate()
	if !ok {
		return 0, false
	}
	return int(math.Ceil(due.Sub(now).Hours() / 24)), true
}

// DaysSinceChange returns whole days since the last password change,
// rounded down. ok is false when the password was never changed.
func (r Record) DaysSinceChange(now time.Time) (days int, ok bool) {
	if r.LastPasswordChange.IsZero() {
		return 0, false
	}
	return int(math.Floor(now.Sub(r.LastPasswordChange).Hours() / 24)), true
}
