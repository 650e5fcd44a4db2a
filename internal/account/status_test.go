package account

import (
	"testing"
	"time"
)

var statusEpoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func recordChangedAt(changed time.Time, intervalDays int) Record {
	return Record{
		ServiceName:         "example",
		RefreshIntervalDays: intervalDays,
		LastPasswordChange:  changed,
	}
}

func TestStatus_ThirtyDayInterval(t *testing.T) {
	// Password changed at T with a 30 day interval
	r := recordChangedAt(statusEpoch, 30)

	tests := []struct {
		name string
		now  time.Time
		want Status
	}{
		{
			name: "31 days later is overdue",
			now:  statusEpoch.Add(31 * 24 * time.Hour),
			want: StatusOverdue,
		},
		{
			name: "25 days later is due soon",
			now:  statusEpoch.Add(25 * 24 * time.Hour),
			want: StatusDueSoon,
		},
		{
			name: "10 days later is good",
			now:  statusEpoch.Add(10 * 24 * time.Hour),
			want: StatusGood,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Status(tt.now)
			if got != tt.want {
				t.Errorf("Status() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatus_Boundaries(t *testing.T) {
	r := recordChangedAt(statusEpoch, 30)
	due := statusEpoch.Add(30 * 24 * time.Hour)

	// Exactly at the due date counts as overdue
	if got := r.Status(due); got != StatusOverdue {
		t.Errorf("Status at due date = %q, want overdue", got)
	}
	// One second before the due date is still due soon
	if got := r.Status(due.Add(-time.Second)); got != StatusDueSoon {
		t.Errorf("Status just before due date = %q, want due_soon", got)
	}
	// Exactly seven days before the due date enters the warning window
	if got := r.Status(due.Add(-DueSoonDays * 24 * time.Hour)); got != StatusDueSoon {
		t.Errorf("Status at window edge = %q, want due_soon", got)
	}
	// Just outside the window is good
	if got := r.Status(due.Add(-DueSoonDays*24*time.Hour - time.Second)); got != StatusGood {
		t.Errorf("Status outside window = %q, want good", got)
	}
}

func TestStatus_NeverChanged(t *testing.T) {
	r := Record{ServiceName: "example", RefreshIntervalDays: 90}

	if got := r.Status(statusEpoch); got != StatusOverdue {
		t.Errorf("Status for never-changed record = %q, want overdue", got)
	}
	if _, ok := r.DueDate(); ok {
		t.Error("DueDate should report ok=false for never-changed record")
	}
	if _, ok := r.DaysUntilDue(statusEpoch); ok {
		t.Error("DaysUntilDue should report ok=false for never-changed record")
	}
	if _, ok := r.DaysSinceChange(statusEpoch); ok {
		t.Error("DaysSinceChange should report ok=false for never-changed record")
	}
}

func TestDaysUntilDue_RoundsUp(t *testing.T) {
	r := recordChangedAt(statusEpoch, 2)

	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{
			name: "partial day counts as a full day left",
			now:  statusEpoch.Add(12 * time.Hour), // 36h remain
			want: 2,
		},
		{
			name: "exact day boundary",
			now:  statusEpoch.Add(24 * time.Hour),
			want: 1,
		},
		{
			name: "at due date",
			now:  statusEpoch.Add(48 * time.Hour),
			want: 0,
		},
		{
			name: "past due is negative",
			now:  statusEpoch.Add(84 * time.Hour), // 36h past
			want: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.DaysUntilDue(tt.now)
			if !ok {
				t.Fatal("DaysUntilDue should report ok=true")
			}
			if got != tt.want {
				t.Errorf("DaysUntilDue() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDaysUntilDue_OverdueAgreement(t *testing.T) {
	// Whenever a changed record is overdue, days until due is <= 0
	r := recordChangedAt(statusEpoch, 30)
	for _, offset := range []time.Duration{
		29*24*time.Hour + 23*time.Hour,
		30 * 24 * time.Hour,
		31 * 24 * time.Hour,
		400 * 24 * time.Hour,
	} {
		now := statusEpoch.Add(offset)
		days, ok := r.DaysUntilDue(now)
		if !ok {
			t.Fatal("DaysUntilDue should report ok=true")
		}
		if r.Status(now) == StatusOverdue && days > 0 {
			t.Errorf("Overdue at offset %v but %d days until due", offset, days)
		}
	}
}

func TestDaysSinceChange_RoundsDown(t *testing.T) {
	r := recordChangedAt(statusEpoch, 30)

	got, ok := r.DaysSinceChange(statusEpoch.Add(47 * time.Hour))
	if !ok {
		t.Fatal("DaysSinceChange should report ok=true")
	}
	if got != 1 {
		t.Errorf("DaysSinceChange() = %d, want 1 for 47 hours", got)
	}

	got, _ = r.DaysSinceChange(statusEpoch.Add(48 * time.Hour))
	if got != 2 {
		t.Errorf("DaysSinceChange() = %d, want 2 for 48 hours", got)
	}
}

func TestParseStatus(t *testing.T) {
	for _, valid := range []string{"overdue", "due_soon", "good"} {
		if _, ok := ParseStatus(valid); !ok {
			t.Errorf("ParseStatus(%q) should succeed", valid)
		}
	}
	if _, ok := ParseStatus("urgent"); ok {
		t.Error("ParseStatus should reject unknown status")
	}
}
