package backup

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/illarion/passwatch/internal/account"
)

// SortRecords orders records by case-insensitive service name, then URL,
// so two stores holding the same accounts sort identically regardless of
// the ids each store assigned.
func SortRecords(recs []account.Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		a := strings.ToLower(recs[i].ServiceName)
		b := strings.ToLower(recs[j].ServiceName)
		if a != b {
			return a < b
		}
		return strings.ToLower(recs[i].URL) < strings.ToLower(recs[j].URL)
	})
}

// RenderRecords renders a record set as canonical text, one block per
// record, sorted so equal sets produce byte-equal text. Ids are left out
// for the same reason SortRecords ignores them.
func RenderRecords(recs []account.Record) string {
	sorted := make([]account.Record, len(recs))
	copy(sorted, recs)
	SortRecords(sorted)

	var b strings.Builder
	for _, rec := range sorted {
		fmt.Fprintf(&b, "service: %s\n", rec.ServiceName)
		fmt.Fprintf(&b, "  url: %s\n", rec.URL)
		fmt.Fprintf(&b, "  username: %s\n", rec.Username)
		fmt.Fprintf(&b, "  category: %s\n", rec.Category)
		fmt.Fprintf(&b, "  interval: %dd\n", rec.RefreshIntervalDays)
		fmt.Fprintf(&b, "  last_change: %s\n", renderChange(rec.LastPasswordChange))
		fmt.Fprintf(&b, "  added: %s\n", account.FormatDate(rec.DateAdded))
		fmt.Fprintf(&b, "  notes: %s\n", rec.Notes)
		b.WriteByte('\n')
	}
	return b.String()
}

func renderChange(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return account.FormatDate(t)
}

// UnifiedDiff renders a unified diff between two renderings, labeling the
// sides. Line-mode diffing keeps hunks aligned to record fields. An empty
// result means the renderings are identical.
func UnifiedDiff(fromLabel, toLabel, from, to string) string {
	if from == to {
		return ""
	}

	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(from, to)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	patches := dmp.PatchMake(from, diffs)
	if len(patches) == 0 {
		return ""
	}

	var out strings.Builder
	fmt.Fprintf(&out, "--- %s\n", fromLabel)
	fmt.Fprintf(&out, "+++ %s\n", toLabel)
	out.WriteString(dmp.PatchToText(patches))
	return out.String()
}
