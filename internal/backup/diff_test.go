package backup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/illarion/passwatch/internal/account"
)

func TestRenderRecords_CanonicalOrder(t *testing.T) {
	recs := sampleRecords()
	reversed := []account.Record{recs[1], recs[0]}

	require.Equal(t, RenderRecords(recs), RenderRecords(reversed))
	// The input slice is not reordered
	require.Equal(t, "bank", reversed[0].ServiceName)
}

func TestRenderRecords_IgnoresIDs(t *testing.T) {
	recs := sampleRecords()
	renumbered := make([]account.Record, len(recs))
	copy(renumbered, recs)
	renumbered[0].ID = 42
	renumbered[1].ID = 7

	require.Equal(t, RenderRecords(recs), RenderRecords(renumbered))
}

func TestRenderRecords_NeverChanged(t *testing.T) {
	out := RenderRecords([]account.Record{{ServiceName: "bank"}})
	require.Contains(t, out, "last_change: never\n")
}

func TestUnifiedDiff(t *testing.T) {
	recs := sampleRecords()
	from := RenderRecords(recs)

	require.Empty(t, UnifiedDiff("backup", "store", from, from))

	changed := make([]account.Record, len(recs))
	copy(changed, recs)
	changed[0].Username = "different-user"
	changed[0].LastPasswordChange = time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	to := RenderRecords(changed)

	diff := UnifiedDiff("backup", "store", from, to)
	require.Contains(t, diff, "--- backup\n")
	require.Contains(t, diff, "+++ store\n")
	require.Contains(t, diff, "octocat")
	require.Contains(t, diff, "different-user")
}

func TestUnifiedDiff_AddedRecord(t *testing.T) {
	recs := sampleRecords()
	from := RenderRecords(recs)
	to := RenderRecords(append(recs, account.Record{ServiceName: "newmail", Category: account.CategoryEmail}))

	diff := UnifiedDiff("backup", "store", from, to)
	require.NotEmpty(t, diff)
	require.Contains(t, diff, "newmail")
}
