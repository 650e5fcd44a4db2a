package repo

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/illarion/passwatch/internal/account"
	"github.com/illarion/passwatch/internal/blobstore"
)

func openBlobs(t *testing.T) *blobstore.Store {
	t.Helper()
	blobs, err := blobstore.Open(filepath.Join(t.TempDir(), "test.passwatch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { blobs.Close() })
	return blobs
}

func TestImportPending(t *testing.T) {
	ctx := context.Background()
	r, _ := setupRepo(t)
	blobs := openBlobs(t)

	_, err := r.Add(ctx, account.Record{ServiceName: "GitHub", URL: "https://github.com"})
	require.NoError(t, err)

	pending := `[
		{"service_name":"github","url":"https://GITHUB.COM","detected_at":"2024-05-01T10:00:00Z"},
		{"service_name":"New Shop","url":"https://shop.example","username":"me","detected_at":"2024-05-02T10:00:00Z"},
		{"service_name":"  "}
	]`
	require.NoError(t, blobs.Set(blobstore.KeyPendingAccounts, []byte(pending)))

	added, err := r.ImportPending(ctx, blobs)
	require.NoError(t, err)
	require.Equal(t, 1, added)

	// Only the genuinely new detection landed
	recs, err := r.Search(ctx, "shop")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "New Shop", recs[0].ServiceName)
	require.Equal(t, "me", recs[0].Username)
	require.True(t, recs[0].LastPasswordChange.IsZero())

	// The intake blob is consumed
	has, err := blobs.Has(blobstore.KeyPendingAccounts)
	require.NoError(t, err)
	require.False(t, has)
}

func TestImportPending_NoBlob(t *testing.T) {
	ctx := context.Background()
	r, p := setupRepo(t)
	blobs := openBlobs(t)

	added, err := r.ImportPending(ctx, blobs)
	require.NoError(t, err)
	require.Equal(t, 0, added)
	require.Equal(t, 0, p.calls)
}

func TestImportPending_MalformedBlob(t *testing.T) {
	ctx := context.Background()
	r, _ := setupRepo(t)
	blobs := openBlobs(t)

	require.NoError(t, blobs.Set(blobstore.KeyPendingAccounts, []byte("{broken")))

	added, err := r.ImportPending(ctx, blobs)
	require.NoError(t, err)
	require.Equal(t, 0, added)

	// Malformed intake is dropped rather than retried forever
	has, err := blobs.Has(blobstore.KeyPendingAccounts)
	require.NoError(t, err)
	require.False(t, has)
}

func TestImportPending_DuplicateWithinBatch(t *testing.T) {
	ctx := context.Background()
	r, _ := setupRepo(t)
	blobs := openBlobs(t)

	pending := `[
		{"service_name":"Shop","url":"https://shop.example"},
		{"service_name":"shop","url":"HTTPS://SHOP.EXAMPLE"}
	]`
	require.NoError(t, blobs.Set(blobstore.KeyPendingAccounts, []byte(pending)))

	added, err := r.ImportPending(ctx, blobs)
	require.NoError(t, err)
	require.Equal(t, 1, added)
}

func TestRefreshBadgeCache(t *testing.T) {
	ctx := context.Background()
	r, _ := setupRepo(t)
	blobs := openBlobs(t)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	_, err := r.Add(ctx, account.Record{ServiceName: "never-changed"})
	require.NoError(t, err)
	_, err = r.Add(ctx, account.Record{
		ServiceName:         "fresh",
		RefreshIntervalDays: 90,
		LastPasswordChange:  now.Add(-24 * time.Hour),
	})
	require.NoError(t, err)

	require.NoError(t, r.RefreshBadgeCache(ctx, blobs, now))

	count, err := blobs.Get(blobstore.KeyOverdueCount)
	require.NoError(t, err)
	require.Equal(t, "1", string(count))

	names, err := blobs.Get(blobstore.KeyOverdueNames)
	require.NoError(t, err)
	require.JSONEq(t, `["never-changed"]`, string(names))
}

func TestRefreshBadgeCache_Empty(t *testing.T) {
	ctx := context.Background()
	r, _ := setupRepo(t)
	blobs := openBlobs(t)

	require.NoError(t, r.RefreshBadgeCache(ctx, blobs, time.Now()))

	count, err := blobs.Get(blobstore.KeyOverdueCount)
	require.NoError(t, err)
	require.Equal(t, "0", string(count))

	names, err := blobs.Get(blobstore.KeyOverdueNames)
	require.NoError(t, err)
	require.JSONEq(t, `[]`, string(names))
}
