package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/illarion/passwatch/internal/account"
)

func freshDB(t *testing.T, suffix string) *sql.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_") + suffix
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestImageRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := freshDB(t, "_src")
	require.NoError(t, InitSchema(ctx, src))
	r := New(src, &fakePersister{}, zap.NewNop())

	changed := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	_, err := r.Add(ctx, account.Record{
		ServiceName:         "GitHub",
		URL:                 "https://github.com",
		Username:            "octocat",
		Category:            account.CategoryWork,
		RefreshIntervalDays: 60,
		LastPasswordChange:  changed,
		Notes:               "2FA enabled",
	})
	require.NoError(t, err)
	_, err = r.Add(ctx, account.Record{ServiceName: "bank"})
	require.NoError(t, err)

	img, err := DumpImage(ctx, src)
	require.NoError(t, err)
	require.Equal(t, ImageVersion, img.Version)
	require.Len(t, img.Accounts, 2)
	require.Equal(t, int64(3), img.NextID)

	data, err := img.Encode()
	require.NoError(t, err)

	parsed, err := ParseImage(data)
	require.NoError(t, err)

	dst := freshDB(t, "_dst")
	require.NoError(t, LoadImage(ctx, dst, parsed))

	r2 := New(dst, &fakePersister{}, zap.NewNop())
	recs, err := r2.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	github, err := r2.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "GitHub", github.ServiceName)
	require.Equal(t, "https://github.com", github.URL)
	require.Equal(t, "octocat", github.Username)
	require.Equal(t, account.CategoryWork, github.Category)
	require.Equal(t, 60, github.RefreshIntervalDays)
	require.True(t, changed.Equal(github.LastPasswordChange))
	require.Equal(t, "2FA enabled", github.Notes)
}

func TestImage_PreservesIDCounter(t *testing.T) {
	ctx := context.Background()
	src := freshDB(t, "_src")
	require.NoError(t, InitSchema(ctx, src))
	r := New(src, &fakePersister{}, zap.NewNop())

	for _, name := range []string{"a", "b", "c"} {
		_, err := r.Add(ctx, account.Record{ServiceName: name})
		require.NoError(t, err)
	}
	require.NoError(t, r.Delete(ctx, 3))

	img, err := DumpImage(ctx, src)
	require.NoError(t, err)
	require.Equal(t, int64(4), img.NextID)

	dst := freshDB(t, "_dst")
	require.NoError(t, LoadImage(ctx, dst, img))

	// A record added after the reload must not reuse the deleted id
	r2 := New(dst, &fakePersister{}, zap.NewNop())
	id, err := r2.Add(ctx, account.Record{ServiceName: "d"})
	require.NoError(t, err)
	require.Equal(t, int64(4), id)
}

func TestLoadImage_LegacyWithoutVersion(t *testing.T) {
	ctx := context.Background()

	// Legacy plaintext images carry no version or next_id
	legacy := []byte(`{"accounts":[
		{"id":1,"service_name":"old bank","category":"financial","refresh_interval_days":30,"date_added":"2023-05-01T00:00:00Z"},
		{"id":7,"service_name":"mail","category":"email","refresh_interval_days":90,"date_added":"2023-06-01T00:00:00Z"}
	]}`)

	img, err := ParseImage(legacy)
	require.NoError(t, err)
	require.Equal(t, 0, img.Version)
	require.Equal(t, int64(0), img.NextID)

	db := freshDB(t, "")
	require.NoError(t, LoadImage(ctx, db, img))

	r := New(db, &fakePersister{}, zap.NewNop())
	recs, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	// The counter resumes past the highest id present
	id, err := r.Add(ctx, account.Record{ServiceName: "new"})
	require.NoError(t, err)
	require.Equal(t, int64(8), id)
}

func TestLoadImage_ClampsFields(t *testing.T) {
	ctx := context.Background()

	long := strings.Repeat("x", 500)
	img := &Image{
		Version: ImageVersion,
		Accounts: []imageRecord{{
			ID:                  1,
			ServiceName:         long,
			Category:            "no-such-category",
			RefreshIntervalDays: 9999,
			DateAdded:           "2023-05-01T00:00:00Z",
		}},
	}

	db := freshDB(t, "")
	require.NoError(t, LoadImage(ctx, db, img))

	r := New(db, &fakePersister{}, zap.NewNop())
	rec, err := r.Get(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rec.ServiceName, account.MaxServiceNameLen)
	require.Equal(t, account.CategoryGeneral, rec.Category)
	require.Equal(t, account.MaxIntervalDays, rec.RefreshIntervalDays)
}

func TestParseImage_Invalid(t *testing.T) {
	_, err := ParseImage([]byte("not json at all"))
	require.Error(t, err)

	_, err = ParseImage([]byte(`{"version":99,"accounts":[]}`))
	require.Error(t, err)
}

func TestDumpImage_Empty(t *testing.T) {
	ctx := context.Background()
	db := freshDB(t, "")
	require.NoError(t, InitSchema(ctx, db))

	img, err := DumpImage(ctx, db)
	require.NoError(t, err)
	require.Empty(t, img.Accounts)
	require.Equal(t, int64(1), img.NextID)

	// An empty image still encodes with an accounts array, not null
	data, err := img.Encode()
	require.NoError(t, err)
	require.Contains(t, string(data), `"accounts":[]`)
}
