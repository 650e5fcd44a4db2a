package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/illarion/passwatch/internal/account"
	"github.com/illarion/passwatch/internal/blobstore"
	"github.com/illarion/passwatch/internal/crypto"
	"github.com/illarion/passwatch/internal/repo"
)

// Legacy plaintext image as the pre-encryption exporter wrote it: no
// version field, ids assigned.
const legacyImage = `{
	"accounts": [
		{"id": 1, "service_name": "bank", "url": "https://bank.example", "category": "financial", "refresh_interval_days": 30, "date_added": "2024-01-01T00:00:00Z"},
		{"id": 2, "service_name": "mail", "username": "me@mail.example", "category": "email", "refresh_interval_days": 90, "date_added": "2024-01-02T00:00:00Z"}
	]
}`

func accountFixture(name string) account.Record {
	return account.Record{
		ServiceName:         name,
		Username:            "user@example.com",
		Category:            account.CategoryGeneral,
		RefreshIntervalDays: 90,
	}
}

func openTestStore(t *testing.T) (*Store, *blobstore.Store) {
	t.Helper()
	blobs, err := blobstore.Open(filepath.Join(t.TempDir(), "test.passwatch.db"))
	if err != nil {
		t.Fatalf("Failed to open blob store: %v", err)
	}
	t.Cleanup(func() { blobs.Close() })
	return New(blobs, zap.NewNop()), blobs
}

func sessionRepo(sess *Session) *repo.Repository {
	return repo.New(sess.DB(), sess, zap.NewNop())
}

func mustCount(t *testing.T, sess *Session) int {
	t.Helper()
	n, err := sessionRepo(sess).Count(context.Background())
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	return n
}

func TestDetectState(t *testing.T) {
	st, blobs := openTestStore(t)

	state, err := st.DetectState()
	if err != nil {
		t.Fatalf("DetectState failed: %v", err)
	}
	if state != StateNew {
		t.Errorf("Expected StateNew, got %v", state)
	}

	if err := blobs.Set(blobstore.KeyLegacyDB, []byte(legacyImage)); err != nil {
		t.Fatalf("Set legacy failed: %v", err)
	}
	state, _ = st.DetectState()
	if state != StateLegacyUnencrypted {
		t.Errorf("Expected StateLegacyUnencrypted, got %v", state)
	}

	// The encrypted key outranks a leftover legacy blob
	if err := blobs.Set(blobstore.KeyEncryptedDB, []byte(`{}`)); err != nil {
		t.Fatalf("Set encrypted failed: %v", err)
	}
	state, _ = st.DetectState()
	if state != StateEncrypted {
		t.Errorf("Expected StateEncrypted, got %v", state)
	}
}

func TestUnlockNew(t *testing.T) {
	ctx := context.Background()
	st, blobs := openTestStore(t)

	sess, err := st.Unlock(ctx, []byte("longpass1"))
	if err != nil {
		t.Fatalf("Unlock on new store failed: %v", err)
	}
	defer sess.Close()

	if n := mustCount(t, sess); n != 0 {
		t.Errorf("Expected empty store, got %d accounts", n)
	}

	// The empty store is persisted encrypted right away
	has, err := blobs.Has(blobstore.KeyEncryptedDB)
	if err != nil || !has {
		t.Errorf("Expected encrypted blob after first unlock, has=%v err=%v", has, err)
	}
	if has, _ := blobs.Has(blobstore.KeyLegacyDB); has {
		t.Error("New store should not have a legacy blob")
	}
}

func TestUnlockEncrypted_RoundTrip(t *testing.T) {
	ctx := context.Background()
	st, _ := openTestStore(t)
	pass := []byte("longpass1")

	sess, err := st.Unlock(ctx, pass)
	if err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	r := sessionRepo(sess)
	if _, err := r.Add(ctx, accountFixture("GitHub")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, err := r.Add(ctx, accountFixture("bank")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := sess.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	sess2, err := st.Unlock(ctx, pass)
	if err != nil {
		t.Fatalf("Second unlock failed: %v", err)
	}
	defer sess2.Close()

	recs, err := sessionRepo(sess2).List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("Expected 2 accounts after reopen, got %d", len(recs))
	}
	if recs[0].ServiceName != "bank" || recs[1].ServiceName != "GitHub" {
		t.Errorf("Unexpected order: %q, %q", recs[0].ServiceName, recs[1].ServiceName)
	}
}

func TestUnlockEncrypted_WrongPassphrase(t *testing.T) {
	ctx := context.Background()
	st, _ := openTestStore(t)

	sess, err := st.Unlock(ctx, []byte("longpass1"))
	if err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	sess.Close()

	bad, err := st.Unlock(ctx, []byte("not-the-passphrase"))
	if !errors.Is(err, ErrWrongPassphrase) {
		t.Errorf("Expected ErrWrongPassphrase, got %v", err)
	}
	if bad != nil {
		t.Error("No session should exist after a failed unlock")
	}
}

func TestUnlockEncrypted_TamperedCiphertext(t *testing.T) {
	ctx := context.Background()
	st, blobs := openTestStore(t)
	pass := []byte("longpass1")

	sess, err := st.Unlock(ctx, pass)
	if err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	sess.Close()

	raw, err := blobs.Get(blobstore.KeyEncryptedDB)
	if err != nil {
		t.Fatalf("Get envelope failed: %v", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("Unmarshal envelope failed: %v", err)
	}
	env.Data[0] ^= 0xFF
	tampered, _ := json.Marshal(env)
	if err := blobs.Set(blobstore.KeyEncryptedDB, tampered); err != nil {
		t.Fatalf("Set tampered failed: %v", err)
	}

	// Corruption reads exactly like a wrong passphrase
	if _, err := st.Unlock(ctx, pass); !errors.Is(err, ErrWrongPassphrase) {
		t.Errorf("Expected ErrWrongPassphrase for tampered data, got %v", err)
	}
}

func TestUnlockEncrypted_DefaultIterations(t *testing.T) {
	ctx := context.Background()
	st, blobs := openTestStore(t)
	pass := []byte("longpass1")

	sess, err := st.Unlock(ctx, pass)
	if err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	sess.Close()

	// An envelope without the iterations field must unlock at the default
	raw, _ := blobs.Get(blobstore.KeyEncryptedDB)
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("Unmarshal envelope failed: %v", err)
	}
	if env.Iterations != crypto.DefaultIters {
		t.Fatalf("Expected %d iterations in envelope, got %d", crypto.DefaultIters, env.Iterations)
	}
	env.Iterations = 0
	stripped, _ := json.Marshal(env)
	if err := blobs.Set(blobstore.KeyEncryptedDB, stripped); err != nil {
		t.Fatalf("Set stripped failed: %v", err)
	}

	sess2, err := st.Unlock(ctx, pass)
	if err != nil {
		t.Fatalf("Unlock without iterations field failed: %v", err)
	}
	sess2.Close()
}

func TestMigrateLegacy(t *testing.T) {
	ctx := context.Background()
	st, blobs := openTestStore(t)

	if err := blobs.Set(blobstore.KeyLegacyDB, []byte(legacyImage)); err != nil {
		t.Fatalf("Set legacy failed: %v", err)
	}

	sess, err := st.Unlock(ctx, []byte("longpass1"))
	if err != nil {
		t.Fatalf("Migration unlock failed: %v", err)
	}
	defer sess.Close()

	if n := mustCount(t, sess); n != 2 {
		t.Errorf("Expected 2 migrated accounts, got %d", n)
	}

	has, _ := blobs.Has(blobstore.KeyEncryptedDB)
	if !has {
		t.Error("Expected encrypted blob after migration")
	}
	has, _ = blobs.Has(blobstore.KeyLegacyDB)
	if has {
		t.Error("Legacy blob should be removed after migration")
	}
}

func TestMigrateLegacy_CrashRetry(t *testing.T) {
	ctx := context.Background()
	st, blobs := openTestStore(t)
	pass := []byte("longpass1")

	if err := blobs.Set(blobstore.KeyLegacyDB, []byte(legacyImage)); err != nil {
		t.Fatalf("Set legacy failed: %v", err)
	}
	sess, err := st.Unlock(ctx, pass)
	if err != nil {
		t.Fatalf("Migration unlock failed: %v", err)
	}
	sess.Close()

	// Simulate a crash between the encrypted write and the legacy delete:
	// the plaintext blob is back while the encrypted one already exists.
	if err := blobs.Set(blobstore.KeyLegacyDB, []byte(legacyImage)); err != nil {
		t.Fatalf("Restore legacy failed: %v", err)
	}

	sess2, err := st.Unlock(ctx, pass)
	if err != nil {
		t.Fatalf("Retry unlock failed: %v", err)
	}
	defer sess2.Close()

	// No records lost, none duplicated
	if n := mustCount(t, sess2); n != 2 {
		t.Errorf("Expected 2 accounts after crash-retry, got %d", n)
	}
	if has, _ := blobs.Has(blobstore.KeyLegacyDB); has {
		t.Error("Leftover legacy blob should be removed on the next unlock")
	}
}

func TestMigrateLegacy_CorruptQuarantined(t *testing.T) {
	ctx := context.Background()
	st, blobs := openTestStore(t)

	garbage := []byte("not json at all")
	if err := blobs.Set(blobstore.KeyLegacyDB, garbage); err != nil {
		t.Fatalf("Set legacy failed: %v", err)
	}

	sess, err := st.Unlock(ctx, []byte("longpass1"))
	if err != nil {
		t.Fatalf("Unlock over corrupt legacy failed: %v", err)
	}
	defer sess.Close()

	if n := mustCount(t, sess); n != 0 {
		t.Errorf("Expected empty store after corrupt legacy, got %d accounts", n)
	}

	// The unreadable bytes are preserved, not discarded
	kept, err := blobs.Get(blobstore.KeyCorruptDB)
	if err != nil {
		t.Fatalf("Expected quarantined blob: %v", err)
	}
	if string(kept) != string(garbage) {
		t.Error("Quarantined bytes differ from the original legacy blob")
	}
	if has, _ := blobs.Has(blobstore.KeyLegacyDB); has {
		t.Error("Legacy blob should be removed after quarantine")
	}
}

func TestChangePassphrase(t *testing.T) {
	ctx := context.Background()
	st, blobs := openTestStore(t)
	oldPass, newPass := []byte("longpass1"), []byte("even-longer-pass2")

	sess, err := st.Unlock(ctx, oldPass)
	if err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if _, err := sessionRepo(sess).Add(ctx, accountFixture("GitHub")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	before, _ := blobs.Get(blobstore.KeyEncryptedDB)
	var envBefore envelope
	if err := json.Unmarshal(before, &envBefore); err != nil {
		t.Fatalf("Unmarshal envelope failed: %v", err)
	}

	if err := sess.ChangePassphrase(ctx, newPass); err != nil {
		t.Fatalf("ChangePassphrase failed: %v", err)
	}

	// A fresh salt replaces the old one in the same envelope
	after, _ := blobs.Get(blobstore.KeyEncryptedDB)
	var envAfter envelope
	if err := json.Unmarshal(after, &envAfter); err != nil {
		t.Fatalf("Unmarshal envelope failed: %v", err)
	}
	if string(envBefore.Salt) == string(envAfter.Salt) {
		t.Error("Expected a new salt after passphrase change")
	}

	// The session stays usable under the new key
	if _, err := sessionRepo(sess).Add(ctx, accountFixture("bank")); err != nil {
		t.Fatalf("Add after passphrase change failed: %v", err)
	}
	sess.Close()

	if _, err := st.Unlock(ctx, oldPass); !errors.Is(err, ErrWrongPassphrase) {
		t.Errorf("Expected old passphrase to fail, got %v", err)
	}

	sess2, err := st.Unlock(ctx, newPass)
	if err != nil {
		t.Fatalf("Unlock with new passphrase failed: %v", err)
	}
	defer sess2.Close()
	if n := mustCount(t, sess2); n != 2 {
		t.Errorf("Expected 2 accounts after passphrase change, got %d", n)
	}
}

func TestSessionClose(t *testing.T) {
	ctx := context.Background()
	st, _ := openTestStore(t)

	sess, err := st.Unlock(ctx, []byte("longpass1"))
	if err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}

	if err := sess.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if sess.key != nil || sess.kdf != nil {
		t.Error("Close must discard key material")
	}
	if err := sess.Persist(ctx); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Expected ErrSessionClosed after Close, got %v", err)
	}
	// Closing twice is fine
	if err := sess.Close(); err != nil {
		t.Errorf("Second Close failed: %v", err)
	}
}

func TestDescribe(t *testing.T) {
	ctx := context.Background()
	st, _ := openTestStore(t)

	info, err := st.Describe()
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if info.State != StateNew || info.Iterations != 0 {
		t.Errorf("Expected new/0, got %v/%d", info.State, info.Iterations)
	}

	sess, err := st.Unlock(ctx, []byte("longpass1"))
	if err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	sess.Close()

	info, err = st.Describe()
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if info.State != StateEncrypted {
		t.Errorf("Expected StateEncrypted, got %v", info.State)
	}
	if info.Iterations != crypto.DefaultIters {
		t.Errorf("Expected %d iterations, got %d", crypto.DefaultIters, info.Iterations)
	}
	if info.Bytes == 0 {
		t.Error("Expected non-empty ciphertext")
	}
}

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		failures int
		want     time.Duration
	}{
		{0, 0},
		{1, 0},
		{2, 0},
		{3, 1 * time.Second},
		{4, 2 * time.Second},
		{10, 8 * time.Second},
		{12, 10 * time.Second},
		{50, 10 * time.Second},
	}
	for _, tt := range tests {
		if got := BackoffDelay(tt.failures); got != tt.want {
			t.Errorf("BackoffDelay(%d) = %v, want %v", tt.failures, got, tt.want)
		}
	}
}
