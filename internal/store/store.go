package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/illarion/passwatch/internal/blobstore"
	"github.com/illarion/passwatch/internal/crypto"
	"github.com/illarion/passwatch/internal/repo"
)

var (
	// ErrWrongPassphrase covers every decryption and integrity failure
	// during unlock, so a wrong key is indistinguishable from tampered or
	// corrupted ciphertext.
	ErrWrongPassphrase = errors.New("wrong passphrase")

	// ErrCorruptData marks a legacy plaintext database that could not be
	// parsed. Non-fatal: migration quarantines the bytes and continues
	// with an empty store.
	ErrCorruptData = errors.New("corrupt account database")

	// ErrPersistFailed wraps blob-store write failures. The in-memory
	// change is kept; the caller may retry the persist.
	ErrPersistFailed = errors.New("failed to persist account database")

	// ErrSessionClosed is returned by operations on a locked session.
	ErrSessionClosed = errors.New("session is locked")
)

// State describes what the blob store currently holds.
type State int

const (
	StateNew State = iota
	StateLegacyUnencrypted
	StateEncrypted
)

func (s State) String() string {
	switch s {
	case StateLegacyUnencrypted:
		return "legacy-unencrypted"
	case StateEncrypted:
		return "encrypted"
	}
	return "new"
}

// envelope is the stored form of the encrypted database. Iterations
// travels with the ciphertext so the KDF cost can be raised without
// breaking stores written at the old cost; zero means the default.
type envelope struct {
	Salt       []byte `json:"salt"`
	IV         []byte `json:"iv"`
	Data       []byte `json:"data"`
	Iterations int    `json:"iterations,omitempty"`
}

func parseEnvelope(raw []byte) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("parse envelope: %w", err)
	}
	if env.Iterations <= 0 {
		env.Iterations = crypto.DefaultIters
	}
	return &env, nil
}

// Store resolves persisted state and produces unlocked sessions.
type Store struct {
	blobs *blobstore.Store
	log   *zap.Logger
}

// New creates a state machine over an open blob store.
func New(blobs *blobstore.Store, log *zap.Logger) *Store {
	return &Store{blobs: blobs, log: log}
}

// DetectState inspects the blob store. An encrypted envelope wins over a
// leftover legacy blob.
func (s *Store) DetectState() (State, error) {
	has, err := s.blobs.Has(blobstore.KeyEncryptedDB)
	if err != nil {
		return StateNew, err
	}
	if has {
		return StateEncrypted, nil
	}
	has, err = s.blobs.Has(blobstore.KeyLegacyDB)
	if err != nil {
		return StateNew, err
	}
	if has {
		return StateLegacyUnencrypted, nil
	}
	return StateNew, nil
}

// Info describes the persisted store without unlocking it.
type Info struct {
	State      State
	Iterations int // KDF cost of the stored envelope, 0 unless encrypted
	Bytes      int // ciphertext size, 0 unless encrypted
}

// Describe reports the current state and, for an encrypted store, the
// envelope's KDF cost and ciphertext size.
func (s *Store) Describe() (Info, error) {
	state, err := s.DetectState()
	if err != nil {
		return Info{}, err
	}
	info := Info{State: state}
	if state != StateEncrypted {
		return info, nil
	}
	raw, err := s.blobs.Get(blobstore.KeyEncryptedDB)
	if err != nil {
		return info, err
	}
	env, err := parseEnvelope(raw)
	if err != nil {
		// Unlock will refuse it; Describe just reports what is there.
		return info, nil
	}
	info.Iterations = env.Iterations
	info.Bytes = len(env.Data)
	return info, nil
}

// Unlock resolves the persisted state and opens a session for it:
// decrypting an encrypted store, migrating a legacy one, or creating a
// fresh empty store. The passphrase belongs to the caller and is not
// retained.
func (s *Store) Unlock(ctx context.Context, passphrase []byte) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	state, err := s.DetectState()
	if err != nil {
		return nil, err
	}

	switch state {
	case StateEncrypted:
		return s.unlockEncrypted(ctx, passphrase)
	case StateLegacyUnencrypted:
		return s.migrateLegacy(ctx, passphrase)
	default:
		return s.initNew(ctx, passphrase)
	}
}

// unlockEncrypted derives the key from the stored salt, decrypts the
// envelope and loads the image. Every failure past this point reads as
// ErrWrongPassphrase: with authenticated encryption a bad key and
// corrupted data are deliberately indistinguishable. No session or key
// material survives a failed unlock.
func (s *Store) unlockEncrypted(ctx context.Context, passphrase []byte) (*Session, error) {
	raw, err := s.blobs.Get(blobstore.KeyEncryptedDB)
	if err != nil {
		return nil, fmt.Errorf("read encrypted database: %w", err)
	}

	env, err := parseEnvelope(raw)
	if err != nil {
		s.log.Debug("encrypted envelope is unreadable", zap.Error(err))
		return nil, ErrWrongPassphrase
	}

	kdf := &crypto.KDF{Salt: env.Salt, Iterations: env.Iterations}
	key := kdf.DeriveKey(passphrase)

	plain, err := crypto.Decrypt(key, env.IV, env.Data)
	if err != nil {
		crypto.ClearBytes(key)
		return nil, ErrWrongPassphrase
	}

	img, err := repo.ParseImage(plain)
	crypto.ClearBytes(plain)
	if err != nil {
		crypto.ClearBytes(key)
		s.log.Debug("decrypted image failed to parse", zap.Error(err))
		return nil, ErrWrongPassphrase
	}

	db, err := openMemoryDB()
	if err != nil {
		crypto.ClearBytes(key)
		return nil, err
	}
	if err := repo.LoadImage(ctx, db, img); err != nil {
		db.Close()
		crypto.ClearBytes(key)
		s.log.Debug("image load failed", zap.Error(err))
		return nil, ErrWrongPassphrase
	}
	if err := probeSchema(ctx, db); err != nil {
		db.Close()
		crypto.ClearBytes(key)
		s.log.Debug("integrity probe failed", zap.Error(err))
		return nil, ErrWrongPassphrase
	}

	// A plaintext copy that survived a crash between the migration write
	// and its delete is stale once the encrypted store unlocks.
	if has, herr := s.blobs.Has(blobstore.KeyLegacyDB); herr == nil && has {
		if err := s.blobs.Remove(blobstore.KeyLegacyDB); err != nil {
			s.log.Warn("failed to remove leftover legacy database", zap.Error(err))
		} else {
			s.log.Info("removed leftover legacy database after completed migration")
		}
	}

	return &Session{store: s, kdf: kdf, key: key, db: db}, nil
}

// migrateLegacy performs the one-way legacy to encrypted transition. The
// plaintext blob is removed only after the encrypted envelope has been
// written, so a crash at any point leaves a store the next unlock can
// still recover.
func (s *Store) migrateLegacy(ctx context.Context, passphrase []byte) (*Session, error) {
	raw, err := s.blobs.Get(blobstore.KeyLegacyDB)
	if err != nil {
		return nil, fmt.Errorf("read legacy database: %w", err)
	}

	img, perr := repo.ParseImage(raw)
	if perr != nil {
		// Preserve-and-warn: quarantine the unreadable bytes instead of
		// discarding them, then continue with an empty store.
		cerr := fmt.Errorf("%w: %v", ErrCorruptData, perr)
		if qerr := s.blobs.Set(blobstore.KeyCorruptDB, raw); qerr != nil {
			s.log.Warn("failed to quarantine corrupt legacy database", zap.Error(qerr))
		}
		s.log.Warn("legacy database is unreadable, continuing with an empty store",
			zap.Error(cerr), zap.String("quarantined_as", blobstore.KeyCorruptDB))
		img = nil
	}

	sess, err := s.createSession(ctx, passphrase, img)
	if err != nil {
		return nil, err
	}

	if err := sess.Persist(ctx); err != nil {
		// Legacy blob untouched; nothing is lost, the migration reruns.
		sess.Close()
		return nil, err
	}

	if err := s.blobs.Remove(blobstore.KeyLegacyDB); err != nil {
		// The encrypted copy already won; the leftover goes on the next
		// successful unlock.
		s.log.Warn("failed to remove legacy plaintext database", zap.Error(err))
	}

	migrated := 0
	if img != nil {
		migrated = len(img.Accounts)
	}
	s.log.Info("migrated legacy database to encrypted storage", zap.Int("accounts", migrated))
	return sess, nil
}

// initNew creates an empty encrypted store under a fresh salt.
func (s *Store) initNew(ctx context.Context, passphrase []byte) (*Session, error) {
	sess, err := s.createSession(ctx, passphrase, nil)
	if err != nil {
		return nil, err
	}
	if err := sess.Persist(ctx); err != nil {
		sess.Close()
		return nil, err
	}
	s.log.Info("created new encrypted store")
	return sess, nil
}

// createSession derives fresh key material and loads img into a new
// in-memory database; a nil img means an empty schema.
func (s *Store) createSession(ctx context.Context, passphrase []byte, img *repo.Image) (*Session, error) {
	kdf, err := crypto.NewKDF()
	if err != nil {
		return nil, err
	}
	key := kdf.DeriveKey(passphrase)

	db, err := openMemoryDB()
	if err != nil {
		crypto.ClearBytes(key)
		return nil, err
	}

	if img != nil {
		err = repo.LoadImage(ctx, db, img)
	} else {
		err = repo.InitSchema(ctx, db)
	}
	if err != nil {
		db.Close()
		crypto.ClearBytes(key)
		return nil, err
	}

	return &Session{store: s, kdf: kdf, key: key, db: db}, nil
}

// openMemoryDB opens a fresh in-memory database. The shared cache plus a
// single pooled connection keeps exactly one handle alive for the
// session's lifetime; closing it drops the database. The single
// connection also serializes all repository mutations.
func openMemoryDB() (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open session database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}

// probeSchema is the read-only integrity check an unlock must pass.
func probeSchema(ctx context.Context, db *sql.DB) error {
	var n int
	return db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n)
}

// Session is the unlocked store: the derived key, the KDF parameters it
// came from and the live in-memory database. It exists only between a
// successful Unlock and Close.
type Session struct {
	store  *Store
	kdf    *crypto.KDF
	key    []byte
	db     *sql.DB
	closed bool
}

// DB exposes the session's database for the record repository.
func (sess *Session) DB() *sql.DB {
	return sess.db
}

// Iterations reports the KDF cost the session's key was derived at.
func (sess *Session) Iterations() int {
	if sess.kdf == nil {
		return 0
	}
	return sess.kdf.Iterations
}

// Persist serializes the full database, encrypts it under the session key
// and replaces the stored envelope. Nothing is written before encryption
// completes, and the envelope is replaced in a single Set.
func (sess *Session) Persist(ctx context.Context) error {
	if sess.closed {
		return ErrSessionClosed
	}
	return sess.writeEnvelope(ctx, sess.kdf, sess.key)
}

// ChangePassphrase re-encrypts the store under a new salt and key derived
// from newPassphrase. The old passphrase is not required; the session is
// already unlocked. A failed write leaves both the stored envelope and
// the session's key material untouched.
func (sess *Session) ChangePassphrase(ctx context.Context, newPassphrase []byte) error {
	if sess.closed {
		return ErrSessionClosed
	}

	kdf, err := crypto.NewKDF()
	if err != nil {
		return err
	}
	key := kdf.DeriveKey(newPassphrase)

	if err := sess.writeEnvelope(ctx, kdf, key); err != nil {
		crypto.ClearBytes(key)
		return err
	}

	// The stored envelope now carries the new salt and ciphertext; only
	// then does the session swap its material.
	crypto.ClearBytes(sess.key)
	sess.kdf = kdf
	sess.key = key
	sess.store.log.Info("passphrase changed, store re-encrypted")
	return nil
}

// writeEnvelope dumps, encrypts and stores the database under the given
// key material. Salt, nonce and ciphertext land in one Set so the stored
// envelope is never a mix of generations.
func (sess *Session) writeEnvelope(ctx context.Context, kdf *crypto.KDF, key []byte) error {
	img, err := repo.DumpImage(ctx, sess.db)
	if err != nil {
		return err
	}
	plain, err := img.Encode()
	if err != nil {
		return err
	}

	nonce, ciphertext, err := crypto.Encrypt(key, plain)
	crypto.ClearBytes(plain)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(envelope{
		Salt:       kdf.Salt,
		IV:         nonce,
		Data:       ciphertext,
		Iterations: kdf.Iterations,
	})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	if err := sess.store.blobs.Set(blobstore.KeyEncryptedDB, raw); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	return nil
}

// Close locks the session: key material is wiped and the database handle
// released. Persisted state is untouched. Safe to call more than once.
func (sess *Session) Close() error {
	if sess.closed {
		return nil
	}
	sess.closed = true
	crypto.ClearBytes(sess.key)
	sess.key = nil
	if sess.kdf != nil {
		crypto.ClearBytes(sess.kdf.Salt)
		sess.kdf = nil
	}
	return sess.db.Close()
}

// BackoffDelay is the wait the caller must impose before the next unlock
// attempt after a run of consecutive wrong-passphrase failures: nothing
// for the first two, then a second more per failure, capped at ten.
func BackoffDelay(failedAttempts int) time.Duration {
	if failedAttempts < 3 {
		return 0
	}
	secs := failedAttempts - 2
	if secs > 10 {
		secs = 10
	}
	return time.Duration(secs) * time.Second
}
