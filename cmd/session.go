package cmd

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/illarion/passwatch/internal/blobstore"
	"github.com/illarion/passwatch/internal/repo"
	"github.com/illarion/passwatch/internal/store"
)

// Env bundles everything an unlocked command works with
type Env struct {
	Blobs   *blobstore.Store
	Store   *store.Store
	Session *store.Session
	Repo    *repo.Repository
	Log     *zap.Logger
}

// Open resolves the database path, opens the blob store and unlocks it
func Open(ctx context.Context) (*Env, error) {
	path, err := StorePath()
	if err != nil {
		return nil, err
	}
	blobs, err := blobstore.Open(path)
	if err != nil {
		return nil, err
	}
	env, err := OpenWith(ctx, blobs, NewLogger())
	if err != nil {
		blobs.Close()
		return nil, err
	}
	return env, nil
}

// OpenWith unlocks an already open blob store. Pending signup detections
// are drained into the repository before the command proper runs.
func OpenWith(ctx context.Context, blobs *blobstore.Store, log *zap.Logger) (*Env, error) {
	st := store.New(blobs, log)

	storeID, err := blobs.StoreID()
	if err != nil {
		// Keyring lookup is best-effort only
		log.Debug("store id unavailable", zap.Error(err))
		storeID = ""
	}

	sess, err := unlockWithRetry(ctx, st, storeID)
	if err != nil {
		return nil, err
	}

	env := &Env{
		Blobs:   blobs,
		Store:   st,
		Session: sess,
		Repo:    repo.New(sess.DB(), sess, log),
		Log:     log,
	}

	if _, err := env.Repo.ImportPending(ctx, blobs); err != nil {
		log.Warn("pending account intake failed", zap.Error(err))
	}
	return env, nil
}

// Close locks the session and releases the database
func (e *Env) Close() {
	if e.Session != nil {
		e.Session.Close()
	}
	if e.Blobs != nil {
		e.Blobs.Close()
	}
	_ = e.Log.Sync()
}

// RefreshBadge recomputes the overdue cache for the reminder layer.
// Failures are logged, never fatal.
func (e *Env) RefreshBadge(ctx context.Context) {
	if err := e.Repo.RefreshBadgeCache(ctx, e.Blobs, time.Now()); err != nil {
		e.Log.Warn("badge cache refresh failed", zap.Error(err))
	}
}
