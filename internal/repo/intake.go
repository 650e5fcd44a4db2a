package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/illarion/passwatch/internal/account"
	"github.com/illarion/passwatch/internal/blobstore"
)

// PendingAccount is an externally detected signup waiting for intake
type PendingAccount struct {
	ServiceName string `json:"service_name"`
	URL         string `json:"url,omitempty"`
	Username    string `json:"username,omitempty"`
	DetectedAt  string `json:"detected_at,omitempty"`
}

// ImportPending drains the pendingAccounts blob into the repository.
// Entries that duplicate an existing record (same service name and URL,
// case-insensitively) are dropped. The blob is cleared even when nothing
// was added, so detections are consumed exactly once.
func (r *Repository) ImportPending(ctx context.Context, blobs *blobstore.Store) (int, error) {
	data, err := blobs.Get(blobstore.KeyPendingAccounts)
	if errors.Is(err, blobstore.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read pending accounts: %w", err)
	}

	var pending []PendingAccount
	if err := json.Unmarshal(data, &pending); err != nil {
		r.log.Warn("discarding malformed pending accounts blob", zap.Error(err))
		return 0, blobs.Remove(blobstore.KeyPendingAccounts)
	}

	existing, err := r.List(ctx)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(existing))
	for _, rec := range existing {
		seen[account.DedupKey(rec.ServiceName, rec.URL)] = true
	}

	var recs []account.Record
	for _, p := range pending {
		rec := account.Record{
			ServiceName: p.ServiceName,
			URL:         p.URL,
			Username:    p.Username,
			DateAdded:   account.ParseDate(p.DetectedAt),
		}
		rec.Sanitize()
		if rec.ServiceName == "" {
			continue
		}
		key := account.DedupKey(rec.ServiceName, rec.URL)
		if seen[key] {
			continue
		}
		seen[key] = true
		recs = append(recs, rec)
	}

	added := 0
	if len(recs) > 0 {
		added, err = r.ImportMany(ctx, recs)
		if err != nil {
			return added, err
		}
	}
	if err := blobs.Remove(blobstore.KeyPendingAccounts); err != nil {
		return added, fmt.Errorf("clear pending accounts: %w", err)
	}
	if added > 0 {
		r.log.Info("imported pending accounts", zap.Int("added", added))
	}
	return added, nil
}

// RefreshBadgeCache publishes the overdue count and service names for the
// reminder layer, replacing any previous values
func (r *Repository) RefreshBadgeCache(ctx context.Context, blobs *blobstore.Store, now time.Time) error {
	overdue, err := r.ByStatus(ctx, account.StatusOverdue, now)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(overdue))
	for _, rec := range overdue {
		names = append(names, rec.ServiceName)
	}

	if err := blobs.Set(blobstore.KeyOverdueCount, []byte(strconv.Itoa(len(overdue)))); err != nil {
		return fmt.Errorf("write overdue count: %w", err)
	}
	data, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("encode overdue names: %w", err)
	}
	if err := blobs.Set(blobstore.KeyOverdueNames, data); err != nil {
		return fmt.Errorf("write overdue names: %w", err)
	}

	r.log.Debug("refreshed badge cache", zap.Int("overdue", len(overdue)))
	return nil
}
