// Package backup implements the versioned JSON export format and the
// validate/import pipeline that moves account records between stores.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/illarion/passwatch/internal/account"
	"github.com/illarion/passwatch/internal/repo"
)

const (
	// DocumentVersion is the current backup document version
	DocumentVersion = 1

	// AppID marks documents produced by this tool
	AppID = "passwatch"
)

// ExportRecord is one account in a backup document. Every field is present
// with its zero default; absent values never serialize as null. Record ids
// are not exported: they belong to the store that assigned them.
type ExportRecord struct {
	ServiceName         string `json:"service_name"`
	URL                 string `json:"url"`
	Username            string `json:"username"`
	Category            string `json:"category"`
	RefreshIntervalDays int    `json:"refresh_interval_days"`
	LastPasswordChange  string `json:"last_password_change"`
	DateAdded           string `json:"date_added"`
	Notes               string `json:"notes"`
}

// Document is a full backup of the account database.
type Document struct {
	Version    int            `json:"version"`
	App        string         `json:"app"`
	ExportedAt string         `json:"exported_at"`
	Count      int            `json:"count"`
	Accounts   []ExportRecord `json:"accounts"`
}

// Export builds a backup document from the given records.
func Export(records []account.Record, now time.Time) *Document {
	accounts := make([]ExportRecord, 0, len(records))
	for _, rec := range records {
		accounts = append(accounts, ExportRecord{
			ServiceName:         rec.ServiceName,
			URL:                 rec.URL,
			Username:            rec.Username,
			Category:            string(rec.Category),
			RefreshIntervalDays: rec.RefreshIntervalDays,
			LastPasswordChange:  account.FormatDate(rec.LastPasswordChange),
			DateAdded:           account.FormatDate(rec.DateAdded),
			Notes:               rec.Notes,
		})
	}
	return &Document{
		Version:    DocumentVersion,
		App:        AppID,
		ExportedAt: account.FormatDate(now),
		Count:      len(accounts),
		Accounts:   accounts,
	}
}

// Encode renders the document as indented JSON, newline-terminated, ready
// to be written to a file.
func (d *Document) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}
	return append(data, '\n'), nil
}

// Parse decodes a backup document. Parse only checks that the bytes are
// JSON of the right shape; Validate judges the content.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse backup: %w", err)
	}
	return &doc, nil
}

// ValidationError reports the first rule a backup document violates.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// Validate checks the document top to bottom and stops at the first
// violation. Bad categories and out-of-range intervals are not violations;
// Import coerces them instead.
func (d *Document) Validate() error {
	if d.Version != DocumentVersion {
		return validationErrorf("unsupported backup version %d (want %d)", d.Version, DocumentVersion)
	}
	if d.App != AppID {
		return validationErrorf("not a %s backup (app %q)", AppID, d.App)
	}
	if len(d.Accounts) == 0 {
		return validationErrorf("backup contains no accounts")
	}
	for i, rec := range d.Accounts {
		if err := validateRecord(i+1, rec); err != nil {
			return err
		}
	}
	return nil
}

func validateRecord(n int, rec ExportRecord) error {
	if strings.TrimSpace(rec.ServiceName) == "" {
		return validationErrorf("record #%d: service_name is required", n)
	}
	if len([]rune(rec.ServiceName)) > account.MaxServiceNameLen {
		return validationErrorf("record #%d: service_name exceeds %d characters", n, account.MaxServiceNameLen)
	}
	if len([]rune(rec.URL)) > account.MaxURLLen {
		return validationErrorf("record #%d: url exceeds %d characters", n, account.MaxURLLen)
	}
	if len([]rune(rec.Username)) > account.MaxUsernameLen {
		return validationErrorf("record #%d: username exceeds %d characters", n, account.MaxUsernameLen)
	}
	return nil
}

// Mode selects how Import treats the records already in the store.
type Mode int

const (
	// ModeMerge keeps existing records and skips incoming duplicates.
	ModeMerge Mode = iota
	// ModeReplace clears the store before importing.
	ModeReplace
)

func (m Mode) String() string {
	if m == ModeReplace {
		return "replace"
	}
	return "merge"
}

// Result reports what Import did.
type Result struct {
	Added   int
	Skipped int
}

// Import loads the document's accounts into the repository. Duplicates are
// matched by the lowercased service name and URL pair; in merge mode both
// records already in the store and earlier records of the same batch count,
// in replace mode only the batch. Accepted records are trimmed and clamped
// again at insert regardless of prior validation.
func Import(ctx context.Context, r *repo.Repository, accounts []ExportRecord, mode Mode) (Result, error) {
	var res Result

	if mode == ModeReplace {
		if err := r.Clear(ctx); err != nil {
			return res, err
		}
	}

	seen := make(map[string]bool, len(accounts))
	if mode == ModeMerge {
		existing, err := r.List(ctx)
		if err != nil {
			return res, err
		}
		for _, rec := range existing {
			seen[account.DedupKey(rec.ServiceName, rec.URL)] = true
		}
	}

	var recs []account.Record
	for _, in := range accounts {
		key := account.DedupKey(in.ServiceName, in.URL)
		if seen[key] {
			res.Skipped++
			continue
		}
		seen[key] = true
		recs = append(recs, importRecord(in))
	}

	if len(recs) == 0 {
		return res, nil
	}
	added, err := r.ImportMany(ctx, recs)
	res.Added = added
	return res, err
}

// Records converts the document's accounts into sanitized records, the
// same normalization Import applies, so renderings compare like with like.
func (d *Document) Records() []account.Record {
	recs := make([]account.Record, 0, len(d.Accounts))
	for _, in := range d.Accounts {
		recs = append(recs, importRecord(in))
	}
	return recs
}

func importRecord(in ExportRecord) account.Record {
	rec := account.Record{
		ServiceName:         in.ServiceName,
		URL:                 in.URL,
		Username:            in.Username,
		Category:            account.Category(in.Category),
		RefreshIntervalDays: in.RefreshIntervalDays,
		LastPasswordChange:  account.ParseDate(in.LastPasswordChange),
		DateAdded:           account.ParseDate(in.DateAdded),
		Notes:               in.Notes,
	}
	rec.Sanitize()
	return rec
}
