package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/illarion/passwatch/internal/account"
)

var (
	ErrNotFound            = errors.New("account not found")
	ErrServiceNameRequired = errors.New("service name is required")
)

// Persister writes the current database state to durable storage. The
// unlocked session implements it by encrypting a full image.
type Persister interface {
	Persist(ctx context.Context) error
}

// Repository provides account record operations over the in-memory
// database of an unlocked session. Every mutation persists before
// returning; a persist failure is logged and surfaced but the in-memory
// change stands.
type Repository struct {
	db      *sql.DB
	persist Persister
	log     *zap.Logger
}

// New creates a repository over an unlocked session's database
func New(db *sql.DB, p Persister, log *zap.Logger) *Repository {
	return &Repository{db: db, persist: p, log: log}
}

const selectCols = `id, service_name, url, username, category, refresh_interval_days, last_password_change, date_added, notes`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (account.Record, error) {
	var rec account.Record
	var category, lastChange, dateAdded string
	err := row.Scan(&rec.ID, &rec.ServiceName, &rec.URL, &rec.Username,
		&category, &rec.RefreshIntervalDays, &lastChange, &dateAdded, &rec.Notes)
	if err != nil {
		return account.Record{}, err
	}
	rec.Category = account.Category(category)
	rec.LastPasswordChange = account.ParseDate(lastChange)
	rec.DateAdded = account.ParseDate(dateAdded)
	return rec, nil
}

func (r *Repository) insert(ctx context.Context, rec account.Record) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (service_name, url, username, category,
			refresh_interval_days, last_password_change, date_added, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ServiceName, rec.URL, rec.Username, string(rec.Category),
		rec.RefreshIntervalDays, account.FormatDate(rec.LastPasswordChange),
		account.FormatDate(rec.DateAdded), rec.Notes)
	if err != nil {
		return 0, fmt.Errorf("insert account: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert account: %w", err)
	}
	return id, nil
}

func (r *Repository) persistAfter(ctx context.Context) error {
	if err := r.persist.Persist(ctx); err != nil {
		// In-memory state keeps the change; only durability failed
		r.log.Error("persist after mutation failed", zap.Error(err))
		return err
	}
	return nil
}

// Add stores a new record and returns its assigned id
func (r *Repository) Add(ctx context.Context, rec account.Record) (int64, error) {
	rec.Sanitize()
	if rec.ServiceName == "" {
		return 0, ErrServiceNameRequired
	}
	if rec.DateAdded.IsZero() {
		rec.DateAdded = time.Now()
	}

	id, err := r.insert(ctx, rec)
	if err != nil {
		return 0, err
	}
	return id, r.persistAfter(ctx)
}

// Update describes a partial change to a record. Nil fields stay
// untouched. A zero *LastPasswordChange resets the record to never
// changed.
type Update struct {
	ServiceName         *string
	URL                 *string
	Username            *string
	Category            *string
	RefreshIntervalDays *int
	LastPasswordChange  *time.Time
	Notes               *string
}

// Update applies a partial change to the record with the given id. An
// update with no fields set is a no-op and does not persist. Updating an
// unknown id changes nothing.
func (r *Repository) Update(ctx context.Context, id int64, u Update) error {
	var sets []string
	var args []any

	if u.ServiceName != nil {
		name := account.ClampText(*u.ServiceName, account.MaxServiceNameLen)
		if name == "" {
			return ErrServiceNameRequired
		}
		sets = append(sets, "service_name = ?")
		args = append(args, name)
	}
	if u.URL != nil {
		sets = append(sets, "url = ?")
		args = append(args, account.ClampText(*u.URL, account.MaxURLLen))
	}
	if u.Username != nil {
		sets = append(sets, "username = ?")
		args = append(args, account.ClampText(*u.Username, account.MaxUsernameLen))
	}
	if u.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, string(account.NormalizeCategory(*u.Category)))
	}
	if u.RefreshIntervalDays != nil {
		sets = append(sets, "refresh_interval_days = ?")
		args = append(args, account.ClampInterval(*u.RefreshIntervalDays))
	}
	if u.LastPasswordChange != nil {
		sets = append(sets, "last_password_change = ?")
		args = append(args, account.FormatDate(*u.LastPasswordChange))
	}
	if u.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, account.ClampText(*u.Notes, account.MaxNotesLen))
	}

	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	query := "UPDATE accounts SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return r.persistAfter(ctx)
}

// Delete removes the record with the given id. Deleting an unknown id is
// not an error.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return r.persistAfter(ctx)
}

// MarkRefreshed records a password change at the current moment
func (r *Repository) MarkRefreshed(ctx context.Context, id int64) error {
	now := time.Now()
	return r.Update(ctx, id, Update{LastPasswordChange: &now})
}

// Get retrieves a single record by id
func (r *Repository) Get(ctx context.Context, id int64) (account.Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectCols+` FROM accounts WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return account.Record{}, ErrNotFound
	}
	if err != nil {
		return account.Record{}, fmt.Errorf("get account: %w", err)
	}
	return rec, nil
}

// List returns all records ordered by service name (case-insensitive),
// then id for a stable order between equal names.
func (r *Repository) List(ctx context.Context) ([]account.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectCols+` FROM accounts ORDER BY service_name COLLATE NOCASE ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var recs []account.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return recs, nil
}

// Search returns records whose service name, URL or username contains the
// query, case-insensitively. An empty query matches everything.
func (r *Repository) Search(ctx context.Context, query string) ([]account.Record, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return all, nil
	}

	var out []account.Record
	for _, rec := range all {
		if strings.Contains(strings.ToLower(rec.ServiceName), q) ||
			strings.Contains(strings.ToLower(rec.URL), q) ||
			strings.Contains(strings.ToLower(rec.Username), q) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// ByStatus returns records whose rotation status at now matches status,
// in List order
func (r *Repository) ByStatus(ctx context.Context, status account.Status, now time.Time) ([]account.Record, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []account.Record
	for _, rec := range all {
		if rec.Status(now) == status {
			out = append(out, rec)
		}
	}
	return out, nil
}

// OverdueCount returns how many records are overdue at now
func (r *Repository) OverdueCount(ctx context.Context, now time.Time) (int, error) {
	overdue, err := r.ByStatus(ctx, account.StatusOverdue, now)
	if err != nil {
		return 0, err
	}
	return len(overdue), nil
}

// Count returns the total number of records
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

// Clear removes all records with a single persist. Assigned ids are not
// reused afterwards.
func (r *Repository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM accounts`); err != nil {
		return fmt.Errorf("clear accounts: %w", err)
	}
	return r.persistAfter(ctx)
}

// ImportMany inserts a batch of records with a single persist at the end.
// Incoming ids are ignored; the repository assigns fresh ones. Records
// without a service name are dropped. Returns the number inserted.
func (r *Repository) ImportMany(ctx context.Context, recs []account.Record) (int, error) {
	added := 0
	for _, rec := range recs {
		rec.Sanitize()
		if rec.ServiceName == "" {
			continue
		}
		if rec.DateAdded.IsZero() {
			rec.DateAdded = time.Now()
		}
		if _, err := r.insert(ctx, rec); err != nil {
			return added, err
		}
		added++
	}
	if added == 0 {
		return 0, nil
	}
	return added, r.persistAfter(ctx)
}
