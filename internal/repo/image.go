package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/illarion/passwatch/internal/account"
)

// ImageVersion is the current database image serialization version
const ImageVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	service_name TEXT NOT NULL,
	url TEXT NOT NULL DEFAULT '',
	username TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT 'general',
	refresh_interval_days INTEGER NOT NULL DEFAULT 90,
	last_password_change TEXT NOT NULL DEFAULT '',
	date_added TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT ''
);
`

// InitSchema creates the accounts table in a fresh database
func InitSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Image is the serialized form of the whole account database. NextID
// carries the id counter so ids of deleted records are never reused after
// a reload.
type Image struct {
	Version  int           `json:"version"`
	NextID   int64         `json:"next_id"`
	Accounts []imageRecord `json:"accounts"`
}

type imageRecord struct {
	ID                  int64  `json:"id"`
	ServiceName         string `json:"service_name"`
	URL                 string `json:"url,omitempty"`
	Username            string `json:"username,omitempty"`
	Category            string `json:"category"`
	RefreshIntervalDays int    `json:"refresh_interval_days"`
	LastPasswordChange  string `json:"last_password_change,omitempty"`
	DateAdded           string `json:"date_added"`
	Notes               string `json:"notes,omitempty"`
}

// Encode renders the image as JSON
func (img *Image) Encode() ([]byte, error) {
	data, err := json.Marshal(img)
	if err != nil {
		return nil, fmt.Errorf("encode database image: %w", err)
	}
	return data, nil
}

// ParseImage decodes an image produced by DumpImage or read from the
// legacy plaintext store. Legacy images without a version field parse as
// version zero.
func ParseImage(data []byte) (*Image, error) {
	var img Image
	if err := json.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("parse database image: %w", err)
	}
	if img.Version > ImageVersion {
		return nil, fmt.Errorf("unsupported database image version %d", img.Version)
	}
	return &img, nil
}

// DumpImage serializes the full database
func DumpImage(ctx context.Context, db *sql.DB) (*Image, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+selectCols+` FROM accounts ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("dump accounts: %w", err)
	}
	defer rows.Close()

	img := &Image{Version: ImageVersion, Accounts: []imageRecord{}}
	var maxID int64
	for rows.Next() {
		var rec imageRecord
		if err := rows.Scan(&rec.ID, &rec.ServiceName, &rec.URL, &rec.Username,
			&rec.Category, &rec.RefreshIntervalDays, &rec.LastPasswordChange,
			&rec.DateAdded, &rec.Notes); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		if rec.ID > maxID {
			maxID = rec.ID
		}
		img.Accounts = append(img.Accounts, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dump accounts: %w", err)
	}

	var seq sql.NullInt64
	err = db.QueryRowContext(ctx, `SELECT seq FROM sqlite_sequence WHERE name = 'accounts'`).Scan(&seq)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read id sequence: %w", err)
	}
	img.NextID = seq.Int64 + 1
	if img.NextID <= maxID {
		img.NextID = maxID + 1
	}
	return img, nil
}

// LoadImage restores an image into an empty database, keeping record ids
// and the id counter. Field values are re-clamped on the way in.
func LoadImage(ctx context.Context, db *sql.DB, img *Image) error {
	if err := InitSchema(ctx, db); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin image load: %w", err)
	}
	defer tx.Rollback()

	var maxID int64
	for _, in := range img.Accounts {
		rec := account.Record{
			ServiceName:         in.ServiceName,
			URL:                 in.URL,
			Username:            in.Username,
			Category:            account.Category(in.Category),
			RefreshIntervalDays: in.RefreshIntervalDays,
			Notes:               in.Notes,
		}
		rec.Sanitize()

		if in.ID > 0 {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO accounts (id, service_name, url, username, category,
					refresh_interval_days, last_password_change, date_added, notes)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				in.ID, rec.ServiceName, rec.URL, rec.Username, string(rec.Category),
				rec.RefreshIntervalDays, in.LastPasswordChange, in.DateAdded, rec.Notes)
			if in.ID > maxID {
				maxID = in.ID
			}
		} else {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO accounts (service_name, url, username, category,
					refresh_interval_days, last_password_change, date_added, notes)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				rec.ServiceName, rec.URL, rec.Username, string(rec.Category),
				rec.RefreshIntervalDays, in.LastPasswordChange, in.DateAdded, rec.Notes)
		}
		if err != nil {
			return fmt.Errorf("load account %q: %w", rec.ServiceName, err)
		}
	}

	next := img.NextID
	if next <= maxID {
		next = maxID + 1
	}
	if next > 1 {
		if err := setSequence(ctx, tx, next-1); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit image load: %w", err)
	}
	return nil
}

// setSequence forces the AUTOINCREMENT counter so the next insert gets
// seq+1. The sqlite_sequence row only exists after a first insert, hence
// the update-then-insert dance.
func setSequence(ctx context.Context, tx *sql.Tx, seq int64) error {
	res, err := tx.ExecContext(ctx, `UPDATE sqlite_sequence SET seq = ? WHERE name = 'accounts'`, seq)
	if err != nil {
		return fmt.Errorf("set id sequence: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set id sequence: %w", err)
	}
	if n == 0 {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sqlite_sequence (name, seq) VALUES ('accounts', ?)`, seq); err != nil {
			return fmt.Errorf("set id sequence: %w", err)
		}
	}
	return nil
}
