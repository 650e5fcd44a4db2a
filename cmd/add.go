package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/illarion/passwatch/internal/account"
)

// AddOptions carries the add command's flags
type AddOptions struct {
	URL      string
	Username string
	Category string
	Interval int
	Changed  string
	Notes    string
}

// Add creates a new account record
func Add(ctx context.Context, serviceName string, opts AddOptions) {
	changed, err := parseWhen(opts.Changed)
	if err != nil {
		HandleError(err)
	}

	env, err := Open(ctx)
	if err != nil {
		HandleError(err)
	}
	defer env.Close()

	rec := account.Record{
		ServiceName:         serviceName,
		URL:                 opts.URL,
		Username:            opts.Username,
		Category:            account.NormalizeCategory(opts.Category),
		RefreshIntervalDays: opts.Interval,
		LastPasswordChange:  changed,
		Notes:               opts.Notes,
	}
	rec.Sanitize()

	id, err := env.Repo.Add(ctx, rec)
	if err != nil {
		HandleError(err)
	}
	env.RefreshBadge(ctx)

	fmt.Printf("Added %s (id %d)\n", rec.ServiceName, id)
}

// parseWhen parses a user-supplied password-change moment: "now", "never",
// an RFC 3339 timestamp or a plain YYYY-MM-DD date. Empty means never
// changed.
func parseWhen(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "never":
		return time.Time{}, nil
	case "now":
		return time.Now(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD, RFC 3339, \"now\" or \"never\")", s)
}
