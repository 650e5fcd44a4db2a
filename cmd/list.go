package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/illarion/passwatch/internal/account"
)

// ListOptions carries the list command's flags
type ListOptions struct {
	Query  string
	Status string
}

// List prints the tracked accounts, optionally filtered by a search query
// and a rotation status
func List(ctx context.Context, opts ListOptions) {
	var statusFilter account.Status
	if opts.Status != "" {
		parsed, ok := account.ParseStatus(opts.Status)
		if !ok {
			HandleError(fmt.Errorf("invalid status %q (want overdue, due_soon or good)", opts.Status))
		}
		statusFilter = parsed
	}

	env, err := Open(ctx)
	if err != nil {
		HandleError(err)
	}
	defer env.Close()

	recs, err := env.Repo.Search(ctx, opts.Query)
	if err != nil {
		HandleError(err)
	}
	env.RefreshBadge(ctx)

	now := time.Now()
	if statusFilter != "" {
		filtered := recs[:0]
		for _, rec := range recs {
			if rec.Status(now) == statusFilter {
				filtered = append(filtered, rec)
			}
		}
		recs = filtered
	}

	if len(recs) == 0 {
		fmt.Println("No accounts found")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSERVICE\tUSERNAME\tCATEGORY\tSTATUS\tDUE")
	for _, rec := range recs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			rec.ID, rec.ServiceName, rec.Username, rec.Category,
			rec.Status(now), dueColumn(rec, now))
	}
	w.Flush()
}

// dueColumn renders how far a record is from its rotation due date
func dueColumn(rec account.Record, now time.Time) string {
	days, ok := rec.DaysUntilDue(now)
	if !ok {
		return "never changed"
	}
	switch {
	case days > 0:
		return fmt.Sprintf("in %dd", days)
	case days == 0:
		return "today"
	default:
		return fmt.Sprintf("%dd ago", -days)
	}
}
