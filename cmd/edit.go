package cmd

import (
	"context"
	"fmt"

	"github.com/illarion/passwatch/internal/repo"
)

// EditOptions carries the edit command's flags. Nil fields were not given
// on the command line and stay untouched.
type EditOptions struct {
	ServiceName *string
	URL         *string
	Username    *string
	Category    *string
	Interval    *int
	Changed     *string
	Notes       *string
}

// Edit applies a partial update to one account record
func Edit(ctx context.Context, id int64, opts EditOptions) {
	u := repo.Update{
		ServiceName:         opts.ServiceName,
		URL:                 opts.URL,
		Username:            opts.Username,
		Category:            opts.Category,
		RefreshIntervalDays: opts.Interval,
		Notes:               opts.Notes,
	}
	if opts.Changed != nil {
		changed, err := parseWhen(*opts.Changed)
		if err != nil {
			HandleError(err)
		}
		u.LastPasswordChange = &changed
	}

	env, err := Open(ctx)
	if err != nil {
		HandleError(err)
	}
	defer env.Close()

	if _, err := env.Repo.Get(ctx, id); err != nil {
		HandleError(err)
	}
	if err := env.Repo.Update(ctx, id, u); err != nil {
		HandleError(err)
	}
	env.RefreshBadge(ctx)

	rec, err := env.Repo.Get(ctx, id)
	if err != nil {
		HandleError(err)
	}
	fmt.Printf("Updated %s (id %d)\n", rec.ServiceName, rec.ID)
}
