package cmd

import (
	"context"
	"fmt"
)

// Refreshed records that an account's password was just changed
func Refreshed(ctx context.Context, id int64) {
	env, err := Open(ctx)
	if err != nil {
		HandleError(err)
	}
	defer env.Close()

	if _, err := env.Repo.Get(ctx, id); err != nil {
		HandleError(err)
	}
	if err := env.Repo.MarkRefreshed(ctx, id); err != nil {
		HandleError(err)
	}
	env.RefreshBadge(ctx)

	rec, err := env.Repo.Get(ctx, id)
	if err != nil {
		HandleError(err)
	}
	due, _ := rec.DueDate()
	fmt.Printf("Marked %s refreshed, next rotation due %s\n",
		rec.ServiceName, due.Format("2006-01-02"))
}
