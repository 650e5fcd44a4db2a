package cmd

import (
	"context"
	"fmt"
)

// Remove deletes one account record
func Remove(ctx context.Context, id int64) {
	env, err := Open(ctx)
	if err != nil {
		HandleError(err)
	}
	defer env.Close()

	rec, err := env.Repo.Get(ctx, id)
	if err != nil {
		HandleError(err)
	}

	if err := env.Repo.Delete(ctx, id); err != nil {
		HandleError(err)
	}
	env.RefreshBadge(ctx)

	fmt.Printf("Removed %s (id %d)\n", rec.ServiceName, id)
}
