package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/passwatch/internal/backup"
)

// Import loads a backup file into the store. The document is validated
// before the store is unlocked, so a bad file never costs a key derivation.
func Import(ctx context.Context, path string, replace bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		HandleError(fmt.Errorf("read backup: %w", err))
	}
	doc, err := backup.Parse(data)
	if err != nil {
		HandleError(err)
	}
	if err := doc.Validate(); err != nil {
		HandleError(err)
	}

	mode := backup.ModeMerge
	if replace {
		mode = backup.ModeReplace
	}

	env, err := Open(ctx)
	if err != nil {
		HandleError(err)
	}
	defer env.Close()

	res, err := backup.Import(ctx, env.Repo, doc.Accounts, mode)
	if err != nil {
		HandleError(err)
	}
	env.RefreshBadge(ctx)

	fmt.Printf("Imported %d accounts (%s), skipped %d\n", res.Added, mode, res.Skipped)
}
