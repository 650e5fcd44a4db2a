package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/illarion/passwatch/internal/backup"
	"github.com/illarion/passwatch/internal/git"
)

// Export writes all accounts to a backup JSON file. The file is plaintext;
// when it lands inside a git work tree the command warns about committing it.
func Export(ctx context.Context, path string) {
	env, err := Open(ctx)
	if err != nil {
		HandleError(err)
	}
	defer env.Close()

	recs, err := env.Repo.List(ctx)
	if err != nil {
		HandleError(err)
	}

	doc := backup.Export(recs, time.Now())
	data, err := doc.Encode()
	if err != nil {
		HandleError(err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		HandleError(fmt.Errorf("write backup: %w", err))
	}
	fmt.Printf("Exported %d accounts to %s\n", doc.Count, path)

	if warning := git.FormatExposureWarning(path, git.CheckExportExposure(path)); warning != "" {
		fmt.Fprint(os.Stderr, warning)
	}
}
