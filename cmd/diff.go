package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/passwatch/internal/backup"
)

// Diff compares a backup file with the live store and prints a unified
// diff of the two record sets
func Diff(ctx context.Context, path string) {
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

	env, err := Open(ctx)
	if err != nil {
		HandleError(err)
	}
	defer env.Close()

	recs, err := env.Repo.List(ctx)
	if err != nil {
		HandleError(err)
	}

	diff := backup.UnifiedDiff(path, "store",
		backup.RenderRecords(doc.Records()), backup.RenderRecords(recs))
	if diff == "" {
		fmt.Println("No differences")
		return
	}
	fmt.Print(diff)
}
