package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/illarion/passwatch/internal/account"
	"github.com/illarion/passwatch/internal/blobstore"
	"github.com/illarion/passwatch/internal/store"
)

// Status shows the store state and a rotation summary. The file facts are
// read before unlocking so they describe the persisted store, not the
// session about to be created.
func Status(ctx context.Context) {
	path, err := StorePath()
	if err != nil {
		HandleError(err)
	}

	fi, err := os.Stat(path)
	if os.IsNotExist(err) {
		fmt.Printf("No account database found at %s\n", path)
		fmt.Println("Run any passwatch command to create one")
		return
	}
	if err != nil {
		HandleError(err)
	}

	blobs, err := blobstore.Open(path)
	if err != nil {
		HandleError(err)
	}
	defer blobs.Close()

	log := NewLogger()
	info, err := store.New(blobs, log).Describe()
	if err != nil {
		HandleError(err)
	}

	fmt.Printf("Database: %s (%s)\n", path, formatSize(fi.Size()))
	if created, err := blobs.Created(); err == nil {
		fmt.Printf("Created:  %s\n", created.Format(time.RFC3339))
	}
	if modified, err := blobs.Modified(); err == nil {
		fmt.Printf("Modified: %s\n", modified.Format(time.RFC3339))
	}
	fmt.Printf("State:    %s\n", info.State)
	if info.Iterations > 0 {
		fmt.Printf("KDF:      %d iterations, %s ciphertext\n", info.Iterations, formatSize(int64(info.Bytes)))
	}
	if has, _ := blobs.Has(blobstore.KeyCorruptDB); has {
		fmt.Printf("warning: a corrupt pre-migration database is kept under %q\n", blobstore.KeyCorruptDB)
	}

	env, err := OpenWith(ctx, blobs, log)
	if err != nil {
		HandleError(err)
	}
	defer env.Session.Close()

	recs, err := env.Repo.List(ctx)
	if err != nil {
		HandleError(err)
	}
	env.RefreshBadge(ctx)

	now := time.Now()
	counts := map[account.Status]int{}
	var overdue []string
	for _, rec := range recs {
		s := rec.Status(now)
		counts[s]++
		if s == account.StatusOverdue {
			overdue = append(overdue, rec.ServiceName)
		}
	}

	fmt.Printf("\nAccounts: %d total\n", len(recs))
	fmt.Printf("  overdue:  %d\n", counts[account.StatusOverdue])
	fmt.Printf("  due soon: %d\n", counts[account.StatusDueSoon])
	fmt.Printf("  good:     %d\n", counts[account.StatusGood])
	if len(overdue) > 0 {
		fmt.Printf("\nRotate first: %s\n", strings.Join(overdue, ", "))
	}
}
