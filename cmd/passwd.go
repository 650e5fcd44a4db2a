package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/passwatch/internal/crypto"
	"github.com/illarion/passwatch/internal/keyring"
)

// Passwd changes the store passphrase and re-encrypts the database
func Passwd(ctx context.Context) {
	env, err := Open(ctx)
	if err != nil {
		HandleError(err)
	}
	defer env.Close()

	newPassphrase, err := ReadPassphraseConfirm()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	defer crypto.ClearBytes(newPassphrase)

	if err := env.Session.ChangePassphrase(ctx, newPassphrase); err != nil {
		HandleError(err)
	}

	// Refresh a cached keyring entry so the next unlock does not trip over
	// the old passphrase
	if storeID, err := env.Blobs.StoreID(); err == nil && keyring.HasPassphrase(storeID) {
		if err := keyring.SavePassphrase(storeID, string(newPassphrase)); err == nil {
			fmt.Println("Keyring updated with new passphrase")
		}
	}

	// Old ciphertext generations stay in the file until compaction
	if err := env.Blobs.Compact(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: compaction failed: %s\n", err)
	}

	fmt.Println("passphrase changed successfully")
}
