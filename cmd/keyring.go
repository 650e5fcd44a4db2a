package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/passwatch/internal/blobstore"
	"github.com/illarion/passwatch/internal/crypto"
	"github.com/illarion/passwatch/internal/keyring"
	"github.com/illarion/passwatch/internal/store"
)

// KeyringSave verifies the passphrase against the store and caches it in
// the OS keyring. Only an already-encrypted store can have its passphrase
// cached; a new store picks one through a normal unlock first.
func KeyringSave(ctx context.Context) {
	path, err := StorePath()
	if err != nil {
		HandleError(err)
	}
	blobs, err := blobstore.Open(path)
	if err != nil {
		HandleError(err)
	}
	defer blobs.Close()

	log := NewLogger()
	st := store.New(blobs, log)

	state, err := st.DetectState()
	if err != nil {
		HandleError(err)
	}
	if state != store.StateEncrypted {
		fmt.Fprintf(os.Stderr, "Error: no encrypted database at %s yet\n", path)
		fmt.Fprintf(os.Stderr, "Run 'passwatch list' once to create it\n")
		os.Exit(1)
	}

	passphrase, err := ReadPassphrase("Enter passphrase: ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	defer crypto.ClearBytes(passphrase)

	// Verify before caching: a wrong entry would poison every later unlock
	sess, err := st.Unlock(ctx, passphrase)
	if err != nil {
		HandleError(err)
	}
	sess.Close()

	storeID, err := blobs.StoreID()
	if err != nil {
		HandleError(err)
	}
	if err := keyring.SavePassphrase(storeID, string(passphrase)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to save to keyring: %s\n", err)
		os.Exit(1)
	}

	fmt.Println("Passphrase saved to keyring")
}

// KeyringDelete removes the cached passphrase from the OS keyring
func KeyringDelete() {
	storeID, err := openStoreID()
	if err != nil {
		HandleError(err)
	}

	if err := keyring.DeletePassphrase(storeID); err != nil {
		fmt.Println("No passphrase stored in keyring")
		return
	}
	fmt.Println("Passphrase removed from keyring")
}

// KeyringStatus reports whether a passphrase is cached for this store
func KeyringStatus() {
	storeID, err := openStoreID()
	if err != nil {
		HandleError(err)
	}

	if keyring.HasPassphrase(storeID) {
		fmt.Println("Passphrase: stored in keyring")
	} else {
		fmt.Println("Passphrase: not stored")
	}
}

// openStoreID opens the blob store just long enough to read its identity
func openStoreID() (string, error) {
	path, err := StorePath()
	if err != nil {
		return "", err
	}
	blobs, err := blobstore.Open(path)
	if err != nil {
		return "", err
	}
	defer blobs.Close()
	return blobs.StoreID()
}
