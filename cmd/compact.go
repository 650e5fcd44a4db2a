package cmd

import (
	"fmt"
	"os"

	"github.com/illarion/passwatch/internal/blobstore"
)

// Compact rewrites the database file to reclaim unused space. Does not
// require the passphrase: it copies ciphertext, never decrypts it.
func Compact() {
	path, err := StorePath()
	if err != nil {
		HandleError(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		HandleError(err)
	}
	sizeBefore := info.Size()

	blobs, err := blobstore.Open(path)
	if err != nil {
		HandleError(err)
	}
	defer blobs.Close()

	if err := blobs.Compact(); err != nil {
		HandleError(err)
	}

	info, err = os.Stat(path)
	if err != nil {
		HandleError(err)
	}
	sizeAfter := info.Size()

	fmt.Printf("Compacted: %s -> %s\n", formatSize(sizeBefore), formatSize(sizeAfter))
}
