package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/illarion/passwatch/internal/crypto"
	"github.com/illarion/passwatch/internal/keyring"
	"github.com/illarion/passwatch/internal/store"
)

// maxUnlockAttempts caps the interactive retry loop
const maxUnlockAttempts = 10

// ReadPassphrase reads a passphrase from the terminal without echoing.
// The caller is responsible for crypto.ClearBytes on the result.
func ReadPassphrase(prompt string) ([]byte, error) {
	fmt.Print(prompt)

	passphrase, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()

	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	return passphrase, nil
}

// ReadPassphraseConfirm reads a new passphrase twice and ensures both match
func ReadPassphraseConfirm() ([]byte, error) {
	first, err := ReadPassphrase("Enter new passphrase: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(first)

	second, err := ReadPassphrase("Confirm passphrase: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(second)

	if !crypto.ConstantTimeCompare(first, second) {
		return nil, fmt.Errorf("passphrases do not match")
	}

	result := make([]byte, len(first))
	copy(result, first)
	return result, nil
}

// PassphraseFromEnv reads the passphrase from PASSWATCH_PASSPHRASE.
// Returns a copy the caller may clear, nil when unset.
func PassphraseFromEnv() []byte {
	passphrase := os.Getenv(EnvPassphrase)
	if passphrase == "" {
		return nil
	}
	result := make([]byte, len(passphrase))
	copy(result, passphrase)
	return result
}

// unlockWithRetry resolves the passphrase and unlocks the store. Sources in
// order: environment (single shot, non-interactive), OS keyring (single
// shot, a stale entry falls through to the prompt), interactive prompt with
// the brute-force backoff between failed attempts. First-time and migration
// unlocks confirm the passphrase, since it is being chosen right there.
func unlockWithRetry(ctx context.Context, st *store.Store, storeID string) (*store.Session, error) {
	state, err := st.DetectState()
	if err != nil {
		return nil, err
	}

	if pass := PassphraseFromEnv(); pass != nil {
		defer crypto.ClearBytes(pass)
		return st.Unlock(ctx, pass)
	}

	failures := 0

	if storeID != "" && state == store.StateEncrypted {
		if cached, kerr := keyring.GetPassphrase(storeID); kerr == nil {
			pass := []byte(cached)
			sess, uerr := st.Unlock(ctx, pass)
			crypto.ClearBytes(pass)
			if uerr == nil {
				return sess, nil
			}
			if !errors.Is(uerr, store.ErrWrongPassphrase) {
				return nil, uerr
			}
			failures++
			fmt.Fprintln(os.Stderr, "warning: passphrase in keyring is stale, falling back to prompt")
		}
	}

	confirm := state != store.StateEncrypted
	switch state {
	case store.StateNew:
		fmt.Println("No account database found. A new encrypted one will be created.")
	case store.StateLegacyUnencrypted:
		fmt.Println("Unencrypted account database found. It will be encrypted with your passphrase.")
	}

	for {
		if err := waitBackoff(ctx, failures); err != nil {
			return nil, err
		}

		var pass []byte
		if confirm {
			pass, err = ReadPassphraseConfirm()
		} else {
			pass, err = ReadPassphrase("Enter passphrase: ")
		}
		if err != nil {
			return nil, err
		}

		sess, uerr := st.Unlock(ctx, pass)
		crypto.ClearBytes(pass)
		if uerr == nil {
			return sess, nil
		}
		if !errors.Is(uerr, store.ErrWrongPassphrase) {
			return nil, uerr
		}

		failures++
		if failures >= maxUnlockAttempts {
			return nil, fmt.Errorf("too many failed unlock attempts")
		}
		fmt.Fprintln(os.Stderr, "wrong passphrase, try again")
	}
}

// waitBackoff sleeps out the brute-force delay for the given failure count
func waitBackoff(ctx context.Context, failures int) error {
	delay := store.BackoffDelay(failures)
	if delay == 0 {
		return nil
	}
	fmt.Fprintf(os.Stderr, "waiting %s before next attempt...\n", delay)
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
