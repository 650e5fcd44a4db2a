// Package store drives the persisted-state machine of the account
// database: it detects whether the blob store holds nothing, a legacy
// plaintext image or an encrypted envelope, unlocks each of those into an
// in-memory session, and writes every change back as a single encrypted
// value.
//
// States:
//   - New: no persisted data; the first unlock creates an empty store.
//   - LegacyUnencrypted: a plaintext image from before encryption was
//     introduced; the first unlock migrates it, removing the plaintext
//     only after the encrypted envelope is durably written.
//   - Encrypted: salt, nonce, ciphertext and KDF cost stored as one
//     envelope under a single blob key.
//
// A Session holds the derived key, its KDF parameters and the live
// in-memory database handle. It exists only between Unlock and Close and
// is never persisted; locking is simply dropping the session.
package store
