// Package crypto provides cryptographic operations for passwatch.
//
// Encryption uses AES-256-GCM with:
//   - 32-byte key derived from the passphrase via PBKDF2
//   - 12-byte random nonce per encryption operation
//   - Authenticated encryption prevents tampering
//
// Key derivation uses PBKDF2-HMAC-SHA256 with:
//   - 32-byte random salt (stored unencrypted)
//   - 300,000 iterations
//
// Memory safety:
//   - Use ClearBytes() to zero sensitive data after use
package crypto
