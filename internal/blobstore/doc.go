// Package blobstore provides the BBolt database interface for passwatch.
//
// Database structure uses two buckets:
//   - config: store identity, schema version, timestamps (unencrypted)
//   - blobs: application values keyed by name, including the encrypted
//     account database, reminder caches and pending account intake
//
// All account data lives inside the single accountDB_encrypted value;
// the store itself never sees plaintext records after migration.
//
// BBolt provides ACID transactions, file locking, and corruption detection.
package blobstore
