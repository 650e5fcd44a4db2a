package blobstore

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	BlobsBucket  = []byte("blobs")  // Application blobs, keyed by name
	ConfigBucket = []byte("config") // Store identity and timestamps - unencrypted
)

// Config keys
var (
	configVersion  = []byte("version")
	configCreated  = []byte("created")
	configModified = []byte("modified")
	configStoreID  = []byte("store_id")
)

// Blob keys used by passwatch
const (
	KeyEncryptedDB     = "accountDB_encrypted"
	KeyLegacyDB        = "accountDB"
	KeyCorruptDB       = "accountDB_corrupt"
	KeyOverdueCount    = "overdueCount"
	KeyOverdueNames    = "overdueNames"
	KeyPendingAccounts = "pendingAccounts"
)

// ErrNotFound is returned when a requested blob key does not exist.
var ErrNotFound = errors.New("blob not found")

// Store provides BBolt-based blob storage for passwatch
type Store struct {
	db *bolt.DB
}

// Open opens or creates a passwatch database at path
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{BlobsBucket, ConfigBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		config := tx.Bucket(ConfigBucket)
		if config.Get(configVersion) == nil {
			if err := config.Put(configVersion, []byte("1")); err != nil {
				return err
			}
			created, _ := time.Now().MarshalBinary()
			if err := config.Put(configCreated, created); err != nil {
				return err
			}
			if err := config.Put(configModified, created); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.db.Path()
}

// Get retrieves a blob by key. Returns ErrNotFound if the key is absent.
func (s *Store) Get(key string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		blobs := tx.Bucket(BlobsBucket)
		if blobs == nil {
			return fmt.Errorf("blobs bucket not found")
		}
		v := blobs.Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		// Make a copy since the slice is only valid during the transaction
		data = append([]byte(nil), v...)
		return nil
	})
	return data, err
}

// Set stores a blob under key, replacing any previous value
func (s *Store) Set(key string, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		blobs := tx.Bucket(BlobsBucket)
		if err := blobs.Put([]byte(key), value); err != nil {
			return err
		}
		return touchModified(tx)
	})
}

// Remove deletes a blob. Removing an absent key is not an error.
func (s *Store) Remove(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		blobs := tx.Bucket(BlobsBucket)
		if err := blobs.Delete([]byte(key)); err != nil {
			return err
		}
		return touchModified(tx)
	})
}

// Has reports whether a blob key exists
func (s *Store) Has(key string) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		blobs := tx.Bucket(BlobsBucket)
		if blobs == nil {
			return nil
		}
		found = blobs.Get([]byte(key)) != nil
		return nil
	})
	return found, err
}

// Keys returns all blob keys in the store
func (s *Store) Keys() ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		blobs := tx.Bucket(BlobsBucket)
		if blobs == nil {
			return nil
		}
		return blobs.ForEach(func(k, v []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

func touchModified(tx *bolt.Tx) error {
	config := tx.Bucket(ConfigBucket)
	modified, _ := time.Now().MarshalBinary()
	return config.Put(configModified, modified)
}

// Created retrieves the store creation timestamp
func (s *Store) Created() (time.Time, error) {
	return s.configTime(configCreated)
}

// Modified retrieves the last modified timestamp
func (s *Store) Modified() (time.Time, error) {
	return s.configTime(configModified)
}

func (s *Store) configTime(key []byte) (time.Time, error) {
	var t time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		data := config.Get(key)
		if data == nil {
			return fmt.Errorf("%s not found", key)
		}
		return t.UnmarshalBinary(data)
	})
	return t, err
}

// StoreID retrieves the store's random identity, generating one on first use.
// The ID scopes keyring entries so two stores never share a cached passphrase.
func (s *Store) StoreID() (string, error) {
	var id string
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		if data := config.Get(configStoreID); data != nil {
			id = string(data)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}

	id = uuid.NewString()
	err = s.db.Update(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		// Re-check under the write lock in case of a concurrent create
		if data := config.Get(configStoreID); data != nil {
			id = string(data)
			return nil
		}
		return config.Put(configStoreID, []byte(id))
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Compact creates a compacted copy of the database, removing unused space.
// Useful after passphrase changes or large deletes to reclaim disk space.
func (s *Store) Compact() error {
	srcPath := s.db.Path()
	tmpPath := srcPath + ".compact"

	// Create new database
	dst, err := bolt.Open(tmpPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	// Copy all buckets
	err = s.db.View(func(srcTx *bolt.Tx) error {
		return dst.Update(func(dstTx *bolt.Tx) error {
			return srcTx.ForEach(func(name []byte, srcBucket *bolt.Bucket) error {
				dstBucket, err := dstTx.CreateBucketIfNotExists(name)
				if err != nil {
					return err
				}
				return srcBucket.ForEach(func(k, v []byte) error {
					return dstBucket.Put(k, v)
				})
			})
		})
	})

	if err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}

	if err := s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close source database: %w", err)
	}

	// Atomic replace
	backupPath := srcPath + ".backup"
	if err := os.Rename(srcPath, backupPath); err != nil {
		return fmt.Errorf("failed to backup original: %w", err)
	}
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Rename(backupPath, srcPath) // rollback
		return fmt.Errorf("failed to replace database: %w", err)
	}
	os.Remove(backupPath)

	// Reopen database
	s.db, err = bolt.Open(srcPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}

	return nil
}
