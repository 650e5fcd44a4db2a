package keyring

import (
	"github.com/zalando/go-keyring"
)

const serviceName = "passwatch"

// SavePassphrase stores a passphrase in the OS keyring, keyed by store ID
func SavePassphrase(storeID string, passphrase string) error {
	return keyring.Set(serviceName, storeID, passphrase)
}

// GetPassphrase retrieves a passphrase from the OS keyring
func GetPassphrase(storeID string) (string, error) {
	return keyring.Get(serviceName, storeID)
}

// DeletePassphrase removes a passphrase from the OS keyring
func DeletePassphrase(storeID string) error {
	return keyring.Delete(serviceName, storeID)
}

// HasPassphrase checks if a passphrase is stored in the keyring
func HasPassphrase(storeID string) bool {
	_, err := keyring.Get(serviceName, storeID)
	return err == nil
}
