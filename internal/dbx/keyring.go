package dbx

import "encoding/base64"

// SecretKey is the on-disk record protecting stored database passwords.
// The secret itself is a random 32-byte data key, kept base64-encoded. While
// the record is unlocked the encoding holds the raw key; once locked it holds
// an AES-256-GCM envelope produced from a PBKDF2-derived passphrase key.
type SecretKey struct {
	Secret     string `toml:"secret"`
	Locked     bool   `toml:"locked"`
	Hash       string `toml:"hash"`        // BLAKE2b hex of the lock passphrase, empty when unlocked
	SecretHash string `toml:"secret_hash"` // BLAKE2b hex of the raw data key
	KDFSalt    string `toml:"kdf_salt"`    // base64 PBKDF2 salt, set only while locked
}

// Bytes returns the decoded data key. The record must be unlocked.
func (k *SecretKey) Bytes() ([]byte, error) {
	if k.Locked {
		return nil, ErrKeyLocked
	}
	return base64.StdEncoding.DecodeString(k.Secret)
}

// SecretKeyStore persists the secret key record and performs the
// passphrase-based lifecycle operations on it.
type SecretKeyStore interface {
	// Load reads the stored record. Returns ErrKeyNotFound if no key file
	// exists yet.
	Load() (*SecretKey, error)

	// Save writes the record with owner-only file permissions.
	Save(k *SecretKey) error

	// Generate creates, saves, and returns a fresh unlocked key.
	Generate() (*SecretKey, error)

	// Lock encrypts the stored secret under the passphrase and saves the
	// record. Returns ErrKeyAlreadyLocked if it is locked already.
	Lock(passphrase string) error

	// Unlock decrypts the stored secret and saves the record unlocked.
	// Returns ErrKeyAlreadyUnlocked or ErrPassphraseMismatch as appropriate.
	Unlock(passphrase string) error

	// TempUnlock decrypts the record in memory only; the file stays locked.
	TempUnlock(k *SecretKey, passphrase string) error
}
