package secret

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"dbx-go/internal/dbx"
)

// Store persists the secret key record as a TOML file with owner-only
// permissions, and implements the passphrase lock/unlock lifecycle.
type Store struct {
	path string
}

// NewStore creates a Store for the key file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the key record from disk.
func (s *Store) Load() (*dbx.SecretKey, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, dbx.ErrKeyNotFound
		}
		return nil, fmt.Errorf("reading secret key file: %w", err)
	}

	var k dbx.SecretKey
	if err := toml.Unmarshal(data, &k); err != nil {
		return nil, fmt.Errorf("decoding secret key file: %w", err)
	}
	return &k, nil
}

// Save writes the key record and restricts the file to the owner.
func (s *Store) Save(k *dbx.SecretKey) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(k); err != nil {
		return fmt.Errorf("encoding secret key: %w", err)
	}

	if err := os.WriteFile(s.path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("writing secret key file: %w", err)
	}

	// WriteFile applies the mode only on create; force it for existing files.
	if err := os.Chmod(s.path, 0600); err != nil {
		return fmt.Errorf("setting secret key file permissions: %w", err)
	}
	return nil
}

// Generate creates a fresh unlocked data key, saves it, and returns it.
func (s *Store) Generate() (*dbx.SecretKey, error) {
	raw, err := NewDataKey()
	if err != nil {
		return nil, err
	}

	k := &dbx.SecretKey{
		Secret:     base64.StdEncoding.EncodeToString(raw),
		Locked:     false,
		SecretHash: Fingerprint(raw),
	}

	if err := s.Save(k); err != nil {
		return nil, err
	}
	return k, nil
}

// Lock encrypts the stored data key under the passphrase and saves the
// record in its locked state.
func (s *Store) Lock(passphrase string) error {
	k, err := s.Load()
	if err != nil {
		return err
	}
	if k.Locked {
		return dbx.ErrKeyAlreadyLocked
	}

	raw, err := k.Bytes()
	if err != nil {
		return err
	}

	salt, err := NewSalt()
	if err != nil {
		return err
	}

	sealed, err := Seal(DeriveKey(passphrase, salt), raw)
	if err != nil {
		return fmt.Errorf("locking secret key: %w", err)
	}

	k.Secret = base64.StdEncoding.EncodeToString(sealed)
	k.KDFSalt = base64.StdEncoding.EncodeToString(salt)
	k.Hash = Fingerprint([]byte(passphrase))
	k.Locked = true

	return s.Save(k)
}

// Unlock decrypts the stored data key and saves the record unlocked.
func (s *Store) Unlock(passphrase string) error {
	k, err := s.Load()
	if err != nil {
		return err
	}
	if !k.Locked {
		return dbx.ErrKeyAlreadyUnlocked
	}

	if err := s.TempUnlock(k, passphrase); err != nil {
		return err
	}
	return s.Save(k)
}

// TempUnlock decrypts the record in memory only. The file on disk keeps its
// locked state.
func (s *Store) TempUnlock(k *dbx.SecretKey, passphrase string) error {
	if !k.Locked {
		return nil
	}

	if k.Hash != Fingerprint([]byte(passphrase)) {
		return dbx.ErrPassphraseMismatch
	}

	salt, err := base64.StdEncoding.DecodeString(k.KDFSalt)
	if err != nil {
		return fmt.Errorf("decoding KDF salt: %w", err)
	}

	sealed, err := base64.StdEncoding.DecodeString(k.Secret)
	if err != nil {
		return fmt.Errorf("decoding sealed secret: %w", err)
	}

	raw, err := Open(DeriveKey(passphrase, salt), sealed)
	if err != nil {
		// Hash matched but decryption failed: the file was tampered with or
		// written by an incompatible version.
		return fmt.Errorf("unlocking secret key: %w", err)
	}

	k.Secret = base64.StdEncoding.EncodeToString(raw)
	k.Locked = false
	k.Hash = ""
	k.KDFSalt = ""
	return nil
}

// Compile-time check that Store implements dbx.SecretKeyStore
var _ dbx.SecretKeyStore = (*Store)(nil)
