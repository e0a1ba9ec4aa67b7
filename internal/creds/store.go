package creds

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"dbx-go/internal/dbx"
	"dbx-go/internal/secret"
)

// FileStore persists connection settings as one TOML file per
// environment/host/database target, named "<env>_<host>_<database>.toml".
// The password field is encrypted under the data key before it touches disk,
// and the file records the key's fingerprint so a mismatched key is detected
// on load.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir. The directory is created
// on the first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Load reads and decrypts the settings for the given target.
func (s *FileStore) Load(environment, hostname, database string, key *dbx.SecretKey) (*dbx.Settings, error) {
	data, err := os.ReadFile(s.path(environment, hostname, database))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, dbx.ErrSettingsNotFound
		}
		return nil, fmt.Errorf("reading settings file: %w", err)
	}

	var st dbx.Settings
	if err := toml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decoding settings file: %w", err)
	}

	if st.SecretHash != key.SecretHash {
		return nil, dbx.ErrWrongSecretKey
	}

	raw, err := key.Bytes()
	if err != nil {
		return nil, err
	}

	sealed, err := base64.StdEncoding.DecodeString(st.Password)
	if err != nil {
		return nil, fmt.Errorf("decoding stored password: %w", err)
	}

	password, err := secret.Open(raw, sealed)
	if err != nil {
		return nil, fmt.Errorf("decrypting stored password: %w", err)
	}

	st.Password = string(password)
	return &st, nil
}

// Save encrypts the password and writes the settings with owner-only file
// permissions. The input settings are not modified.
func (s *FileStore) Save(st *dbx.Settings, key *dbx.SecretKey) error {
	raw, err := key.Bytes()
	if err != nil {
		return err
	}

	sealed, err := secret.Seal(raw, []byte(st.Password))
	if err != nil {
		return fmt.Errorf("encrypting password: %w", err)
	}

	onDisk := *st
	onDisk.Password = base64.StdEncoding.EncodeToString(sealed)
	onDisk.SecretHash = key.SecretHash

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(&onDisk); err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}

	path := s.path(st.Environment, st.Hostname, st.Database)
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("writing settings file: %w", err)
	}

	// WriteFile applies the mode only on create; force it for existing files.
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("setting settings file permissions: %w", err)
	}
	return nil
}

func (s *FileStore) path(environment, hostname, database string) string {
	name := strings.ToLower(environment) + "_" + strings.ToLower(hostname) + "_" + strings.ToLower(database) + ".toml"
	return filepath.Join(s.dir, name)
}

// Compile-time check that FileStore implements dbx.SettingsStore
var _ dbx.SettingsStore = (*FileStore)(nil)
