package dbx

import (
	"context"
	"errors"
	"fmt"
)

// MaxPassphraseAttempts bounds the interactive unlock prompt loop.
const MaxPassphraseAttempts = 9

// CancelToken entered at a prompt aborts the operation.
const CancelToken = "."

// Service ties the secret key, stored settings, file store, and database
// together and implements the credential and transfer operations.
type Service struct {
	keys      SecretKeyStore
	creds     SettingsStore
	files     FileStore
	connector Connector
	prompter  Prompter
	log       Logger
}

func NewService(keys SecretKeyStore, creds SettingsStore, files FileStore,
	connector Connector, prompter Prompter, log Logger) *Service {
	if log == nil {
		log = NewNopLogger()
	}
	return &Service{
		keys:      keys,
		creds:     creds,
		files:     files,
		connector: connector,
		prompter:  prompter,
		log:       log,
	}
}

// GetKey returns a usable (unlocked in memory) secret key, generating a fresh
// one if none exists yet. If the stored key is locked, passphrase is tried
// first; when it is empty the user is prompted, up to MaxPassphraseAttempts
// times. The key file on disk stays locked either way.
func (s *Service) GetKey(passphrase string) (*SecretKey, error) {
	key, err := s.keys.Load()
	if errors.Is(err, ErrKeyNotFound) {
		s.log.Info("no secret key found, generating a new one")
		return s.keys.Generate()
	}
	if err != nil {
		return nil, err
	}

	if !key.Locked {
		return key, nil
	}

	if passphrase != "" {
		if err := s.keys.TempUnlock(key, passphrase); err != nil {
			return nil, err
		}
		return key, nil
	}

	if s.prompter == nil {
		return nil, ErrKeyLocked
	}

	for attempt := 0; attempt < MaxPassphraseAttempts; attempt++ {
		entered, err := s.prompter.ReadPassword("Secret key passphrase (. to cancel): ")
		if err != nil {
			return nil, fmt.Errorf("reading passphrase: %w", err)
		}
		if entered == CancelToken {
			return nil, ErrCancelled
		}
		err = s.keys.TempUnlock(key, entered)
		if errors.Is(err, ErrPassphraseMismatch) {
			s.log.Warn("passphrase mismatch", "attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, err
		}
		return key, nil
	}
	return nil, ErrPassphraseMismatch
}

// LockKey encrypts the stored secret key under the passphrase.
func (s *Service) LockKey(passphrase string) error {
	return s.keys.Lock(passphrase)
}

// UnlockKey decrypts the stored secret key and saves it unlocked.
func (s *Service) UnlockKey(passphrase string) error {
	return s.keys.Unlock(passphrase)
}

// LoadSettings returns the decrypted connection settings for one target.
func (s *Service) LoadSettings(environment, hostname, database, passphrase string) (*Settings, error) {
	key, err := s.GetKey(passphrase)
	if err != nil {
		return nil, err
	}
	return s.creds.Load(environment, hostname, database, key)
}

// SaveSettings encrypts and persists connection settings.
func (s *Service) SaveSettings(settings *Settings, passphrase string) error {
	key, err := s.GetKey(passphrase)
	if err != nil {
		return err
	}
	return s.creds.Save(settings, key)
}

// Verify connects to the database described by settings and pings it.
func (s *Service) Verify(ctx context.Context, settings *Settings) error {
	db, err := s.connector.Connect(ctx, settings)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", settings.Database, err)
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		return err
	}
	s.log.Info("connection verified",
		"database", settings.Database,
		"hostname", settings.Hostname,
		"environment", settings.Environment)
	return nil
}

// Tables lists the tables (and optionally views) of the target database.
func (s *Service) Tables(ctx context.Context, settings *Settings, schema string, includeViews bool) ([]string, error) {
	db, err := s.connector.Connect(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", settings.Database, err)
	}
	defer db.Close()

	return db.TableList(ctx, schema, includeViews)
}
