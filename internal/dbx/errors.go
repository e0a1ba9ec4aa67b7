package dbx

import "errors"

// Sentinel errors for domain conditions. CLI commands match on these to
// decide between benign messages and hard failures.
var (
	// ErrKeyNotFound indicates the secret key file does not exist yet.
	ErrKeyNotFound = errors.New("secret key file does not exist")

	// ErrKeyLocked indicates the secret key is locked and no usable
	// passphrase was available to unlock it.
	ErrKeyLocked = errors.New("secret key is locked")

	// ErrPassphraseMismatch indicates the supplied passphrase does not match
	// the one the key was locked with.
	ErrPassphraseMismatch = errors.New("passphrase does not match")

	// ErrKeyAlreadyLocked and ErrKeyAlreadyUnlocked report no-op lock/unlock
	// requests. Callers treat these as informational, not failures.
	ErrKeyAlreadyLocked   = errors.New("secret key is already locked")
	ErrKeyAlreadyUnlocked = errors.New("secret key is already unlocked")

	// ErrWrongSecretKey indicates saved settings were encrypted with a
	// different secret key than the one currently on disk.
	ErrWrongSecretKey = errors.New("saved settings were encrypted with a different secret key")

	// ErrSettingsNotFound indicates no settings file exists for the
	// requested environment/host/database combination.
	ErrSettingsNotFound = errors.New("no saved settings")

	// ErrObjectNotFound indicates the file store has no object by that name.
	ErrObjectNotFound = errors.New("object not found")

	// ErrCancelled indicates the user cancelled an interactive prompt.
	ErrCancelled = errors.New("cancelled at user request")
)
