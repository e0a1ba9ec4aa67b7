package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"dbx-go/internal/config"
	"dbx-go/internal/creds"
	"dbx-go/internal/database"
	"dbx-go/internal/dbx"
	"dbx-go/internal/history"
	"dbx-go/internal/secret"
	"dbx-go/internal/store"

	"github.com/google/uuid"
)

// maxSettingsAttempts bounds the interactive connection-settings loop.
const maxSettingsAttempts = 9

// DBXApp is the application layer between the CLI and the service. It
// constructs all dependencies from config, exposes high-level operations, and
// records mutating operations in the run history.
type DBXApp struct {
	cfg      *config.Config
	service  *dbx.Service
	history  *history.Store
	prompter dbx.Prompter
	log      dbx.Logger
	logFile  *os.File
}

// NewDBXApp creates a fully wired DBXApp from the given config.
// operation identifies the CLI command being run (e.g. "Export", "Verify").
// The caller must call Close when done.
func NewDBXApp(ctx context.Context, cfg *config.Config, operation string) (*DBXApp, error) {
	files, err := store.NewStoreFromConfig(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("creating file store: %w", err)
	}

	if err := os.MkdirAll(cfg.History.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	hist, err := history.NewStore(filepath.Join(cfg.History.DataDir, "history.db"))
	if err != nil {
		return nil, fmt.Errorf("opening run history: %w", err)
	}

	runID := uuid.New().String()
	logger, logFile, err := newLogger(cfg.LogDir, runID)
	if err != nil {
		hist.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	prompter := NewTerminalPrompter()
	svc := dbx.NewService(
		secret.NewStore(cfg.SecretKeyPath),
		creds.NewFileStore(cfg.SettingsDir),
		files,
		database.Connector{},
		prompter,
		&slogAdapter{l: logger},
	)

	logger.Info("starting", "operation", operation)

	return &DBXApp{
		cfg:      cfg,
		service:  svc,
		history:  hist,
		prompter: prompter,
		log:      &slogAdapter{l: logger},
		logFile:  logFile,
	}, nil
}

// LockKey locks the secret key. The passphrase comes from the flag when
// supplied; otherwise it is entered twice at the prompt.
func (a *DBXApp) LockKey(passphrase string) error {
	if passphrase != "" {
		return a.service.LockKey(passphrase)
	}

	first, err := a.prompter.ReadPassword("New passphrase (. to cancel): ")
	if err != nil {
		return err
	}
	if first == dbx.CancelToken {
		return dbx.ErrCancelled
	}
	if first == "" {
		return errors.New("passphrase must not be empty")
	}
	second, err := a.prompter.ReadPassword("Confirm passphrase: ")
	if err != nil {
		return err
	}
	if first != second {
		return errors.New("passphrases do not match")
	}
	return a.service.LockKey(first)
}

// UnlockKey unlocks the stored secret key, prompting for the passphrase when
// none is supplied.
func (a *DBXApp) UnlockKey(passphrase string) error {
	if passphrase != "" {
		return a.service.UnlockKey(passphrase)
	}

	for attempt := 0; attempt < dbx.MaxPassphraseAttempts; attempt++ {
		entered, err := a.prompter.ReadPassword("Secret key passphrase (. to cancel): ")
		if err != nil {
			return err
		}
		if entered == dbx.CancelToken {
			return dbx.ErrCancelled
		}
		err = a.service.UnlockKey(entered)
		if errors.Is(err, dbx.ErrPassphraseMismatch) {
			a.log.Warn("passphrase mismatch", "attempt", attempt+1)
			continue
		}
		return err
	}
	return dbx.ErrPassphraseMismatch
}

// ShowCredentials returns the stored settings for one target.
func (a *DBXApp) ShowCredentials(environment, hostname, database, passphrase string) (*dbx.Settings, error) {
	return a.service.LoadSettings(environment, hostname, database, passphrase)
}

// VerifyCredentials loads the stored settings for the target and tests the
// connection. When no settings exist yet, the user is prompted to enter them.
func (a *DBXApp) VerifyCredentials(ctx context.Context, environment, hostname, database, passphrase string) error {
	settings, err := a.service.LoadSettings(environment, hostname, database, passphrase)
	if errors.Is(err, dbx.ErrSettingsNotFound) || errors.Is(err, dbx.ErrWrongSecretKey) {
		// Settings written under a different secret key cannot be decrypted;
		// treat them like missing ones and collect fresh credentials.
		a.log.Info("no usable saved settings for target, prompting",
			"environment", environment, "hostname", hostname, "database", database)
		_, err = a.ResetCredentials(ctx, environment, hostname, database, passphrase)
		return err
	}
	if err != nil {
		return err
	}

	if err := a.service.Verify(ctx, settings); err != nil {
		a.log.Warn("saved settings failed verification, prompting", "error", err)
		fmt.Fprintf(os.Stderr, "Connection failed: %v\n", err)
		_, err = a.ResetCredentials(ctx, environment, hostname, database, passphrase)
		return err
	}
	return nil
}

// ResetCredentials interactively collects connection settings, verifies them
// against the database, and saves them encrypted. The user gets several
// attempts; entering "." at any prompt cancels.
func (a *DBXApp) ResetCredentials(ctx context.Context, environment, hostname, database, passphrase string) (*dbx.Settings, error) {
	defaults := a.settingsDefaults(environment, hostname, database, passphrase)

	var lastErr error
	for attempt := 0; attempt < maxSettingsAttempts; attempt++ {
		entered, err := a.promptSettings(defaults)
		if err != nil {
			return nil, err
		}

		if err := a.service.Verify(ctx, entered); err != nil {
			a.log.Warn("connection failed", "error", err)
			fmt.Fprintf(os.Stderr, "Connection failed: %v\n", err)
			defaults = entered
			lastErr = err
			continue
		}

		if err := a.service.SaveSettings(entered, passphrase); err != nil {
			return nil, err
		}
		a.log.Info("credentials saved",
			"environment", entered.Environment,
			"hostname", entered.Hostname,
			"database", entered.Database)
		return entered, nil
	}
	return nil, fmt.Errorf("could not verify connection: %w", lastErr)
}

// settingsDefaults returns the prompt defaults for a target: the stored
// settings when they decrypt cleanly, the baseline defaults otherwise.
func (a *DBXApp) settingsDefaults(environment, hostname, database, passphrase string) *dbx.Settings {
	if existing, err := a.service.LoadSettings(environment, hostname, database, passphrase); err == nil {
		return existing
	}

	defaults := dbx.DefaultSettings()
	if environment != "" {
		defaults.Environment = environment
	}
	if hostname != "" {
		defaults.Hostname = hostname
	}
	if database != "" {
		defaults.Database = database
	}
	return defaults
}

// promptSettings collects each connection field, offering defaults.
func (a *DBXApp) promptSettings(defaults *dbx.Settings) (*dbx.Settings, error) {
	s := *defaults

	fields := []struct {
		label string
		value *string
	}{
		{"Environment", &s.Environment},
		{"Hostname", &s.Hostname},
		{"Port", &s.Port},
		{"Database", &s.Database},
		{"User", &s.User},
		{"SSL mode", &s.SSLMode},
		{"SSL root certificate", &s.SSLRootCert},
	}

	for _, f := range fields {
		entered, err := a.prompter.ReadLine(fmt.Sprintf("%s [%s]: ", f.label, *f.value))
		if err != nil {
			return nil, err
		}
		if entered == dbx.CancelToken {
			return nil, dbx.ErrCancelled
		}
		if entered != "" {
			*f.value = entered
		}
	}

	entered, err := a.prompter.ReadPassword("Password (blank to keep current): ")
	if err != nil {
		return nil, err
	}
	if entered == dbx.CancelToken {
		return nil, dbx.ErrCancelled
	}
	if entered != "" {
		s.Password = entered
	}

	return &s, nil
}

// Tables lists the tables of the target database.
func (a *DBXApp) Tables(ctx context.Context, environment, hostname, database, schema string, includeViews bool, passphrase string) ([]string, error) {
	settings, err := a.service.LoadSettings(environment, hostname, database, passphrase)
	if err != nil {
		return nil, err
	}
	return a.service.Tables(ctx, settings, schema, includeViews)
}

// Export writes the selected tables to the file store, recording the run.
func (a *DBXApp) Export(ctx context.Context, opts dbx.TransferOptions, passphrase string) ([]dbx.TableCount, error) {
	return a.recordRun(ctx, "export", opts, func() ([]dbx.TableCount, error) {
		return a.service.Export(ctx, opts, passphrase)
	})
}

// Import replaces the selected tables from the file store, recording the run.
func (a *DBXApp) Import(ctx context.Context, opts dbx.TransferOptions, passphrase string) ([]dbx.TableCount, error) {
	return a.recordRun(ctx, "import", opts, func() ([]dbx.TableCount, error) {
		return a.service.Import(ctx, opts, passphrase)
	})
}

// recordRun wraps a transfer in a history record.
func (a *DBXApp) recordRun(ctx context.Context, operation string, opts dbx.TransferOptions,
	fn func() ([]dbx.TableCount, error)) ([]dbx.TableCount, error) {

	target := opts.Table
	if opts.AllTables {
		target = "*"
	}
	parameters := fmt.Sprintf("environment=%s hostname=%s database=%s schema=%s table=%s",
		opts.Environment, opts.Hostname, opts.Database, opts.Schema, target)

	run, err := a.history.StartRun(ctx, operation, parameters)
	if err != nil {
		return nil, err
	}

	results, err := fn()
	var rows int64
	for _, r := range results {
		rows += int64(r.Rows)
	}

	status := history.StatusComplete
	if err != nil {
		status = history.StatusFailed
	}
	if finishErr := a.history.FinishRun(ctx, run, status, rows); finishErr != nil {
		a.log.Error("recording run", "error", finishErr)
	}
	return results, err
}

// History returns the most recent recorded runs.
func (a *DBXApp) History(ctx context.Context, limit int) ([]history.Run, error) {
	return a.history.ListRuns(ctx, limit)
}

// Close releases the history database and the log file.
func (a *DBXApp) Close() error {
	var firstErr error
	if err := a.history.Close(); err != nil {
		firstErr = fmt.Errorf("closing run history: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
