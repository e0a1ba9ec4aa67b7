package app

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"dbx-go/internal/dbx"
)

type scriptPrompter struct {
	answers []string
	asked   int
}

func (p *scriptPrompter) next() (string, error) {
	if p.asked >= len(p.answers) {
		return "", errors.New("no more scripted answers")
	}
	answer := p.answers[p.asked]
	p.asked++
	return answer, nil
}

func (p *scriptPrompter) ReadLine(prompt string) (string, error)     { return p.next() }
func (p *scriptPrompter) ReadPassword(prompt string) (string, error) { return p.next() }

func TestPromptSettings(t *testing.T) {
	t.Run("blank keeps defaults, entries override", func(t *testing.T) {
		// Environment, Hostname, Port, Database, User, SSL mode,
		// SSL root certificate, then Password.
		p := &scriptPrompter{answers: []string{"", "db.example.com", "", "orders", "", "", "", "hunter2"}}
		a := &DBXApp{prompter: p, log: dbx.NewNopLogger()}

		got, err := a.promptSettings(dbx.DefaultSettings())
		if err != nil {
			t.Fatalf("promptSettings() error = %v", err)
		}
		if got.Environment != dbx.DefaultEnvironment {
			t.Errorf("Environment = %q, want default %q", got.Environment, dbx.DefaultEnvironment)
		}
		if got.Hostname != "db.example.com" {
			t.Errorf("Hostname = %q, want %q", got.Hostname, "db.example.com")
		}
		if got.Database != "orders" {
			t.Errorf("Database = %q, want %q", got.Database, "orders")
		}
		if got.Password != "hunter2" {
			t.Errorf("Password = %q, want %q", got.Password, "hunter2")
		}
	})

	t.Run("blank password keeps current", func(t *testing.T) {
		p := &scriptPrompter{answers: []string{"", "", "", "", "", "", "", ""}}
		a := &DBXApp{prompter: p, log: dbx.NewNopLogger()}

		defaults := dbx.DefaultSettings()
		defaults.Password = "current"
		got, err := a.promptSettings(defaults)
		if err != nil {
			t.Fatalf("promptSettings() error = %v", err)
		}
		if got.Password != "current" {
			t.Errorf("Password = %q, want %q", got.Password, "current")
		}
	})

	t.Run("cancel token aborts", func(t *testing.T) {
		p := &scriptPrompter{answers: []string{"", "."}}
		a := &DBXApp{prompter: p, log: dbx.NewNopLogger()}

		if _, err := a.promptSettings(dbx.DefaultSettings()); !errors.Is(err, dbx.ErrCancelled) {
			t.Errorf("promptSettings() error = %v, want ErrCancelled", err)
		}
	})

	t.Run("input does not mutate defaults", func(t *testing.T) {
		p := &scriptPrompter{answers: []string{"", "other-host", "", "", "", "", "", ""}}
		a := &DBXApp{prompter: p, log: dbx.NewNopLogger()}

		defaults := dbx.DefaultSettings()
		if _, err := a.promptSettings(defaults); err != nil {
			t.Fatalf("promptSettings() error = %v", err)
		}
		if defaults.Hostname != "localhost" {
			t.Errorf("defaults mutated: Hostname = %q", defaults.Hostname)
		}
	})
}

// memKeys is an in-memory dbx.SecretKeyStore.
type memKeys struct {
	key        *dbx.SecretKey
	passphrase string
}

func (m *memKeys) Load() (*dbx.SecretKey, error) {
	if m.key == nil {
		return nil, dbx.ErrKeyNotFound
	}
	copied := *m.key
	return &copied, nil
}

func (m *memKeys) Save(k *dbx.SecretKey) error {
	copied := *k
	m.key = &copied
	return nil
}

func (m *memKeys) Generate() (*dbx.SecretKey, error) {
	m.key = &dbx.SecretKey{
		Secret:     base64.StdEncoding.EncodeToString(make([]byte, 32)),
		SecretHash: "key-fingerprint",
	}
	copied := *m.key
	return &copied, nil
}

func (m *memKeys) Lock(passphrase string) error {
	if m.key.Locked {
		return dbx.ErrKeyAlreadyLocked
	}
	m.key.Locked = true
	m.passphrase = passphrase
	return nil
}

func (m *memKeys) Unlock(passphrase string) error {
	if !m.key.Locked {
		return dbx.ErrKeyAlreadyUnlocked
	}
	if passphrase != m.passphrase {
		return dbx.ErrPassphraseMismatch
	}
	m.key.Locked = false
	return nil
}

func (m *memKeys) TempUnlock(k *dbx.SecretKey, passphrase string) error {
	if !k.Locked {
		return nil
	}
	if passphrase != m.passphrase {
		return dbx.ErrPassphraseMismatch
	}
	k.Locked = false
	return nil
}

// memSettings is an in-memory dbx.SettingsStore whose Load fails with loadErr
// until something is saved.
type memSettings struct {
	loadErr error
	saved   *dbx.Settings
}

func (m *memSettings) Load(environment, hostname, database string, key *dbx.SecretKey) (*dbx.Settings, error) {
	if m.saved == nil {
		return nil, m.loadErr
	}
	copied := *m.saved
	return &copied, nil
}

func (m *memSettings) Save(s *dbx.Settings, key *dbx.SecretKey) error {
	copied := *s
	m.saved = &copied
	return nil
}

// pingDB is a dbx.Database that only supports Ping and Close.
type pingDB struct {
	pinged bool
	closed bool
}

func (d *pingDB) Ping(ctx context.Context) error { d.pinged = true; return nil }
func (d *pingDB) TableList(ctx context.Context, schema string, includeViews bool) ([]string, error) {
	return nil, nil
}
func (d *pingDB) PrimaryKeyColumns(ctx context.Context, schema, table string) ([]string, error) {
	return nil, nil
}
func (d *pingDB) ColumnNames(ctx context.Context, schema, table string) ([]string, error) {
	return nil, nil
}
func (d *pingDB) ExportRows(ctx context.Context, schema, table string, orderBy []string,
	header func(columns []string) error, row func(record []string) error) (int, error) {
	return 0, nil
}
func (d *pingDB) ImportRows(ctx context.Context, schema, table string, columns []string,
	next func() ([]string, error)) (int, error) {
	return 0, nil
}
func (d *pingDB) Close() error { d.closed = true; return nil }

type pingConnector struct {
	db *pingDB
}

func (c *pingConnector) Connect(ctx context.Context, s *dbx.Settings) (dbx.Database, error) {
	return c.db, nil
}

func newAppFixture(keys *memKeys, settings *memSettings, p *scriptPrompter) *DBXApp {
	svc := dbx.NewService(keys, settings, nil, &pingConnector{db: &pingDB{}}, p, nil)
	return &DBXApp{service: svc, prompter: p, log: dbx.NewNopLogger()}
}

func TestLockKey(t *testing.T) {
	t.Run("passphrase from flag skips prompt", func(t *testing.T) {
		keys := &memKeys{}
		keys.Generate()
		p := &scriptPrompter{}
		a := newAppFixture(keys, &memSettings{loadErr: dbx.ErrSettingsNotFound}, p)

		if err := a.LockKey("sesame"); err != nil {
			t.Fatalf("LockKey() error = %v", err)
		}
		if !keys.key.Locked {
			t.Error("key not locked")
		}
		if keys.passphrase != "sesame" {
			t.Errorf("lock passphrase = %q, want %q", keys.passphrase, "sesame")
		}
		if p.asked != 0 {
			t.Errorf("prompter asked %d times, want 0", p.asked)
		}
	})

	t.Run("empty passphrase prompts twice", func(t *testing.T) {
		keys := &memKeys{}
		keys.Generate()
		p := &scriptPrompter{answers: []string{"sesame", "sesame"}}
		a := newAppFixture(keys, &memSettings{loadErr: dbx.ErrSettingsNotFound}, p)

		if err := a.LockKey(""); err != nil {
			t.Fatalf("LockKey() error = %v", err)
		}
		if !keys.key.Locked {
			t.Error("key not locked")
		}
		if p.asked != 2 {
			t.Errorf("prompter asked %d times, want 2", p.asked)
		}
	})

	t.Run("mismatched confirmation fails", func(t *testing.T) {
		keys := &memKeys{}
		keys.Generate()
		p := &scriptPrompter{answers: []string{"sesame", "other"}}
		a := newAppFixture(keys, &memSettings{loadErr: dbx.ErrSettingsNotFound}, p)

		if err := a.LockKey(""); err == nil {
			t.Error("LockKey() expected error for mismatched confirmation")
		}
		if keys.key.Locked {
			t.Error("key locked despite mismatch")
		}
	})
}

func TestVerifyCredentials_PromptsForFreshSettings(t *testing.T) {
	// Environment, Hostname, Port, Database, User, SSL mode,
	// SSL root certificate, then Password.
	promptAnswers := []string{"", "", "", "", "", "", "", "pw"}

	tests := []struct {
		name    string
		loadErr error
	}{
		{"missing settings", dbx.ErrSettingsNotFound},
		{"wrong secret key", dbx.ErrWrongSecretKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keys := &memKeys{}
			keys.Generate()
			settings := &memSettings{loadErr: tt.loadErr}
			p := &scriptPrompter{answers: promptAnswers}
			a := newAppFixture(keys, settings, p)

			err := a.VerifyCredentials(context.Background(), "dev", "localhost", "sample", "")
			if err != nil {
				t.Fatalf("VerifyCredentials() error = %v", err)
			}
			if settings.saved == nil {
				t.Fatal("expected fresh settings to be saved")
			}
			if settings.saved.Password != "pw" {
				t.Errorf("saved password = %q, want %q", settings.saved.Password, "pw")
			}
		})
	}
}
