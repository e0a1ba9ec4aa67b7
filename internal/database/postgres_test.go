package database

import (
	"testing"
	"time"

	"dbx-go/internal/dbx"
)

func TestDSN(t *testing.T) {
	t.Run("all fields", func(t *testing.T) {
		s := &dbx.Settings{
			Database:    "sample",
			Hostname:    "db.example.com",
			Port:        "5432",
			User:        "postgres",
			Password:    "password",
			SSLMode:     "verify-full",
			SSLRootCert: "/etc/ssl/root.crt",
		}
		want := "host=db.example.com port=5432 dbname=sample user=postgres password=password sslmode=verify-full sslrootcert=/etc/ssl/root.crt"
		if got := DSN(s); got != want {
			t.Errorf("DSN() = %q, want %q", got, want)
		}
	})

	t.Run("empty fields omitted", func(t *testing.T) {
		s := &dbx.Settings{Database: "sample", Hostname: "localhost", Port: "5432", User: "u", Password: "p"}
		want := "host=localhost port=5432 dbname=sample user=u password=p"
		if got := DSN(s); got != want {
			t.Errorf("DSN() = %q, want %q", got, want)
		}
	})

	t.Run("password with space is quoted", func(t *testing.T) {
		s := &dbx.Settings{Database: "d", Hostname: "h", Password: "two words"}
		want := "host=h dbname=d password='two words'"
		if got := DSN(s); got != want {
			t.Errorf("DSN() = %q, want %q", got, want)
		}
	})

	t.Run("password with quote is escaped", func(t *testing.T) {
		s := &dbx.Settings{Database: "d", Hostname: "h", Password: `it's`}
		want := `host=h dbname=d password='it\'s'`
		if got := DSN(s); got != want {
			t.Errorf("DSN() = %q, want %q", got, want)
		}
	})
}

func TestQuoteIdent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "accounts", `"accounts"`},
		{"mixed case", "Accounts", `"Accounts"`},
		{"embedded quote", `we"ird`, `"we""ird"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := quoteIdent(tt.in); got != tt.want {
				t.Errorf("quoteIdent(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestInsertSQL(t *testing.T) {
	got := insertSQL("public", "accounts", []string{"id", "name"})
	want := `insert into "public"."accounts" ("id", "name") values ($1, $2)`
	if got != want {
		t.Errorf("insertSQL() = %q, want %q", got, want)
	}
}

func TestFormatValue(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "hello", "hello"},
		{"bytes", []byte("raw"), "raw"},
		{"int64", int64(42), "42"},
		{"float64", 3.5, "3.5"},
		{"bool true", true, "true"},
		{"bool false", false, "false"},
		{"time", ts, "2026-03-14T09:26:53Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatValue(tt.in); got != tt.want {
				t.Errorf("formatValue(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
