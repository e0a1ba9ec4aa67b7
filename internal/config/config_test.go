package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		SecretKeyPath: "/home/user/.dbx.secret.toml",
		SettingsDir:   "/home/user/.local/share/dbx/credentials",
		LogDir:        "/home/user/.local/share/dbx/log",
		History: HistoryConfig{
			DataDir: "/home/user/.local/share/dbx/db",
		},
		Store: StoreConfig{
			Type:     "s3",
			S3Bucket: "exports",
			S3Prefix: "dbx",
			S3Region: "eu-west-1",
		},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.SecretKeyPath != original.SecretKeyPath {
		t.Errorf("SecretKeyPath = %q, want %q", got.SecretKeyPath, original.SecretKeyPath)
	}
	if got.SettingsDir != original.SettingsDir {
		t.Errorf("SettingsDir = %q, want %q", got.SettingsDir, original.SettingsDir)
	}
	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if got.History.DataDir != original.History.DataDir {
		t.Errorf("History.DataDir = %q, want %q", got.History.DataDir, original.History.DataDir)
	}
	if got.Store.Type != "s3" {
		t.Errorf("Store.Type = %q, want %q", got.Store.Type, "s3")
	}
	if got.Store.S3Bucket != "exports" {
		t.Errorf("Store.S3Bucket = %q, want %q", got.Store.S3Bucket, "exports")
	}
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig("/home/user", "/home/user/.local/share/dbx")

	if cfg.SecretKeyPath != filepath.Join("/home/user", ".dbx.secret.toml") {
		t.Errorf("SecretKeyPath = %q", cfg.SecretKeyPath)
	}
	if cfg.SettingsDir != filepath.Join("/home/user/.local/share/dbx", "credentials") {
		t.Errorf("SettingsDir = %q", cfg.SettingsDir)
	}
	if cfg.Store.Type != "filesystem" {
		t.Errorf("Store.Type = %q, want filesystem", cfg.Store.Type)
	}
	if cfg.Store.Location == "" {
		t.Error("Store.Location should default to a path under the base dir")
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "conf", "dbx.toml")
		cfg := NewConfig("/home/user", "/home/user/.local/share/dbx")

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.SecretKeyPath != cfg.SecretKeyPath {
			t.Errorf("SecretKeyPath = %q, want %q", got.SecretKeyPath, cfg.SecretKeyPath)
		}
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dbx.toml")
		if err := os.WriteFile(path, []byte("secret_key_path = \"/x\"\n"), 0644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}

		cfg := NewConfig("/home/user", "/data")
		if err := Init(path, cfg); err == nil {
			t.Error("Init() expected error for existing config file")
		}
	})
}

func TestReadFromFile_Missing(t *testing.T) {
	_, err := ReadFromFile(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil {
		t.Error("ReadFromFile() expected error for missing file")
	}
}
