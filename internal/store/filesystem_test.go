package store

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dbx-go/internal/dbx"
)

func TestFileSystemStore_PutGet(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		s, err := NewFileSystemStore(t.TempDir())
		if err != nil {
			t.Fatalf("NewFileSystemStore() error = %v", err)
		}

		content := "id,name\n1,alpha\n"
		if err := s.Put("dev/sample/public-accounts.csv", strings.NewReader(content)); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		var buf bytes.Buffer
		if err := s.Get("dev/sample/public-accounts.csv", &buf); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if buf.String() != content {
			t.Errorf("Get() = %q, want %q", buf.String(), content)
		}
	})

	t.Run("put replaces existing object", func(t *testing.T) {
		s, err := NewFileSystemStore(t.TempDir())
		if err != nil {
			t.Fatalf("NewFileSystemStore() error = %v", err)
		}

		if err := s.Put("a.csv", strings.NewReader("old")); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if err := s.Put("a.csv", strings.NewReader("new")); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		var buf bytes.Buffer
		if err := s.Get("a.csv", &buf); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if buf.String() != "new" {
			t.Errorf("Get() = %q, want %q", buf.String(), "new")
		}
	})

	t.Run("missing object", func(t *testing.T) {
		s, err := NewFileSystemStore(t.TempDir())
		if err != nil {
			t.Fatalf("NewFileSystemStore() error = %v", err)
		}

		var buf bytes.Buffer
		if err := s.Get("missing.csv", &buf); !errors.Is(err, dbx.ErrObjectNotFound) {
			t.Errorf("Get() error = %v, want ErrObjectNotFound", err)
		}
	})

	t.Run("no temp files left behind", func(t *testing.T) {
		root := t.TempDir()
		s, err := NewFileSystemStore(root)
		if err != nil {
			t.Fatalf("NewFileSystemStore() error = %v", err)
		}

		if err := s.Put("dev/sample/t.csv", strings.NewReader("data")); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		entries, err := os.ReadDir(filepath.Join(root, "dev", "sample"))
		if err != nil {
			t.Fatalf("ReadDir() error = %v", err)
		}
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), ".tmp-") {
				t.Errorf("temp file left behind: %s", e.Name())
			}
		}
	})
}
