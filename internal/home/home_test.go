package home

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("explicit path", func(t *testing.T) {
		d, err := New("/tmp/custom-lectern")
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if d.Path() != "/tmp/custom-lectern" {
			t.Errorf("Path() = %q", d.Path())
		}
	})

	t.Run("default path under user home", func(t *testing.T) {
		d, err := New("")
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if filepath.Base(d.Path()) != DefaultDirName {
			t.Errorf("default dir = %q, want basename %q", d.Path(), DefaultDirName)
		}
	})
}

func TestDirPaths(t *testing.T) {
	root := t.TempDir()
	d, err := New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if d.ConfigPath() != filepath.Join(root, ConfigFileName) {
		t.Errorf("ConfigPath() = %q", d.ConfigPath())
	}
	if d.OriginalsDir() != filepath.Join(root, OriginalsDirName) {
		t.Errorf("OriginalsDir() = %q", d.OriginalsDir())
	}
	want := filepath.Join(root, OriginalsDirName, "abc-123.pdf")
	if d.OriginalPath("abc-123") != want {
		t.Errorf("OriginalPath() = %q, want %q", d.OriginalPath("abc-123"), want)
	}
}

func TestEnsureExists(t *testing.T) {
	root := filepath.Join(t.TempDir(), "lectern-home")
	d, err := New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if d.Exists() {
		t.Fatal("home should not exist yet")
	}
	if err := d.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists: %v", err)
	}
	if !d.Exists() {
		t.Error("home not created")
	}
	if info, err := os.Stat(d.OriginalsDir()); err != nil || !info.IsDir() {
		t.Errorf("originals dir not created: %v", err)
	}

	// Idempotent on an existing tree.
	if err := d.EnsureExists(); err != nil {
		t.Errorf("EnsureExists on existing dir: %v", err)
	}
}

func TestConfigExists(t *testing.T) {
	d, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if d.ConfigExists() {
		t.Fatal("config should not exist yet")
	}
	if err := os.WriteFile(d.ConfigPath(), []byte("server:\n  port: 8585\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if !d.ConfigExists() {
		t.Error("config not detected")
	}
}
