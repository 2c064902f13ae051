// Package home manages the lectern home directory layout.
package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the lectern home directory.
	DefaultDirName = ".lectern"

	// OriginalsDirName is the subdirectory holding uploaded PDF files.
	OriginalsDirName = "originals"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
)

// Dir represents the lectern home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.lectern).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// OriginalsDir returns the directory where uploaded PDFs are kept.
func (d *Dir) OriginalsDir() string {
	return filepath.Join(d.path, OriginalsDirName)
}

// OriginalPath returns the path an uploaded PDF is stored at. Book IDs
// are UUIDs so the name cannot collide or escape the directory.
func (d *Dir) OriginalPath(bookID string) string {
	return filepath.Join(d.OriginalsDir(), bookID+".pdf")
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	if err := os.MkdirAll(d.OriginalsDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create originals directory: %w", err)
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}
