// Package settings persists user-chosen settings in config.json inside the
// application data directory. Nothing is cached: every call reads the file
// again so edits made by other processes are picked up on the next call.
package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"

	"github.com/starford/mdcal/internal/apperr"
)

const (
	// FileName is the settings file inside the data directory.
	FileName = "config.json"

	defaultDocumentsDir = "documents"

	filePerm = 0o644
)

// Settings is the content of config.json.
type Settings struct {
	DocumentsFolder *string `json:"documentsFolder,omitempty"`
}

// Store reads and writes config.json under a data directory.
type Store struct {
	dataDir string
}

// New returns a Store rooted at dataDir. The directory is created lazily.
func New(dataDir string) *Store {
	return &Store{dataDir: dataDir}
}

// DataDir returns the application data directory.
func (s *Store) DataDir() string {
	return s.dataDir
}

// Path returns the absolute location of config.json.
func (s *Store) Path() string {
	return filepath.Join(s.dataDir, FileName)
}

// Load reads config.json. A missing file yields zero Settings.
// Comments and trailing commas are tolerated.
func (s *Store) Load() (Settings, error) {
	data, err := os.ReadFile(s.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return Settings{}, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("settings: read %s: %w", s.Path(), err)
	}
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Settings{}, fmt.Errorf("settings: invalid JSONC in %s: %w", s.Path(), err)
	}
	var out Settings
	if err := json.Unmarshal(standardized, &out); err != nil {
		return Settings{}, fmt.Errorf("settings: invalid JSON in %s: %w", s.Path(), err)
	}
	return out, nil
}

// Save writes config.json atomically, creating the data directory if needed.
func (s *Store) Save(st Settings) error {
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return fmt.Errorf("settings: create data dir: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}
	_, statErr := os.Stat(s.Path())
	if err := atomic.WriteFile(s.Path(), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("settings: write %s: %w", s.Path(), err)
	}
	// A fresh file keeps the temp file's 0600.
	if errors.Is(statErr, fs.ErrNotExist) {
		if err := os.Chmod(s.Path(), filePerm); err != nil {
			return fmt.Errorf("settings: chmod %s: %w", s.Path(), err)
		}
	}
	return nil
}

// DocumentsFolder returns the configured documents folder, if any.
func (s *Store) DocumentsFolder() (string, bool, error) {
	st, err := s.Load()
	if err != nil {
		return "", false, err
	}
	if st.DocumentsFolder == nil || *st.DocumentsFolder == "" {
		return "", false, nil
	}
	return *st.DocumentsFolder, true, nil
}

// SetDocumentsFolder creates path if missing and records it in config.json.
// A leading ~ is expanded and relative paths are made absolute.
func (s *Store) SetDocumentsFolder(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("settings: documents folder: %w", apperr.ErrInvalidInput)
	}
	abs, err := filepath.Abs(expandHome(path))
	if err != nil {
		return fmt.Errorf("settings: resolve %s: %w", path, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("settings: create documents folder: %w", err)
	}

	st, err := s.Load()
	if err != nil {
		return err
	}
	st.DocumentsFolder = &abs
	return s.Save(st)
}

// DocumentsDir resolves the directory documents live in: the configured
// folder, or <dataDir>/documents. The directory is created if missing.
func (s *Store) DocumentsDir() (string, error) {
	dir, ok, err := s.DocumentsFolder()
	if err != nil {
		return "", err
	}
	if !ok {
		dir = filepath.Join(s.dataDir, defaultDocumentsDir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("settings: create documents dir: %w", err)
	}
	return dir, nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
