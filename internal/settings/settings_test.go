package settings

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/mdcal/internal/apperr"
)

func TestDocumentsFolder_AbsentByDefault(t *testing.T) {
	s := New(t.TempDir())
	_, ok, err := s.DocumentsFolder()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDocumentsDir_DefaultUnderDataDir(t *testing.T) {
	data := t.TempDir()
	s := New(data)
	dir, err := s.DocumentsDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(data, "documents"), dir)
	assert.DirExists(t, dir)
}

func TestSetDocumentsFolder_CreatesAndPersists(t *testing.T) {
	data := t.TempDir()
	target := filepath.Join(t.TempDir(), "nested", "docs")
	s := New(data)

	require.NoError(t, s.SetDocumentsFolder(target))
	assert.DirExists(t, target)

	got, ok, err := s.DocumentsFolder()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, target, got)

	dir, err := s.DocumentsDir()
	require.NoError(t, err)
	assert.Equal(t, target, dir)

	raw, err := os.ReadFile(filepath.Join(data, FileName))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"documentsFolder"`)
}

func TestSave_FileMode(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.Save(Settings{}))

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(filePerm), info.Mode().Perm())

	// A mode chosen by the user survives later saves.
	require.NoError(t, os.Chmod(s.Path(), 0o600))
	require.NoError(t, s.SetDocumentsFolder(filepath.Join(t.TempDir(), "docs")))
	info, err = os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSetDocumentsFolder_EmptyRejected(t *testing.T) {
	s := New(t.TempDir())
	err := s.SetDocumentsFolder("  ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
}

func TestLoad_SeesExternalEdits(t *testing.T) {
	data := t.TempDir()
	s := New(data)
	first := filepath.Join(t.TempDir(), "first")
	require.NoError(t, s.SetDocumentsFolder(first))

	second := t.TempDir()
	edited := []byte(`{
  // switched by hand
  "documentsFolder": "` + filepath.ToSlash(second) + `",
}`)
	require.NoError(t, os.WriteFile(filepath.Join(data, FileName), edited, 0o644))

	dir, err := s.DocumentsDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.ToSlash(second), filepath.ToSlash(dir))
}

func TestLoad_InvalidFile(t *testing.T) {
	data := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(data, FileName), []byte(`{"documentsFolder": 12}`), 0o644))
	_, err := New(data).Load()
	assert.Error(t, err)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	assert.Equal(t, filepath.Join(home, "docs"), expandHome("~/docs"))
	assert.Equal(t, "/abs/docs", expandHome("/abs/docs"))
}
