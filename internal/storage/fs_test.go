package storage

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func tempDir(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempDir(t)
	content := []byte("# Hello\nWorld\n")
	if err := s.Write("note.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("note.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteSetsReadablePerm(t *testing.T) {
	s := tempDir(t)
	if err := s.Write("perm.md", []byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	info, err := os.Stat(filepath.Join(s.Root(), "perm.md"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != filePerm {
		t.Errorf("mode = %v, want %v", info.Mode().Perm(), os.FileMode(filePerm))
	}
}

func TestOverwriteLeavesNoTempFiles(t *testing.T) {
	s := tempDir(t)
	_ = s.Write("atomic.md", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("atomic.md", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.md")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	entries, _ := os.ReadDir(s.Root())
	if len(entries) != 1 {
		t.Errorf("leftover files: %v", entries)
	}
}

func TestRemove(t *testing.T) {
	s := tempDir(t)
	_ = s.Write("del.md", []byte("bye"))
	if err := s.Remove("del.md"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if s.Exists("del.md") {
		t.Error("file should be gone")
	}
	if err := s.Remove("del.md"); err != nil {
		t.Errorf("second Remove should be a no-op, got %v", err)
	}
}

func TestList(t *testing.T) {
	s := tempDir(t)
	_ = s.Write("a.md", []byte("a"))
	_ = s.Write("a.meta.json", []byte("{}"))
	_ = s.Write("b.md", []byte("b"))
	_ = s.Write("readme.txt", []byte("not md"))
	_ = os.Mkdir(filepath.Join(s.Root(), "dir.md"), 0o755)

	names, err := s.List(".md")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	sort.Strings(names)
	if len(names) != 2 || names[0] != "a.md" || names[1] != "b.md" {
		t.Errorf("names = %v, want [a.md b.md]", names)
	}
}

func TestExistsIgnoresDirectories(t *testing.T) {
	s := tempDir(t)
	_ = os.Mkdir(filepath.Join(s.Root(), "folder.md"), 0o755)
	if s.Exists("folder.md") {
		t.Error("directory must not count as a file")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempDir(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
		"sub/inner.md",
		`sub\inner.md`,
		"..",
		"",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
		if s.Exists(p) {
			t.Errorf("Exists(%q) should be false", p)
		}
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "mdcal-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
