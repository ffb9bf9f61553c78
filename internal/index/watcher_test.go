package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/mdcal/internal/docstore"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func startWatcher(t *testing.T, env *mirrorEnv) *Watcher {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	w := NewWatcher(env.mirror, logger)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)
	return w
}

func writePair(t *testing.T, dir, id, title string) {
	t.Helper()
	meta := `{"title":"` + title + `","startDate":1,"endDate":2,"status":"none","createdAt":1,"updatedAt":1}`
	if err := os.WriteFile(filepath.Join(dir, id+docstore.ContentExt), []byte("body of "+title), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, id+docstore.MetaExt), []byte(meta), 0o644); err != nil {
		t.Fatal(err)
	}
}

func indexed(db *DB, id string) bool {
	cs, _ := db.GetChecksum(id)
	return cs != ""
}

func TestWatcher_ExternalFileIndexed(t *testing.T) {
	env := newMirrorEnv(t)
	startWatcher(t, env)
	dir, _ := env.store.Dir()

	writePair(t, dir, "External", "External")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return indexed(env.db, "External")
	}, "external document not indexed by watcher")
	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		return env.rec.has("created:External")
	}, "expected created:External callback")
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	env := newMirrorEnv(t)
	doc, _ := env.store.Create(docstore.CreateInput{Title: "Delete Me"})
	startWatcher(t, env)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return indexed(env.db, doc.ID)
	}, "precondition: document should be indexed by the initial sync")
	dir, _ := env.store.Dir()
	_ = os.Remove(filepath.Join(dir, doc.ID+docstore.ContentExt))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return !indexed(env.db, doc.ID)
	}, "deleted document still in index")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	env := newMirrorEnv(t)
	doc, _ := env.store.Create(docstore.CreateInput{Title: "Plan"})
	startWatcher(t, env)

	title := "Roadmap"
	if _, err := env.store.Update(doc.ID, docstore.UpdateInput{Title: &title}); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return !indexed(env.db, "Plan") && indexed(env.db, "Roadmap")
	}, "rename reconciliation failed: old id should be removed and new id indexed")
}

func TestWatcher_Retarget(t *testing.T) {
	env := newMirrorEnv(t)
	old, _ := env.store.Create(docstore.CreateInput{Title: "Old Folder Doc"})
	w := startWatcher(t, env)

	next := t.TempDir()
	writePair(t, next, "Moved", "Moved")
	if err := env.settings.SetDocumentsFolder(next); err != nil {
		t.Fatal(err)
	}
	w.Retarget()

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return indexed(env.db, "Moved") && !indexed(env.db, old.ID)
	}, "catalog not rebuilt for the new documents folder")

	writePair(t, next, "Later", "Later")
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return indexed(env.db, "Later")
	}, "watcher not following the new documents folder")
}

func TestDocID(t *testing.T) {
	tests := map[string]string{
		"/x/Plan.md":        "Plan",
		"/x/Plan.meta.json": "Plan",
		"Plan_1.md":         "Plan_1",
	}
	for in, want := range tests {
		got, ok := docID(in)
		if !ok || got != want {
			t.Errorf("docID(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	for _, in := range []string{"/x/readme.txt", "/x/.md", "Plan.md12345"} {
		if _, ok := docID(in); ok {
			t.Errorf("docID(%q) should be rejected", in)
		}
	}
}
