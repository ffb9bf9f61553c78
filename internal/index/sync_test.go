package index

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/starford/mdcal/internal/docstore"
	"github.com/starford/mdcal/internal/settings"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) record(kind, id string) {
	r.mu.Lock()
	r.events = append(r.events, kind+":"+id)
	r.mu.Unlock()
}

func (r *recorder) has(event string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == event {
			return true
		}
	}
	return false
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

type mirrorEnv struct {
	settings *settings.Store
	store    *docstore.Store
	db       *DB
	mirror   *Mirror
	rec      *recorder
}

func newMirrorEnv(t *testing.T) *mirrorEnv {
	t.Helper()
	st := settings.New(t.TempDir())
	store := docstore.New(st)
	db := testDB(t)
	rec := &recorder{}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return &mirrorEnv{
		settings: st,
		store:    store,
		db:       db,
		mirror:   NewMirror(db, store, logger, rec.record),
		rec:      rec,
	}
}

func TestMirror_SyncAddsAndRemoves(t *testing.T) {
	env := newMirrorEnv(t)
	a, _ := env.store.Create(docstore.CreateInput{Title: "Alpha", Content: "first #tagged"})
	b, _ := env.store.Create(docstore.CreateInput{Title: "Beta", Content: "second"})

	if err := env.mirror.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !env.rec.has("created:" + a.ID) || !env.rec.has("created:" + b.ID) {
		t.Fatalf("events = %v", env.rec.events)
	}
	cs, _ := env.db.GetChecksum(a.ID)
	if cs != docstore.Checksum(a) {
		t.Errorf("catalog checksum = %q, want store checksum", cs)
	}

	env.rec.reset()
	if err := env.mirror.Sync(); err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	if len(env.rec.events) != 0 {
		t.Errorf("unchanged sync emitted %v", env.rec.events)
	}

	dir, _ := env.store.Dir()
	_ = os.Remove(filepath.Join(dir, b.ID+docstore.MetaExt))
	if err := env.mirror.Sync(); err != nil {
		t.Fatalf("third Sync: %v", err)
	}
	if !env.rec.has("deleted:" + b.ID) {
		t.Errorf("expected deleted:%s, got %v", b.ID, env.rec.events)
	}
	if cs, _ := env.db.GetChecksum(b.ID); cs != "" {
		t.Error("half-deleted document should leave the catalog")
	}
}

func TestMirror_Refresh(t *testing.T) {
	env := newMirrorEnv(t)
	doc, _ := env.store.Create(docstore.CreateInput{Title: "Note", Content: "v1"})

	kind, err := env.mirror.Refresh(doc.ID)
	if err != nil || kind != KindCreated {
		t.Fatalf("first refresh = %q, %v", kind, err)
	}
	kind, _ = env.mirror.Refresh(doc.ID)
	if kind != "" {
		t.Errorf("unchanged refresh = %q, want empty", kind)
	}

	content := "v2"
	if _, err := env.store.Update(doc.ID, docstore.UpdateInput{Content: &content}); err != nil {
		t.Fatal(err)
	}
	kind, _ = env.mirror.Refresh(doc.ID)
	if kind != KindUpdated {
		t.Errorf("refresh after update = %q", kind)
	}

	_, _ = env.store.Delete(doc.ID)
	kind, _ = env.mirror.Refresh(doc.ID)
	if kind != KindDeleted {
		t.Errorf("refresh after delete = %q", kind)
	}
	kind, err = env.mirror.Refresh("never-there")
	if err != nil || kind != "" {
		t.Errorf("refresh of unknown id = %q, %v", kind, err)
	}
}

func TestMirror_IndexesParsedText(t *testing.T) {
	env := newMirrorEnv(t)
	doc, _ := env.store.Create(docstore.CreateInput{Title: "Launch", Content: "# Launch\n\nShip the **zeppelin** #aviation"})
	if _, err := env.mirror.Refresh(doc.ID); err != nil {
		t.Fatal(err)
	}
	results, err := env.db.Search("zeppelin", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != doc.ID {
		t.Errorf("results = %+v", results)
	}
}
