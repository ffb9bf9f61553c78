// Package testutil provides shared test helpers for setting up document
// folders, catalogs and services.
package testutil

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/starford/mdcal/internal/docservice"
	"github.com/starford/mdcal/internal/docstore"
	"github.com/starford/mdcal/internal/index"
	"github.com/starford/mdcal/internal/query"
	"github.com/starford/mdcal/internal/settings"
)

// TestDB creates a temporary SQLite catalog that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "mdcal-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates a document store over a temporary data directory. The
// documents folder is left unset, so documents land in the default folder
// under that directory.
func TestStore(t *testing.T) (*settings.Store, *docstore.Store) {
	t.Helper()
	cfg := settings.New(t.TempDir())
	return cfg, docstore.New(cfg)
}

// TestService wires a Service over a fresh store. Month boundaries use loc.
func TestService(t *testing.T, loc *time.Location, opts ...docservice.Option) *docservice.Service {
	t.Helper()
	cfg, store := TestStore(t)
	return docservice.New(store, cfg, query.New(store, loc), opts...)
}

// TestCatalogService is TestService with a SQLite catalog attached, so
// full-text search is available.
func TestCatalogService(t *testing.T, loc *time.Location) *docservice.Service {
	t.Helper()
	cfg, store := TestStore(t)
	mirror := index.NewMirror(TestDB(t), store, slog.New(slog.DiscardHandler), nil)
	return docservice.New(store, cfg, query.New(store, loc), docservice.WithCatalog(mirror))
}
