//go:build sqlite_fts5

package index

import "testing"

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents_fts`).Scan(&count); err != nil {
		t.Fatalf("documents_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	row := DocumentRow{
		ID:       "fts",
		Title:    "FTS Document",
		Checksum: "f1",
		Tags:     []string{"search"},
	}
	if err := db.UpsertDocument(row, "The calendar provides powerful full-text search capabilities."); err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}

	results, err := db.Search("powerful", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].ID != "fts" {
		t.Errorf("id = %q", results[0].ID)
	}
	if results[0].Snippet == "" {
		t.Error("expected non-empty snippet")
	}
}

func TestFTS5_DeleteRemovesFromFTS(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocumentRow{ID: "gone", Checksum: "g"}, "vanishing content")
	_ = db.DeleteDocument("gone")

	results, _ := db.Search("vanishing", 10)
	for _, r := range results {
		if r.ID == "gone" {
			t.Error("deleted document still in FTS index")
		}
	}
}

func TestFTS5_UpsertReplacesContent(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocumentRow{ID: "evo", Title: "Old", Checksum: "1"}, "original text")
	_ = db.UpsertDocument(DocumentRow{ID: "evo", Title: "New", Checksum: "2"}, "replacement text")

	results, _ := db.Search("original", 10)
	if len(results) != 0 {
		t.Error("old FTS content should be gone")
	}
	results, _ = db.Search("replacement", 10)
	if len(results) != 1 || results[0].Title != "New" {
		t.Errorf("FTS not updated: %+v", results)
	}
}

func TestFTS5_SearchTreatsSyntaxAsText(t *testing.T) {
	db := testDB(t)
	row := DocumentRow{ID: "ops", Title: "Ops review", Checksum: "o1"}
	if err := db.UpsertDocument(row, "Check host a:b and the foo deploy."); err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}

	for _, q := range []string{`foo"`, `a:b`, `title:ops`, `deploy AND (`, `"`, `NEAR(`} {
		if _, err := db.Search(q, 10); err != nil {
			t.Errorf("Search(%q): %v", q, err)
		}
	}

	results, err := db.Search(`foo"`, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "ops" {
		t.Errorf("foo\" results = %+v", results)
	}

	results, err = db.Search("   ", 10)
	if err != nil || len(results) != 0 {
		t.Errorf("blank query = %+v, %v", results, err)
	}
}
