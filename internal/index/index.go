package index

import "context"

// DocumentIndex defines the catalog operations. Consumers should depend on
// this interface rather than the concrete *DB type.
type DocumentIndex interface {
	UpsertDocument(row DocumentRow, body string) error
	DeleteDocument(id string) error
	GetChecksum(id string) (string, error)
	AllChecksums() (map[string]string, error)
	Count() (int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Ping(ctx context.Context) error
	Close() error
}

// Verify *DB satisfies DocumentIndex at compile time.
var _ DocumentIndex = (*DB)(nil)
