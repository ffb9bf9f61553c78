package index

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/starford/mdcal/internal/apperr"
	"github.com/starford/mdcal/internal/docstore"
	"github.com/starford/mdcal/internal/models"
	"github.com/starford/mdcal/internal/parser"
)

// Change kinds reported to an EventCallback.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

// EventCallback is called after a catalog change. kind is one of
// KindCreated, KindUpdated, KindDeleted.
type EventCallback func(kind, id string)

// Source is the document store as seen by the catalog.
type Source interface {
	Dir() (string, error)
	Get(id string) (*models.Document, error)
	ListAll() ([]models.Document, error)
}

// Mirror keeps a DocumentIndex in step with a Source and reports every
// change it applies. Calls are serialized so each change is reported once
// no matter who notices it first.
type Mirror struct {
	mu     sync.Mutex
	db     DocumentIndex
	src    Source
	logger *slog.Logger
	cb     EventCallback
}

// NewMirror creates a Mirror. cb may be nil.
func NewMirror(db DocumentIndex, src Source, logger *slog.Logger, cb EventCallback) *Mirror {
	return &Mirror{db: db, src: src, logger: logger, cb: cb}
}

// DB returns the underlying catalog.
func (m *Mirror) DB() DocumentIndex {
	return m.db
}

// Search runs a full-text query against the catalog.
func (m *Mirror) Search(query string, limit int) ([]SearchResult, error) {
	return m.db.Search(query, limit)
}

// Refresh re-reads one document and updates its catalog entry. It returns
// the kind of change applied, or "" when the entry was already current.
// A document that is gone from the store is removed from the catalog.
func (m *Mirror) Refresh(id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, err := m.db.GetChecksum(id)
	if err != nil {
		return "", err
	}

	doc, err := m.src.Get(id)
	if errors.Is(err, apperr.ErrNotFound) {
		if prev == "" {
			return "", nil
		}
		if err := m.db.DeleteDocument(id); err != nil {
			return "", err
		}
		m.emit(KindDeleted, id)
		return KindDeleted, nil
	}
	if err != nil {
		return "", err
	}

	cs := docstore.Checksum(doc)
	if cs == prev {
		return "", nil
	}
	if err := upsert(m.db, doc, cs); err != nil {
		return "", err
	}
	kind := KindUpdated
	if prev == "" {
		kind = KindCreated
	}
	m.emit(kind, id)
	return kind, nil
}

// Sync walks the documents directory and brings the catalog up to date:
//   - new/changed documents are parsed and upserted
//   - documents no longer on disk are removed
func (m *Mirror) Sync() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	docs, err := m.src.ListAll()
	if err != nil {
		return err
	}
	checksums, err := m.db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(docs))
	for i := range docs {
		doc := &docs[i]
		disk[doc.ID] = struct{}{}

		prev, known := checksums[doc.ID]
		cs := docstore.Checksum(doc)
		if known && prev == cs {
			continue
		}
		if err := upsert(m.db, doc, cs); err != nil {
			m.logger.Warn("sync: index failed", slog.String("id", doc.ID), slog.String("error", err.Error()))
			continue
		}
		m.logger.Debug("sync: indexed", slog.String("id", doc.ID))
		if known {
			m.emit(KindUpdated, doc.ID)
		} else {
			m.emit(KindCreated, doc.ID)
		}
	}

	// Remove stale entries.
	for id := range checksums {
		if _, ok := disk[id]; ok {
			continue
		}
		if err := m.db.DeleteDocument(id); err != nil {
			m.logger.Warn("sync: delete failed", slog.String("id", id), slog.String("error", err.Error()))
			continue
		}
		m.logger.Debug("sync: removed stale", slog.String("id", id))
		m.emit(KindDeleted, id)
	}
	return nil
}

func (m *Mirror) emit(kind, id string) {
	if m.cb != nil {
		m.cb(kind, id)
	}
}

// upsert parses the document content and stores it in the catalog.
func upsert(db DocumentIndex, doc *models.Document, cs string) error {
	res := parser.Parse([]byte(doc.Content))
	row := DocumentRow{
		ID:        doc.ID,
		Title:     doc.Title,
		Checksum:  cs,
		Status:    doc.Status,
		StartDate: doc.StartDate,
		EndDate:   doc.EndDate,
		Tags:      res.Tags,
		UpdatedAt: doc.UpdatedAt,
	}
	return db.UpsertDocument(row, res.Text)
}
