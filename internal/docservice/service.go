// Package docservice is the operation surface front ends call: the HTTP
// API, the MCP server and the CLI all go through a Service.
package docservice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/mdcal/internal/apperr"
	"github.com/starford/mdcal/internal/docstore"
	"github.com/starford/mdcal/internal/icsfeed"
	"github.com/starford/mdcal/internal/index"
	"github.com/starford/mdcal/internal/models"
	"github.com/starford/mdcal/internal/query"
	"github.com/starford/mdcal/internal/settings"
)

// Catalog is the optional full-text catalog kept next to the store.
type Catalog interface {
	Refresh(id string) (string, error)
	Search(query string, limit int) ([]index.SearchResult, error)
}

// Service coordinates the document store, queries, settings and catalog.
type Service struct {
	store    *docstore.Store
	query    *query.Engine
	settings *settings.Store
	catalog  Catalog
	logger   *slog.Logger
	onFolder []func(dir string)
	icsName  string
}

// Option configures a Service.
type Option func(*Service)

// WithCatalog attaches a catalog that is refreshed after every mutation and
// serves FullTextSearch.
func WithCatalog(c Catalog) Option {
	return func(s *Service) {
		s.catalog = c
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// OnFolderChange registers fn to run after the documents folder changes.
func OnFolderChange(fn func(dir string)) Option {
	return func(s *Service) {
		s.onFolder = append(s.onFolder, fn)
	}
}

// WithCalendarName sets the X-WR-CALNAME of exported feeds.
func WithCalendarName(name string) Option {
	return func(s *Service) {
		s.icsName = name
	}
}

// New creates a Service.
func New(store *docstore.Store, cfg *settings.Store, q *query.Engine, opts ...Option) *Service {
	s := &Service{
		store:    store,
		query:    q,
		settings: cfg,
		logger:   slog.New(slog.DiscardHandler),
		icsName:  "mdcal",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateDocument stores a new document.
func (s *Service) CreateDocument(_ context.Context, in docstore.CreateInput) (*models.Document, error) {
	doc, err := s.store.Create(in)
	if err != nil {
		return nil, err
	}
	s.refresh(doc.ID)
	return doc, nil
}

// GetDocument loads a document; absent documents yield apperr.ErrNotFound.
func (s *Service) GetDocument(_ context.Context, id string) (*models.Document, error) {
	return s.store.Get(id)
}

// UpdateDocument applies a partial update and returns the document under
// its resulting id.
func (s *Service) UpdateDocument(_ context.Context, id string, in docstore.UpdateInput) (*models.Document, error) {
	doc, err := s.store.Update(id, in)
	if err != nil {
		return nil, err
	}
	if doc.ID != id {
		s.refresh(id)
	}
	s.refresh(doc.ID)
	return doc, nil
}

// CycleStatus advances a document's status one step along the cycle.
func (s *Service) CycleStatus(ctx context.Context, id string) (*models.Document, error) {
	doc, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	next := models.NextStatus(doc.Status)
	return s.UpdateDocument(ctx, id, docstore.UpdateInput{
		Status:  &next,
		IfMatch: docstore.Checksum(doc),
	})
}

// DeleteDocument removes a document. It succeeds for absent ids.
func (s *Service) DeleteDocument(_ context.Context, id string) (bool, error) {
	ok, err := s.store.Delete(id)
	if err != nil {
		return false, err
	}
	s.refresh(id)
	return ok, nil
}

// ListDocuments returns every document, most recently updated first.
func (s *Service) ListDocuments(_ context.Context) ([]models.Document, error) {
	return s.query.Documents()
}

// ListSummaries returns every summary, most recently updated first.
func (s *Service) ListSummaries(_ context.Context) ([]models.DocumentSummary, error) {
	return s.query.Summaries()
}

// ListForMonth returns documents overlapping the month.
func (s *Service) ListForMonth(_ context.Context, year, month int) ([]models.Document, error) {
	return s.query.DocumentsForMonth(year, month)
}

// ListSummariesForMonth returns summaries overlapping the month.
func (s *Service) ListSummariesForMonth(_ context.Context, year, month int) ([]models.DocumentSummary, error) {
	return s.query.SummariesForMonth(year, month)
}

// SearchDocuments matches title or content, case-insensitively.
func (s *Service) SearchDocuments(_ context.Context, q string) ([]models.Document, error) {
	return s.query.SearchDocuments(q)
}

// SearchSummaries matches titles, case-insensitively.
func (s *Service) SearchSummaries(_ context.Context, q string) ([]models.DocumentSummary, error) {
	return s.query.SearchSummaries(q)
}

// FuzzySearchSummaries ranks summaries by fuzzy title match.
func (s *Service) FuzzySearchSummaries(_ context.Context, q string) ([]models.DocumentSummary, error) {
	return s.query.FuzzySummaries(q)
}

// FullTextSearch queries the catalog. Without one it fails with
// apperr.ErrUnavailable.
func (s *Service) FullTextSearch(_ context.Context, q string, limit int) ([]index.SearchResult, error) {
	if s.catalog == nil {
		return nil, fmt.Errorf("docservice: full-text search: %w", apperr.ErrUnavailable)
	}
	return s.catalog.Search(q, limit)
}

// ExportICS renders every document, or one month's when month is non-zero,
// as an iCalendar feed.
func (s *Service) ExportICS(_ context.Context, year, month int) (string, error) {
	var (
		docs []models.Document
		err  error
	)
	if month == 0 {
		docs, err = s.query.Documents()
	} else {
		docs, err = s.query.DocumentsForMonth(year, month)
	}
	if err != nil {
		return "", err
	}
	return icsfeed.Build(docs, icsfeed.Options{Name: s.icsName}), nil
}

// DocumentChecksum returns the checksum used as the document ETag.
func (s *Service) DocumentChecksum(d *models.Document) string {
	return docstore.Checksum(d)
}

// GetDocumentsFolder returns the configured folder, if one is set.
func (s *Service) GetDocumentsFolder(_ context.Context) (string, bool, error) {
	return s.settings.DocumentsFolder()
}

// DocumentsDir returns the directory documents are currently read from.
func (s *Service) DocumentsDir(_ context.Context) (string, error) {
	return s.settings.DocumentsDir()
}

// SetDocumentsFolder records a new documents folder, creating it if needed,
// and notifies folder-change listeners.
func (s *Service) SetDocumentsFolder(_ context.Context, path string) error {
	if err := s.settings.SetDocumentsFolder(path); err != nil {
		return err
	}
	dir, err := s.settings.DocumentsDir()
	if err != nil {
		return err
	}
	s.logger.Info("docservice: documents folder changed", slog.String("dir", dir))
	for _, fn := range s.onFolder {
		fn(dir)
	}
	return nil
}

// refresh mirrors one id into the catalog. Failures only cost search
// freshness, so they are logged and dropped.
func (s *Service) refresh(id string) {
	if s.catalog == nil {
		return
	}
	if _, err := s.catalog.Refresh(id); err != nil {
		s.logger.Warn("docservice: catalog refresh failed",
			slog.String("id", id),
			slog.String("error", err.Error()))
	}
}
