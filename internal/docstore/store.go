// Package docstore persists documents as file pairs in a documents
// directory: <id>.md holds the raw content and <id>.meta.json the metadata.
//
// The file system is the system of record. The store keeps no cache and
// resolves the directory again on every call, so a changed documents folder
// takes effect immediately. A document exists only while both of its files
// do. Operations are plain sequences of file calls; concurrent writers on
// the same id are not detected.
package docstore

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/mdcal/internal/apperr"
	"github.com/starford/mdcal/internal/checksum"
	"github.com/starford/mdcal/internal/meta"
	"github.com/starford/mdcal/internal/models"
	"github.com/starford/mdcal/internal/naming"
	"github.com/starford/mdcal/internal/storage"
)

// File name suffixes of a document pair.
const (
	ContentExt = ".md"
	MetaExt    = ".meta.json"
)

// DirResolver supplies the documents directory, creating it if needed.
type DirResolver interface {
	DocumentsDir() (string, error)
}

// CreateInput carries the fields of a new document. A nil Status means
// models.DefaultStatus.
type CreateInput struct {
	Title     string
	Content   string
	StartDate int64
	EndDate   int64
	Status    *string
}

// UpdateInput carries a partial update; nil fields keep their value.
// A non-empty IfMatch must equal the current Checksum or the update fails
// with apperr.ErrConflict.
type UpdateInput struct {
	Title     *string
	Content   *string
	StartDate *int64
	EndDate   *int64
	Status    *string
	IfMatch   string
}

// Store implements create/read/update/delete and directory scans.
type Store struct {
	dirs   DirResolver
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for timestamps and id fallback.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the logger used for skipped entries and cleanup failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// New creates a Store that resolves its directory through dirs.
func New(dirs DirResolver, opts ...Option) *Store {
	s := &Store{
		dirs:   dirs,
		now:    time.Now,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir resolves the current documents directory.
func (s *Store) Dir() (string, error) {
	return s.dirs.DocumentsDir()
}

func (s *Store) open() (storage.Provider, error) {
	dir, err := s.dirs.DocumentsDir()
	if err != nil {
		return nil, fmt.Errorf("docstore: resolve documents dir: %w", err)
	}
	return storage.NewFS(dir)
}

func contentName(id string) string { return id + ContentExt }
func metaName(id string) string    { return id + MetaExt }

// validID rejects ids that cannot name a file directly inside the
// documents directory. Sanitized ids always pass.
func validID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`)
}

// Checksum fingerprints a document's content and metadata. It is stable
// across reads of an unchanged document, including legacy metadata files.
func Checksum(d *models.Document) string {
	m, err := meta.Encode(d.Meta())
	if err != nil {
		return ""
	}
	return checksum.Pair([]byte(d.Content), m)
}

// Create writes a new document under an id derived from its title.
func (s *Store) Create(in CreateInput) (*models.Document, error) {
	fsys, err := s.open()
	if err != nil {
		return nil, err
	}

	status := models.DefaultStatus
	if in.Status != nil {
		status = *in.Status
	}
	now := s.now().UnixMilli()

	base := naming.Sanitize(in.Title)
	id := naming.Allocate(func(c string) bool {
		return fsys.Exists(contentName(c))
	}, base, s.now)

	doc := &models.Document{
		ID:        id,
		Title:     in.Title,
		Content:   in.Content,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.writePair(fsys, doc, true); err != nil {
		return nil, err
	}
	s.logger.Debug("docstore: created", slog.String("id", id))
	return doc, nil
}

// Get loads a document. It returns apperr.ErrNotFound unless both files
// exist, and a meta.ErrDecode error when the metadata cannot be read.
func (s *Store) Get(id string) (*models.Document, error) {
	fsys, err := s.open()
	if err != nil {
		return nil, err
	}
	return s.get(fsys, id)
}

func (s *Store) get(fsys storage.Provider, id string) (*models.Document, error) {
	if !validID(id) || !fsys.Exists(contentName(id)) || !fsys.Exists(metaName(id)) {
		return nil, fmt.Errorf("docstore: get %q: %w", id, apperr.ErrNotFound)
	}
	content, err := fsys.Read(contentName(id))
	if err != nil {
		return nil, readErr(id, err)
	}
	raw, err := fsys.Read(metaName(id))
	if err != nil {
		return nil, readErr(id, err)
	}
	m, err := meta.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("docstore: decode %q: %w", id, err)
	}
	return models.NewDocument(id, m, string(content)), nil
}

// readErr maps a file vanishing between the existence check and the read
// to not-found.
func readErr(id string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("docstore: get %q: %w", id, apperr.ErrNotFound)
	}
	return fmt.Errorf("docstore: get %q: %w", id, err)
}

// Update applies in to the document id and returns it under its resulting
// id. A title change whose sanitized form differs from id moves the
// document to a newly allocated id; removing the old files afterwards is
// best-effort.
func (s *Store) Update(id string, in UpdateInput) (*models.Document, error) {
	fsys, err := s.open()
	if err != nil {
		return nil, err
	}
	cur, err := s.get(fsys, id)
	if err != nil {
		return nil, err
	}
	if in.IfMatch != "" && in.IfMatch != Checksum(cur) {
		return nil, fmt.Errorf("docstore: update %q: %w", id, apperr.ErrConflict)
	}

	next := *cur
	titleChanged := in.Title != nil && *in.Title != cur.Title
	if in.Title != nil {
		next.Title = *in.Title
	}
	if in.Content != nil {
		next.Content = *in.Content
	}
	if in.StartDate != nil {
		next.StartDate = *in.StartDate
	}
	if in.EndDate != nil {
		next.EndDate = *in.EndDate
	}
	if in.Status != nil {
		next.Status = *in.Status
	}
	next.UpdatedAt = s.stamp(cur.UpdatedAt)

	if titleChanged {
		if base := naming.Sanitize(next.Title); base != id {
			// The old pair is about to go away, so its id counts as free.
			newID := naming.Allocate(func(c string) bool {
				return c != id && fsys.Exists(contentName(c))
			}, base, s.now)
			if newID != id {
				return s.move(fsys, id, &next, newID)
			}
		}
	}

	if err := s.writePair(fsys, &next, false); err != nil {
		return nil, err
	}
	s.logger.Debug("docstore: updated", slog.String("id", id))
	return &next, nil
}

func (s *Store) move(fsys storage.Provider, oldID string, doc *models.Document, newID string) (*models.Document, error) {
	doc.ID = newID
	if err := s.writePair(fsys, doc, true); err != nil {
		return nil, err
	}
	for _, name := range []string{contentName(oldID), metaName(oldID)} {
		if err := fsys.Remove(name); err != nil {
			s.logger.Warn("docstore: stale file cleanup failed",
				slog.String("file", name),
				slog.String("error", err.Error()))
		}
	}
	s.logger.Debug("docstore: renamed", slog.String("from", oldID), slog.String("to", newID))
	return doc, nil
}

// stamp returns the current time in milliseconds, forced past prev so
// updatedAt always advances.
func (s *Store) stamp(prev int64) int64 {
	now := s.now().UnixMilli()
	if now <= prev {
		return prev + 1
	}
	return now
}

// writePair writes content then metadata. When fresh is set and the
// metadata write fails, the just-written content file is removed so no
// half document is left behind.
func (s *Store) writePair(fsys storage.Provider, doc *models.Document, fresh bool) error {
	m, err := meta.Encode(doc.Meta())
	if err != nil {
		return err
	}
	if err := fsys.Write(contentName(doc.ID), []byte(doc.Content)); err != nil {
		return fmt.Errorf("docstore: write content %q: %w", doc.ID, err)
	}
	if err := fsys.Write(metaName(doc.ID), m); err != nil {
		if fresh {
			if rmErr := fsys.Remove(contentName(doc.ID)); rmErr != nil {
				s.logger.Warn("docstore: orphan content cleanup failed",
					slog.String("id", doc.ID),
					slog.String("error", rmErr.Error()))
			}
		}
		return fmt.Errorf("docstore: write metadata %q: %w", doc.ID, err)
	}
	return nil
}

// Delete removes whichever of the document's files exist. Deleting an
// absent document succeeds.
func (s *Store) Delete(id string) (bool, error) {
	if !validID(id) {
		return true, nil
	}
	fsys, err := s.open()
	if err != nil {
		return false, err
	}
	if err := fsys.Remove(contentName(id)); err != nil {
		return false, fmt.Errorf("docstore: delete %q: %w", id, err)
	}
	if err := fsys.Remove(metaName(id)); err != nil {
		return false, fmt.Errorf("docstore: delete %q: %w", id, err)
	}
	s.logger.Debug("docstore: deleted", slog.String("id", id))
	return true, nil
}

// ListAll loads every complete document in the directory, in directory
// order. Entries that fail to load are skipped; a failure to read the
// directory itself is returned.
func (s *Store) ListAll() ([]models.Document, error) {
	fsys, err := s.open()
	if err != nil {
		return nil, err
	}
	names, err := fsys.List(ContentExt)
	if err != nil {
		return nil, fmt.Errorf("docstore: list: %w", err)
	}
	out := make([]models.Document, 0, len(names))
	for _, name := range names {
		id := strings.TrimSuffix(name, ContentExt)
		doc, err := s.get(fsys, id)
		if err != nil {
			s.skip(id, err)
			continue
		}
		out = append(out, *doc)
	}
	return out, nil
}

// ListSummaries is ListAll without reading content bodies. The presence
// rule is the same: a summary is returned only when both files exist.
func (s *Store) ListSummaries() ([]models.DocumentSummary, error) {
	fsys, err := s.open()
	if err != nil {
		return nil, err
	}
	names, err := fsys.List(MetaExt)
	if err != nil {
		return nil, fmt.Errorf("docstore: list: %w", err)
	}
	out := make([]models.DocumentSummary, 0, len(names))
	for _, name := range names {
		id := strings.TrimSuffix(name, MetaExt)
		if !validID(id) || !fsys.Exists(contentName(id)) {
			continue
		}
		raw, err := fsys.Read(name)
		if err != nil {
			s.skip(id, err)
			continue
		}
		m, err := meta.Decode(raw)
		if err != nil {
			s.skip(id, err)
			continue
		}
		out = append(out, models.NewSummary(id, m))
	}
	return out, nil
}

func (s *Store) skip(id string, err error) {
	if errors.Is(err, apperr.ErrNotFound) {
		return
	}
	s.logger.Debug("docstore: skipping unreadable document",
		slog.String("id", id),
		slog.String("error", err.Error()))
}
