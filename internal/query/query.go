// Package query answers list, month and search queries by scanning the
// document store. Nothing is indexed: every call lists the directory again.
package query

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"

	"github.com/starford/mdcal/internal/apperr"
	"github.com/starford/mdcal/internal/models"
)

// Source is the subset of the document store the engine reads from.
type Source interface {
	ListAll() ([]models.Document, error)
	ListSummaries() ([]models.DocumentSummary, error)
}

// Engine runs queries against a Source. Month boundaries are computed in
// its location.
type Engine struct {
	src Source
	loc *time.Location
}

// New creates an Engine. A nil loc means time.Local.
func New(src Source, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.Local
	}
	return &Engine{src: src, loc: loc}
}

// Location returns the zone month boundaries are computed in.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Documents returns every document, most recently updated first.
func (e *Engine) Documents() ([]models.Document, error) {
	docs, err := e.src.ListAll()
	if err != nil {
		return nil, err
	}
	sortDocuments(docs)
	return docs, nil
}

// Summaries returns every summary, most recently updated first.
func (e *Engine) Summaries() ([]models.DocumentSummary, error) {
	sums, err := e.src.ListSummaries()
	if err != nil {
		return nil, err
	}
	sortSummaries(sums)
	return sums, nil
}

// MonthRange returns the epoch-millisecond bounds of a month in loc: the
// first instant of day 1 and 23:59:59.000 on the last day.
func MonthRange(year, month int, loc *time.Location) (start, end int64, err error) {
	if month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("query: month %d out of range: %w", month, apperr.ErrInvalidInput)
	}
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	// Day 0 of the following month is the last day of this one.
	last := time.Date(year, time.Month(month)+1, 0, 23, 59, 59, 0, loc)
	return first.UnixMilli(), last.UnixMilli(), nil
}

// overlaps reports whether [startDate, endDate] touches [from, to],
// bounds included.
func overlaps(startDate, endDate, from, to int64) bool {
	return startDate <= to && endDate >= from
}

// DocumentsForMonth returns documents whose date range overlaps the month.
func (e *Engine) DocumentsForMonth(year, month int) ([]models.Document, error) {
	from, to, err := MonthRange(year, month, e.loc)
	if err != nil {
		return nil, err
	}
	docs, err := e.Documents()
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(docs, func(d models.Document) bool {
		return !overlaps(d.StartDate, d.EndDate, from, to)
	}), nil
}

// SummariesForMonth is DocumentsForMonth without content.
func (e *Engine) SummariesForMonth(year, month int) ([]models.DocumentSummary, error) {
	from, to, err := MonthRange(year, month, e.loc)
	if err != nil {
		return nil, err
	}
	sums, err := e.Summaries()
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(sums, func(d models.DocumentSummary) bool {
		return !overlaps(d.StartDate, d.EndDate, from, to)
	}), nil
}

// SearchDocuments matches q case-insensitively against title or content.
// An empty query matches every document.
func (e *Engine) SearchDocuments(q string) ([]models.Document, error) {
	docs, err := e.Documents()
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(q)
	return slices.DeleteFunc(docs, func(d models.Document) bool {
		return !strings.Contains(strings.ToLower(d.Title), needle) &&
			!strings.Contains(strings.ToLower(d.Content), needle)
	}), nil
}

// SearchSummaries matches q case-insensitively against titles only.
func (e *Engine) SearchSummaries(q string) ([]models.DocumentSummary, error) {
	sums, err := e.Summaries()
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(q)
	return slices.DeleteFunc(sums, func(d models.DocumentSummary) bool {
		return !strings.Contains(strings.ToLower(d.Title), needle)
	}), nil
}

type titles []models.DocumentSummary

func (t titles) String(i int) string { return t[i].Title }
func (t titles) Len() int            { return len(t) }

// FuzzySummaries ranks summaries by how well their titles fuzzy-match q,
// best first. Titles that do not match are dropped. An empty query returns
// Summaries unchanged.
func (e *Engine) FuzzySummaries(q string) ([]models.DocumentSummary, error) {
	sums, err := e.Summaries()
	if err != nil {
		return nil, err
	}
	if q == "" {
		return sums, nil
	}
	matches := fuzzy.FindFrom(q, titles(sums))
	out := make([]models.DocumentSummary, 0, len(matches))
	for _, m := range matches {
		out = append(out, sums[m.Index])
	}
	return out, nil
}

func sortDocuments(docs []models.Document) {
	slices.SortStableFunc(docs, func(a, b models.Document) int {
		return cmp.Compare(b.UpdatedAt, a.UpdatedAt)
	})
}

func sortSummaries(sums []models.DocumentSummary) {
	slices.SortStableFunc(sums, func(a, b models.DocumentSummary) int {
		return cmp.Compare(b.UpdatedAt, a.UpdatedAt)
	})
}
