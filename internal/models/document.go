// Package models defines the domain types for mdcal.
package models

// Document is a dated Markdown entry persisted as a content file plus a
// metadata sidecar that share the same id. Timestamps are epoch milliseconds.
type Document struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	StartDate int64  `json:"startDate"`
	EndDate   int64  `json:"endDate"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// DocumentSummary is a Document without its content, used by list views.
type DocumentSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	StartDate int64  `json:"startDate"`
	EndDate   int64  `json:"endDate"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// DocumentMeta is the on-disk sidecar: everything but the id (implied by the
// file name) and the content (stored separately). Field order is the order
// written to disk.
type DocumentMeta struct {
	Title     string `json:"title"`
	StartDate int64  `json:"startDate"`
	EndDate   int64  `json:"endDate"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// Summary projects d onto a DocumentSummary.
func (d *Document) Summary() DocumentSummary {
	return DocumentSummary{
		ID:        d.ID,
		Title:     d.Title,
		StartDate: d.StartDate,
		EndDate:   d.EndDate,
		Status:    d.Status,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// Meta returns the sidecar representation of d.
func (d *Document) Meta() DocumentMeta {
	return DocumentMeta{
		Title:     d.Title,
		StartDate: d.StartDate,
		EndDate:   d.EndDate,
		Status:    d.Status,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// NewDocument assembles a Document from its id, metadata and content.
func NewDocument(id string, m DocumentMeta, content string) *Document {
	return &Document{
		ID:        id,
		Title:     m.Title,
		Content:   content,
		StartDate: m.StartDate,
		EndDate:   m.EndDate,
		Status:    m.Status,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// NewSummary assembles a DocumentSummary from its id and metadata.
func NewSummary(id string, m DocumentMeta) DocumentSummary {
	return DocumentSummary{
		ID:        id,
		Title:     m.Title,
		StartDate: m.StartDate,
		EndDate:   m.EndDate,
		Status:    m.Status,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
