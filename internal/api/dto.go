package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/mdcal/internal/docstore"
	"github.com/starford/mdcal/internal/index"
	"github.com/starford/mdcal/internal/models"
)

// CreateDocumentRequest is the request body for creating a document.
type CreateDocumentRequest struct {
	Title     string  `json:"title" example:"Quarterly review" validate:"required"`
	Content   string  `json:"content" example:"# Agenda"`
	StartDate *int64  `json:"startDate" example:"1717200000000" validate:"required"`
	EndDate   *int64  `json:"endDate" example:"1717286400000" validate:"required"`
	Status    *string `json:"status,omitempty" example:"ready"`
}

// Validate checks required fields.
func (r *CreateDocumentRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.StartDate, validation.NotNil),
		validation.Field(&r.EndDate, validation.NotNil),
	)
}

func (r *CreateDocumentRequest) input() docstore.CreateInput {
	return docstore.CreateInput{
		Title:     r.Title,
		Content:   r.Content,
		StartDate: *r.StartDate,
		EndDate:   *r.EndDate,
		Status:    r.Status,
	}
}

// UpdateDocumentRequest is the request body for a partial update. Absent
// fields keep their current value.
type UpdateDocumentRequest struct {
	Title     *string `json:"title,omitempty" example:"Roadmap"`
	Content   *string `json:"content,omitempty" example:"# Updated"`
	StartDate *int64  `json:"startDate,omitempty" example:"1717200000000"`
	EndDate   *int64  `json:"endDate,omitempty" example:"1717286400000"`
	Status    *string `json:"status,omitempty" example:"paused"`
}

func (r *UpdateDocumentRequest) input(ifMatch string) docstore.UpdateInput {
	return docstore.UpdateInput{
		Title:     r.Title,
		Content:   r.Content,
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
		Status:    r.Status,
		IfMatch:   ifMatch,
	}
}

// DocumentListResponse wraps full document listings.
type DocumentListResponse struct {
	Documents []models.Document `json:"documents" validate:"required"`
}

// SummaryListResponse wraps summary listings.
type SummaryListResponse struct {
	Documents []models.DocumentSummary `json:"documents" validate:"required"`
}

// DeleteResponse reports the outcome of a delete.
type DeleteResponse struct {
	Deleted bool `json:"deleted" example:"true"`
}

// FullTextResult is a single catalog hit in the API response.
type FullTextResult struct {
	ID        string `json:"id" example:"Quarterly_review" validate:"required"`
	Title     string `json:"title" example:"Quarterly review" validate:"required"`
	Snippet   string `json:"snippet" example:"...matched text..." validate:"required"`
	Status    string `json:"status" example:"ready"`
	StartDate int64  `json:"startDate"`
	EndDate   int64  `json:"endDate"`
}

// FullTextResponse wraps catalog search results.
type FullTextResponse struct {
	Results []FullTextResult `json:"results" validate:"required"`
}

func fullTextResults(in []index.SearchResult) []FullTextResult {
	out := make([]FullTextResult, len(in))
	for i, r := range in {
		out[i] = FullTextResult{
			ID:        r.ID,
			Title:     r.Title,
			Snippet:   r.Snippet,
			Status:    r.Status,
			StartDate: r.StartDate,
			EndDate:   r.EndDate,
		}
	}
	return out
}

// FolderResponse describes the documents folder setting. Folder is null
// when unset; Dir is the directory actually in use.
type FolderResponse struct {
	Folder *string `json:"folder"`
	Dir    string  `json:"dir" example:"/home/me/.config/mdcal/documents"`
}

// SetFolderRequest is the request body for changing the documents folder.
type SetFolderRequest struct {
	Path string `json:"path" example:"~/Documents/calendar" validate:"required"`
}

// Validate checks required fields.
func (r *SetFolderRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Path, validation.Required),
	)
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
