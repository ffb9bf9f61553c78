package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/mdcal/internal/apperr"
	"github.com/starford/mdcal/internal/docservice"
	"github.com/starford/mdcal/internal/models"
)

const (
	maxBodyBytes = 10 << 20
	viewSummary  = "summary"
	modeFuzzy    = "fuzzy"
)

// Handler holds API route handlers.
type Handler struct {
	svc *docservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *docservice.Service) *Handler {
	return &Handler{svc: svc}
}

// documentID extracts the {id} URL parameter. chi matches on RawPath when
// the request carried escapes the default encoding would not produce; only
// then is the parameter still encoded.
func documentID(r *http.Request) string {
	raw := chi.URLParam(r, "id")
	if r.URL.RawPath == "" {
		return raw
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func summaryView(r *http.Request) bool {
	return r.URL.Query().Get("view") == viewSummary
}

// writeDocument writes doc with its checksum as a quoted ETag.
func (h *Handler) writeDocument(w http.ResponseWriter, status int, doc *models.Document) {
	w.Header().Set("ETag", `"`+h.svc.DocumentChecksum(doc)+`"`)
	writeJSON(w, status, doc)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List documents, most recently updated first
//	@Tags			documents
//	@Produce		json
//	@Param			view	query		string	false	"Return summaries without content"	Enums(summary)
//	@Success		200		{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	if summaryView(r) {
		sums, err := h.svc.ListSummaries(r.Context())
		if err != nil {
			writeError(w, "list summaries", err)
			return
		}
		writeJSON(w, http.StatusOK, SummaryListResponse{Documents: nonNilSlice(sums)})
		return
	}
	docs, err := h.svc.ListDocuments(r.Context())
	if err != nil {
		writeError(w, "list documents", err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: nonNilSlice(docs)})
}

// GetDocument handles GET /api/documents/{id}.
//
//	@Summary		Get a single document by id
//	@Tags			documents
//	@Produce		json
//	@Param			id	path		string	true	"Document id"
//	@Success		200	{object}	models.Document
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := documentID(r)
	doc, err := h.svc.GetDocument(r.Context(), id)
	if err != nil {
		writeError(w, "get document", err, slog.String("id", id))
		return
	}
	h.writeDocument(w, http.StatusOK, doc)
}

// CreateDocument handles POST /api/documents.
//
//	@Summary		Create a new document
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateDocumentRequest	true	"Document to create"
//	@Success		201		{object}	models.Document
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents [post]
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req CreateDocumentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	doc, err := h.svc.CreateDocument(r.Context(), req.input())
	if err != nil {
		writeError(w, "create document", err, slog.String("title", req.Title))
		return
	}
	h.writeDocument(w, http.StatusCreated, doc)
}

// UpdateDocument handles PUT /api/documents/{id}.
//
//	@Summary		Update a document; a title change may move it to a new id
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string					true	"Document id"
//	@Param			If-Match	header		string					false	"Checksum for optimistic concurrency"
//	@Param			body		body		UpdateDocumentRequest	true	"Fields to change"
//	@Success		200			{object}	models.Document
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id} [put]
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	id := documentID(r)
	var req UpdateDocumentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	doc, err := h.svc.UpdateDocument(r.Context(), id, req.input(ifMatch))
	if err != nil {
		writeError(w, "update document", err, slog.String("id", id))
		return
	}
	if doc.ID != id {
		w.Header().Set("Location", "/api/documents/"+url.PathEscape(doc.ID))
	}
	h.writeDocument(w, http.StatusOK, doc)
}

// CycleStatus handles POST /api/documents/{id}/status/next.
//
//	@Summary		Advance the document status one step
//	@Tags			documents
//	@Produce		json
//	@Param			id	path		string	true	"Document id"
//	@Success		200	{object}	models.Document
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/status/next [post]
func (h *Handler) CycleStatus(w http.ResponseWriter, r *http.Request) {
	id := documentID(r)
	doc, err := h.svc.CycleStatus(r.Context(), id)
	if err != nil {
		writeError(w, "cycle status", err, slog.String("id", id))
		return
	}
	h.writeDocument(w, http.StatusOK, doc)
}

// DeleteDocument handles DELETE /api/documents/{id}. Deleting an absent
// document succeeds.
//
//	@Summary		Delete a document
//	@Tags			documents
//	@Produce		json
//	@Param			id	path		string	true	"Document id"
//	@Success		200	{object}	DeleteResponse
//	@Security		BearerAuth
//	@Router			/documents/{id} [delete]
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := documentID(r)
	ok, err := h.svc.DeleteDocument(r.Context(), id)
	if err != nil {
		writeError(w, "delete document", err, slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, DeleteResponse{Deleted: ok})
}

// Month handles GET /api/calendar/{year}/{month}.
//
//	@Summary		Documents whose date range overlaps a month
//	@Tags			calendar
//	@Produce		json
//	@Param			year	path		int		true	"Year"
//	@Param			month	path		int		true	"Month 1-12"
//	@Param			view	query		string	false	"Return summaries without content"	Enums(summary)
//	@Success		200		{object}	DocumentListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/calendar/{year}/{month} [get]
func (h *Handler) Month(w http.ResponseWriter, r *http.Request) {
	year, err1 := strconv.Atoi(chi.URLParam(r, "year"))
	month, err2 := strconv.Atoi(chi.URLParam(r, "month"))
	if err1 != nil || err2 != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("year and month must be integers"))
		return
	}
	if summaryView(r) {
		sums, err := h.svc.ListSummariesForMonth(r.Context(), year, month)
		if err != nil {
			writeError(w, "list month summaries", err)
			return
		}
		writeJSON(w, http.StatusOK, SummaryListResponse{Documents: nonNilSlice(sums)})
		return
	}
	docs, err := h.svc.ListForMonth(r.Context(), year, month)
	if err != nil {
		writeError(w, "list month", err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: nonNilSlice(docs)})
}

// Search handles GET /api/search.
//
//	@Summary		Case-insensitive substring search, or fuzzy title search
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	false	"Search query; empty matches everything"
//	@Param			view	query		string	false	"Return summaries (titles only are matched)"	Enums(summary)
//	@Param			mode	query		string	false	"Fuzzy title ranking; implies view=summary"	Enums(fuzzy)
//	@Success		200		{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	switch {
	case r.URL.Query().Get("mode") == modeFuzzy:
		sums, err := h.svc.FuzzySearchSummaries(r.Context(), q)
		if err != nil {
			writeError(w, "fuzzy search", err, slog.String("query", q))
			return
		}
		writeJSON(w, http.StatusOK, SummaryListResponse{Documents: nonNilSlice(sums)})
	case summaryView(r):
		sums, err := h.svc.SearchSummaries(r.Context(), q)
		if err != nil {
			writeError(w, "search summaries", err, slog.String("query", q))
			return
		}
		writeJSON(w, http.StatusOK, SummaryListResponse{Documents: nonNilSlice(sums)})
	default:
		docs, err := h.svc.SearchDocuments(r.Context(), q)
		if err != nil {
			writeError(w, "search documents", err, slog.String("query", q))
			return
		}
		writeJSON(w, http.StatusOK, DocumentListResponse{Documents: nonNilSlice(docs)})
	}
}

// FullText handles GET /api/fulltext.
//
//	@Summary		Ranked full-text search over the catalog
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	FullTextResponse
//	@Failure		400		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/fulltext [get]
func (h *Handler) FullText(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("limit must be an integer"))
			return
		}
		limit = n
	}
	results, err := h.svc.FullTextSearch(r.Context(), q, limit)
	if err != nil {
		writeError(w, "full-text search", err, slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, FullTextResponse{Results: fullTextResults(results)})
}

// Calendar handles GET /api/calendar.ics.
//
//	@Summary		iCalendar feed of all documents, or one month
//	@Tags			calendar
//	@Produce		text/calendar
//	@Param			year	query	int	false	"Year (with month)"
//	@Param			month	query	int	false	"Month 1-12"
//	@Success		200		{string}	string
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/calendar.ics [get]
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	year, month, err := monthQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	feed, err := h.svc.ExportICS(r.Context(), year, month)
	if err != nil {
		writeError(w, "export ics", err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="mdcal.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(feed))
}

func monthQuery(r *http.Request) (year, month int, err error) {
	q := r.URL.Query()
	if q.Get("month") == "" {
		return 0, 0, nil
	}
	year, err = strconv.Atoi(q.Get("year"))
	if err != nil {
		return 0, 0, errors.New("year must be an integer when month is set")
	}
	month, err = strconv.Atoi(q.Get("month"))
	if err != nil || month == 0 {
		return 0, 0, fmt.Errorf("month must be 1-12: %w", apperr.ErrInvalidInput)
	}
	return year, month, nil
}

// GetFolder handles GET /api/settings/documents-folder.
//
//	@Summary		Current documents folder
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	FolderResponse
//	@Security		BearerAuth
//	@Router			/settings/documents-folder [get]
func (h *Handler) GetFolder(w http.ResponseWriter, r *http.Request) {
	h.writeFolder(w, r)
}

// SetFolder handles PUT /api/settings/documents-folder.
//
//	@Summary		Change the documents folder; it is created if missing
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SetFolderRequest	true	"New folder"
//	@Success		200		{object}	FolderResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings/documents-folder [put]
func (h *Handler) SetFolder(w http.ResponseWriter, r *http.Request) {
	var req SetFolderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if err := h.svc.SetDocumentsFolder(r.Context(), req.Path); err != nil {
		writeError(w, "set documents folder", err, slog.String("path", req.Path))
		return
	}
	h.writeFolder(w, r)
}

func (h *Handler) writeFolder(w http.ResponseWriter, r *http.Request) {
	folder, ok, err := h.svc.GetDocumentsFolder(r.Context())
	if err != nil {
		writeError(w, "get documents folder", err)
		return
	}
	dir, err := h.svc.DocumentsDir(r.Context())
	if err != nil {
		writeError(w, "resolve documents dir", err)
		return
	}
	resp := FolderResponse{Dir: dir}
	if ok {
		resp.Folder = &folder
	}
	writeJSON(w, http.StatusOK, resp)
}
