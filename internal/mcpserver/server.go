// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes mdcal document tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/mdcal/internal/apperr"
	"github.com/starford/mdcal/internal/docservice"
	"github.com/starford/mdcal/internal/docstore"
)

// Server wraps the MCP server with mdcal tools.
type Server struct {
	mcp    *server.MCPServer
	svc    *docservice.Service
	logger *slog.Logger
}

// New creates a new MCP server with all mdcal tools registered.
func New(svc *docservice.Service, logger *slog.Logger) *Server {
	s := &Server{svc: svc, logger: logger}

	s.mcp = server.NewMCPServer(
		"mdcal",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("create_document",
		mcp.WithDescription("Create a calendar document. The id is derived from the title. "+
			"Read the mdcal://document-format resource for field semantics."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Document title")),
		mcp.WithString("content", mcp.Description("Markdown body")),
		mcp.WithNumber("startDate", mcp.Required(), mcp.Description("Start, Unix epoch milliseconds")),
		mcp.WithNumber("endDate", mcp.Required(), mcp.Description("End, Unix epoch milliseconds")),
		mcp.WithString("status", mcp.Description("Status label, defaults to none")),
	), s.createDocument)

	s.mcp.AddTool(mcp.NewTool("get_document",
		mcp.WithDescription("Read a document with its content and metadata."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id")),
	), s.getDocument)

	s.mcp.AddTool(mcp.NewTool("update_document",
		mcp.WithDescription("Change some fields of a document. Omitted fields keep their value. "+
			"A new title may move the document to a new id; the result carries it."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("content", mcp.Description("New Markdown body")),
		mcp.WithNumber("startDate", mcp.Description("New start, Unix epoch milliseconds")),
		mcp.WithNumber("endDate", mcp.Description("New end, Unix epoch milliseconds")),
		mcp.WithString("status", mcp.Description("New status label")),
	), s.updateDocument)

	s.mcp.AddTool(mcp.NewTool("delete_document",
		mcp.WithDescription("Delete a document. Deleting a missing document succeeds."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id")),
	), s.deleteDocument)

	s.mcp.AddTool(mcp.NewTool("cycle_status",
		mcp.WithDescription("Advance the document status: ready, in_progress, paused, completed, then ready again."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id")),
	), s.cycleStatus)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List document summaries (no content), most recently updated first."),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("documents_for_month",
		mcp.WithDescription("List document summaries whose date range overlaps a calendar month."),
		mcp.WithNumber("year", mcp.Required(), mcp.Description("Year, e.g. 2025")),
		mcp.WithNumber("month", mcp.Required(), mcp.Description("Month 1-12")),
	), s.documentsForMonth)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Case-insensitive substring search over titles and content. "+
			"Set fuzzy to rank titles by fuzzy match instead."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithBoolean("fuzzy", mcp.Description("Fuzzy title search")),
	), s.searchDocuments)

	s.mcp.AddTool(mcp.NewTool("get_documents_folder",
		mcp.WithDescription("Return the folder documents are stored in."),
	), s.getDocumentsFolder)

	s.mcp.AddTool(mcp.NewTool("set_documents_folder",
		mcp.WithDescription("Change the folder documents are stored in. The folder is created if missing; "+
			"existing documents are not moved."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path or ~/path")),
	), s.setDocumentsFolder)

	// Resource: document format.
	s.mcp.AddResource(
		mcp.NewResource(DocumentFormatURI, "Document Format",
			mcp.WithResourceDescription("How mdcal documents are named and stored."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDocumentFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// toolError turns a service error into a tool-level error result.
func (s *Server) toolError(tool string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found")
	case errors.Is(err, apperr.ErrConflict):
		return mcp.NewToolResultError("conflict: document changed, read it again")
	case errors.Is(err, apperr.ErrInvalidInput):
		return mcp.NewToolResultError(err.Error())
	}
	s.logger.Error("mcp: tool failed", slog.String("tool", tool), slog.String("error", err.Error()))
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

// has reports whether the caller supplied key at all.
func has(req mcp.CallToolRequest, key string) bool {
	_, ok := req.GetArguments()[key]
	return ok
}

func optString(req mcp.CallToolRequest, key string) *string {
	if !has(req, key) {
		return nil
	}
	v := req.GetString(key, "")
	return &v
}

func optMillis(req mcp.CallToolRequest, key string) *int64 {
	if !has(req, key) {
		return nil
	}
	v := int64(req.GetFloat(key, 0))
	return &v
}

func (s *Server) createDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	start, err := req.RequireFloat("startDate")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	end, err := req.RequireFloat("endDate")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	doc, err := s.svc.CreateDocument(ctx, docstore.CreateInput{
		Title:     title,
		Content:   req.GetString("content", ""),
		StartDate: int64(start),
		EndDate:   int64(end),
		Status:    optString(req, "status"),
	})
	if err != nil {
		return s.toolError("create_document", err), nil
	}
	return jsonResult(doc), nil
}

func (s *Server) getDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.GetDocument(ctx, id)
	if err != nil {
		return s.toolError("get_document", err), nil
	}
	return jsonResult(doc), nil
}

func (s *Server) updateDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.UpdateDocument(ctx, id, docstore.UpdateInput{
		Title:     optString(req, "title"),
		Content:   optString(req, "content"),
		StartDate: optMillis(req, "startDate"),
		EndDate:   optMillis(req, "endDate"),
		Status:    optString(req, "status"),
	})
	if err != nil {
		return s.toolError("update_document", err), nil
	}
	return jsonResult(doc), nil
}

func (s *Server) deleteDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.svc.DeleteDocument(ctx, id); err != nil {
		return s.toolError("delete_document", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) cycleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.CycleStatus(ctx, id)
	if err != nil {
		return s.toolError("cycle_status", err), nil
	}
	return jsonResult(doc), nil
}

func (s *Server) listDocuments(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sums, err := s.svc.ListSummaries(ctx)
	if err != nil {
		return s.toolError("list_documents", err), nil
	}
	return jsonResult(sums), nil
}

func (s *Server) documentsForMonth(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	year, err := req.RequireFloat("year")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	month, err := req.RequireFloat("month")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sums, err := s.svc.ListSummariesForMonth(ctx, int(year), int(month))
	if err != nil {
		return s.toolError("documents_for_month", err), nil
	}
	return jsonResult(sums), nil
}

func (s *Server) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if req.GetBool("fuzzy", false) {
		sums, err := s.svc.FuzzySearchSummaries(ctx, query)
		if err != nil {
			return s.toolError("search_documents", err), nil
		}
		return jsonResult(sums), nil
	}
	docs, err := s.svc.SearchDocuments(ctx, query)
	if err != nil {
		return s.toolError("search_documents", err), nil
	}
	return jsonResult(docs), nil
}

func (s *Server) getDocumentsFolder(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir, err := s.svc.DocumentsDir(ctx)
	if err != nil {
		return s.toolError("get_documents_folder", err), nil
	}
	return mcp.NewToolResultText(dir), nil
}

func (s *Server) setDocumentsFolder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.SetDocumentsFolder(ctx, path); err != nil {
		return s.toolError("set_documents_folder", err), nil
	}
	dir, err := s.svc.DocumentsDir(ctx)
	if err != nil {
		return s.toolError("set_documents_folder", err), nil
	}
	return mcp.NewToolResultText(dir), nil
}

func (s *Server) readDocumentFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      DocumentFormatURI,
			MIMEType: "text/markdown",
			Text:     DocumentFormat,
		},
	}, nil
}
