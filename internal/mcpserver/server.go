// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Laguz tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/laguz/internal/checksum"
	"github.com/starford/laguz/internal/index"
	"github.com/starford/laguz/internal/notebook"
	"github.com/starford/laguz/internal/storage"
)

// Server wraps the MCP server with Laguz tools.
type Server struct {
	mcp   *server.MCPServer
	store storage.Provider
	db    *index.DB
}

// New creates a new MCP server with all Laguz tools registered.
func New(store storage.Provider, db *index.DB) *Server {
	s := &Server{store: store, db: db}

	s.mcp = server.NewMCPServer(
		"Laguz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notebooks",
		mcp.WithDescription("Full-text search through notebook cell sources and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotebooks)

	s.mcp.AddTool(mcp.NewTool("read_notebook",
		mcp.WithDescription("Read the full JSON document of a notebook."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the notebook (e.g. folder/analysis.ipynb)")),
	), s.readNotebook)

	s.mcp.AddTool(mcp.NewTool("create_notebook",
		mcp.WithDescription("Create a new notebook at the specified path. "+
			"Content MUST be a JSON document following the canonical notebook format "+
			"(metadata map plus ordered cells with kind and source). Read the contract "+
			"first via the get_notebook_contract tool or the laguz://notebook-format resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new notebook (must end with .ipynb)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("JSON document following the Laguz notebook format contract")),
	), s.createNotebook)

	s.mcp.AddTool(mcp.NewTool("get_notebook_contract",
		mcp.WithDescription("Returns the canonical Laguz notebook format contract. "+
			"Call this before creating notebooks to ensure correct structure."),
	), s.getNotebookContract)

	s.mcp.AddTool(mcp.NewTool("list_notebooks",
		mcp.WithDescription("List all notebooks or notebooks in a specific folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listNotebooks)

	// Resource: notebook format contract.
	s.mcp.AddResource(
		mcp.NewResource("laguz://notebook-format", "Notebook Format Contract",
			mcp.WithResourceDescription("Canonical JSON notebook format that all documents must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNotebookFormatResource,
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

func (s *Server) searchNotebooks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.db.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNotebook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) createNotebook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// Check existence.
	if _, readErr := s.store.Read(path); readErr == nil {
		return mcp.NewToolResultError(fmt.Sprintf("notebook already exists: %s", path)), nil
	}

	// Validate against the document format and write the canonical encoding.
	snap, err := notebook.Decode([]byte(content))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid notebook document: %v", err)), nil
	}
	data, err := notebook.Encode(snap)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.store.Write(path, data); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// Index the new notebook.
	if ex, exErr := index.Extract(path, data); exErr == nil {
		_ = s.db.UpsertNotebook(index.NotebookRow{
			Path:      path,
			Title:     ex.Title,
			Kernel:    ex.Kernel,
			CellCount: ex.CellCount,
			Checksum:  checksum.Sum(data),
		}, ex.Body)
	}

	return mcp.NewToolResultText(fmt.Sprintf("created: %s", path)), nil
}

func (s *Server) listNotebooks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := ""
	if f, err := req.RequireString("folder"); err == nil {
		folder = f
	}

	metas, err := s.store.List(folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var paths []string
	for _, m := range metas {
		paths = append(paths, m.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) getNotebookContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NotebookFormatContract), nil
}

func (s *Server) readNotebookFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "laguz://notebook-format",
			MIMEType: "text/markdown",
			Text:     NotebookFormatContract,
		},
	}, nil
}
