package mcpserver

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/laguz/internal/index"
	"github.com/starford/laguz/internal/storage"
)

func testServer(t *testing.T) (*Server, storage.Provider) {
	t.Helper()

	libDir := t.TempDir()
	store, err := storage.NewFS(libDir)
	if err != nil {
		t.Fatal(err)
	}

	dbFile, err := os.CreateTemp("", "laguz-mcp-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	srv := New(store, db)
	return srv, store
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go doesn't expose a direct "call tool" test helper, so we call
	// the tool handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_notebooks":
		result, err = srv.searchNotebooks(ctx, req)
	case "read_notebook":
		result, err = srv.readNotebook(ctx, req)
	case "create_notebook":
		result, err = srv.createNotebook(ctx, req)
	case "list_notebooks":
		result, err = srv.listNotebooks(ctx, req)
	case "get_notebook_contract":
		result, err = srv.getNotebookContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

const testDoc = `{"metadata": {"kernel": "python3"}, "cells": [{"kind": "markdown", "source": "# Test"}, {"kind": "code", "source": "print('hi')"}]}`

func TestCreateAndReadNotebook(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_notebook", map[string]interface{}{
		"path":    "test.ipynb",
		"content": testDoc,
	})
	text := resultText(r)
	if text != "created: test.ipynb" {
		t.Errorf("create result = %q", text)
	}

	r = callTool(t, srv, "read_notebook", map[string]interface{}{
		"path": "test.ipynb",
	})
	text = resultText(r)
	if !strings.Contains(text, `"# Test"`) || !strings.Contains(text, `"print('hi')"`) {
		t.Errorf("read result = %q", text)
	}
}

func TestCreateNotebook_InvalidDocument(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_notebook", map[string]interface{}{
		"path":    "bad.ipynb",
		"content": "not json at all",
	})
	if !r.IsError {
		t.Error("expected error for invalid document")
	}
}

func TestCreateNotebook_Duplicate(t *testing.T) {
	srv, _ := testServer(t)
	args := map[string]interface{}{"path": "dup.ipynb", "content": testDoc}

	_ = callTool(t, srv, "create_notebook", args)
	r := callTool(t, srv, "create_notebook", args)
	if !r.IsError {
		t.Error("expected error for duplicate create")
	}
}

func TestListNotebooks(t *testing.T) {
	srv, store := testServer(t)
	_ = store.Write("a.ipynb", []byte(testDoc))
	_ = store.Write("b.ipynb", []byte(testDoc))

	r := callTool(t, srv, "list_notebooks", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "a.ipynb") || !strings.Contains(text, "b.ipynb") {
		t.Errorf("list = %q", text)
	}
}

func TestReadNotebookMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_notebook", map[string]interface{}{"path": "nope.ipynb"})
	if !r.IsError {
		t.Error("expected error for missing notebook")
	}
}

func TestSearchNotebooks(t *testing.T) {
	srv, _ := testServer(t)
	_ = callTool(t, srv, "create_notebook", map[string]interface{}{
		"path":    "s.ipynb",
		"content": `{"cells": [{"kind": "markdown", "source": "# Findable\n\nxyzzyterm here"}]}`,
	})

	r := callTool(t, srv, "search_notebooks", map[string]interface{}{"query": "xyzzyterm"})
	text := resultText(r)
	if !strings.Contains(text, "s.ipynb") {
		t.Errorf("search = %q, want hit for s.ipynb", text)
	}
}

func TestGetNotebookContract(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_notebook_contract", map[string]interface{}{})
	if !strings.Contains(resultText(r), "Notebook Format Contract") {
		t.Error("contract text missing")
	}
}
