package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/tabstash/internal/browser"
	"github.com/hpungsan/tabstash/internal/config"
	"github.com/hpungsan/tabstash/internal/errors"
	"github.com/hpungsan/tabstash/internal/ops"
	"github.com/hpungsan/tabstash/internal/snapshot"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	store    ops.Store
	browsers *browser.Lazy
	cfg      *config.Config

	// writes serialises every handler that saves the document.
	writes sync.Mutex
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(store ops.Store, browsers *browser.Lazy, cfg *config.Config) *Handlers {
	return &Handlers{store: store, browsers: browsers, cfg: cfg}
}

// Request types for each tool

// TitleRequest represents the arguments for tools addressing one group.
type TitleRequest struct {
	Title string `json:"title"`
}

// URLRequest represents the arguments for tools addressing one ungrouped tab.
type URLRequest struct {
	URL string `json:"url"`
}

// ShowRequest represents the arguments for show.
type ShowRequest struct {
	Markdown bool `json:"markdown,omitempty"`
}

// SaveTabRequest represents the arguments for save_tab.
type SaveTabRequest struct {
	URL    string `json:"url"`
	Title  string `json:"title,omitempty"`
	Pinned bool   `json:"pinned,omitempty"`
}

// ExportRequest represents the arguments for export.
type ExportRequest struct {
	Path string `json:"path,omitempty"`
}

// ImportRequest represents the arguments for import.
type ImportRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// ShowMarkdownOutput is returned by show when markdown is requested.
type ShowMarkdownOutput struct {
	Exists   bool   `json:"exists"`
	Markdown string `json:"markdown"`
}

func (h *Handlers) connect(ctx context.Context) (browser.Browser, error) {
	b, err := h.browsers.Get(ctx)
	if err != nil {
		return nil, errors.NewExternalService("browser.connect", err)
	}
	return b, nil
}

// Handler implementations

// HandleSave handles the save tool call.
func (h *Handlers) HandleSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	b, err := h.connect(ctx)
	if err != nil {
		return errorResult(err), nil
	}

	h.writes.Lock()
	defer h.writes.Unlock()
	result, err := ops.SaveAll(ctx, h.store, b)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSaveGroup handles the save_group tool call.
func (h *Handlers) HandleSaveGroup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := toolArgs[TitleRequest](req, "title")
	if err != nil {
		return errorResult(err), nil
	}
	b, err := h.connect(ctx)
	if err != nil {
		return errorResult(err), nil
	}

	h.writes.Lock()
	defer h.writes.Unlock()
	result, err := ops.SaveGroup(ctx, h.store, b, ops.SaveGroupInput{Title: input.Title})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRestore handles the restore tool call.
func (h *Handlers) HandleRestore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	b, err := h.connect(ctx)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.RestoreAll(ctx, h.store, b)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRestoreGroup handles the restore_group tool call.
func (h *Handlers) HandleRestoreGroup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := toolArgs[TitleRequest](req, "title")
	if err != nil {
		return errorResult(err), nil
	}
	b, err := h.connect(ctx)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.RestoreGroup(ctx, h.store, b, ops.RestoreGroupInput{Title: input.Title})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRestoreTab handles the restore_tab tool call.
func (h *Handlers) HandleRestoreTab(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := toolArgs[URLRequest](req, "url")
	if err != nil {
		return errorResult(err), nil
	}
	b, err := h.connect(ctx)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.RestoreTab(ctx, h.store, b, ops.RestoreTabInput{URL: input.URL})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleStatus handles the status tool call.
func (h *Handlers) HandleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	b, err := h.connect(ctx)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.ComputeStatus(ctx, h.store, b)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleShow handles the show tool call.
func (h *Handlers) HandleShow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := toolArgs[ShowRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Show(ctx, h.store)
	if err != nil {
		return errorResult(err), nil
	}

	if input.Markdown {
		return successResult(ShowMarkdownOutput{
			Exists:   result.Exists,
			Markdown: snapshot.RenderMarkdown(result.Snapshot),
		})
	}
	return successResult(result)
}

// HandleRemoveGroup handles the remove_group tool call.
func (h *Handlers) HandleRemoveGroup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := toolArgs[TitleRequest](req, "title")
	if err != nil {
		return errorResult(err), nil
	}

	h.writes.Lock()
	defer h.writes.Unlock()
	result, err := ops.RemoveGroup(ctx, h.store, ops.RemoveGroupInput{Title: input.Title})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRemoveTab handles the remove_tab tool call.
func (h *Handlers) HandleRemoveTab(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := toolArgs[URLRequest](req, "url")
	if err != nil {
		return errorResult(err), nil
	}

	h.writes.Lock()
	defer h.writes.Unlock()
	result, err := ops.RemoveTab(ctx, h.store, ops.RemoveTabInput{URL: input.URL})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSaveTab handles the save_tab tool call.
func (h *Handlers) HandleSaveTab(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := toolArgs[SaveTabRequest](req, "url")
	if err != nil {
		return errorResult(err), nil
	}

	h.writes.Lock()
	defer h.writes.Unlock()
	result, err := ops.SaveTab(ctx, h.store, ops.SaveTabInput{
		URL:    input.URL,
		Title:  input.Title,
		Pinned: input.Pinned,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleExport handles the export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := toolArgs[ExportRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Export(ctx, h.store, h.cfg, ops.ExportInput{Path: input.Path})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleImport handles the import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := toolArgs[ImportRequest](req, "path")
	if err != nil {
		return errorResult(err), nil
	}

	h.writes.Lock()
	defer h.writes.Unlock()
	result, err := ops.Import(ctx, h.store, h.cfg, ops.ImportInput{
		Path: input.Path,
		Mode: ops.ImportMode(input.Mode),
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are never exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var sErr *errors.StashError
	if stderrors.As(err, &sErr) {
		msg := sErr.Message
		switch {
		case sErr.Code == errors.ErrInternal:
			msg = "an internal error occurred"
		case err != error(sErr):
			// Keep context added by wrappers around the coded error.
			msg = err.Error()
		}
		errorObj := map[string]any{
			"code":    sErr.Code,
			"message": msg,
			"status":  sErr.Status,
		}
		if sErr.Code != errors.ErrInternal && sErr.Details != nil {
			errorObj["details"] = sErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
