package mcp

import (
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/tabstash/internal/browser"
	"github.com/hpungsan/tabstash/internal/config"
	"github.com/hpungsan/tabstash/internal/ops"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"snapshot"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"snapshot_save": {
		def:     saveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSave },
	},
	"snapshot_save_group": {
		def:     saveGroupToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSaveGroup },
	},
	"snapshot_restore": {
		def:     restoreToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRestore },
	},
	"snapshot_restore_group": {
		def:     restoreGroupToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRestoreGroup },
	},
	"snapshot_restore_tab": {
		def:     restoreTabToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRestoreTab },
	},
	"snapshot_status": {
		def:     statusToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStatus },
	},
	"snapshot_show": {
		def:     showToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleShow },
	},
	"snapshot_remove_group": {
		def:     removeGroupToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRemoveGroup },
	},
	"snapshot_remove_tab": {
		def:     removeTabToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRemoveTab },
	},
	"snapshot_save_tab": {
		def:     saveTabToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSaveTab },
	},
	"snapshot_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"snapshot_import": {
		def:     importToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImport },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name.
// Tool names follow the pattern "type_action" (e.g., "snapshot_save" → "snapshot").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	tools := make([]string, 0)
	for name := range toolRegistry {
		typ := GetTypeForTool(name)
		if typeSet[typ] {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates a new MCP server with tabstash tools registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration.
func NewServer(store ops.Store, browsers *browser.Lazy, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"tabstash",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	h := NewHandlers(store, browsers, cfg)

	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(store ops.Store, browsers *browser.Lazy, cfg *config.Config, version string) error {
	return server.ServeStdio(NewServer(store, browsers, cfg, version))
}
