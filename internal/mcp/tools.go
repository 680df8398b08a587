package mcp

import "github.com/mark3labs/mcp-go/mcp"

var saveToolDef = mcp.NewTool("snapshot_save",
	mcp.WithDescription("Capture every open tab and tab group and merge them into the saved snapshot. "+
		"Ungrouped tabs are replaced; groups are merged by title, and saved groups that are not open are kept."),
	mcp.WithIdempotentHintAnnotation(true),
)

var saveGroupToolDef = mcp.NewTool("snapshot_save_group",
	mcp.WithDescription("Re-save one open tab group by title without touching other saved groups."),
	mcp.WithString("title", mcp.Required(), mcp.Description("Exact title of the open group")),
	mcp.WithIdempotentHintAnnotation(true),
)

var restoreToolDef = mcp.NewTool("snapshot_restore",
	mcp.WithDescription("Reopen every saved ungrouped tab and saved group in the current window. "+
		"Stops at the first failure; tabs already opened stay open."),
	mcp.WithDestructiveHintAnnotation(false),
)

var restoreGroupToolDef = mcp.NewTool("snapshot_restore_group",
	mcp.WithDescription("Reopen one saved group by title in the current window."),
	mcp.WithString("title", mcp.Required(), mcp.Description("Exact title of the saved group")),
	mcp.WithDestructiveHintAnnotation(false),
)

var restoreTabToolDef = mcp.NewTool("snapshot_restore_tab",
	mcp.WithDescription("Reopen one saved ungrouped tab by URL. Tabs saved inside groups are not found."),
	mcp.WithString("url", mcp.Required(), mcp.Description("Exact URL of the saved ungrouped tab")),
	mcp.WithDestructiveHintAnnotation(false),
)

var statusToolDef = mcp.NewTool("snapshot_status",
	mcp.WithDescription("Compare open tabs and groups with the saved snapshot. "+
		"Reports saved, out-of-sync and unsaved entities plus closed ones that can be restored."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var showToolDef = mcp.NewTool("snapshot_show",
	mcp.WithDescription("Return the saved snapshot document."),
	mcp.WithBoolean("markdown", mcp.Description("Return a markdown summary instead of JSON")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var removeGroupToolDef = mcp.NewTool("snapshot_remove_group",
	mcp.WithDescription("Remove every saved group with this title. Removing a missing group succeeds."),
	mcp.WithString("title", mcp.Required(), mcp.Description("Exact title of the saved group")),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithIdempotentHintAnnotation(true),
)

var removeTabToolDef = mcp.NewTool("snapshot_remove_tab",
	mcp.WithDescription("Remove saved ungrouped tabs with this URL. Removing a missing tab succeeds."),
	mcp.WithString("url", mcp.Required(), mcp.Description("Exact URL of the saved ungrouped tab")),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithIdempotentHintAnnotation(true),
)

var saveTabToolDef = mcp.NewTool("snapshot_save_tab",
	mcp.WithDescription("Add or replace one saved ungrouped tab by URL."),
	mcp.WithString("url", mcp.Required(), mcp.Description("Tab URL")),
	mcp.WithString("title", mcp.Description("Tab title")),
	mcp.WithBoolean("pinned", mcp.Description("Whether the tab is pinned")),
	mcp.WithIdempotentHintAnnotation(true),
)

var exportToolDef = mcp.NewTool("snapshot_export",
	mcp.WithDescription("Write the saved snapshot to a .json, .yaml or .yml file in ~/.tabstash/exports or an allowed path."),
	mcp.WithString("path", mcp.Description("Destination file (default: ~/.tabstash/exports/<store_key>-<timestamp>.json)")),
)

var importToolDef = mcp.NewTool("snapshot_import",
	mcp.WithDescription("Load a snapshot export file into the saved snapshot."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Export file to read")),
	mcp.WithString("mode", mcp.Enum("merge", "replace"), mcp.Description("merge (default) upserts groups and tabs; replace overwrites the snapshot")),
	mcp.WithDestructiveHintAnnotation(true),
)
