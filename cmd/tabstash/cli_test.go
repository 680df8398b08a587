package main

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/tabstash/internal/browser"
	"github.com/hpungsan/tabstash/internal/config"
	"github.com/hpungsan/tabstash/internal/db"
	"github.com/hpungsan/tabstash/internal/ops"
	"github.com/hpungsan/tabstash/internal/snapshot"
)

// setupTestStore creates a temporary document store for testing.
func setupTestStore(t *testing.T) *db.DocumentStore {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return db.NewDocumentStore(database, "tabstash")
}

// runCLI runs the app with args and returns what it wrote to stdout.
func runCLI(t *testing.T, app *cli.App, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	old := stdout
	stdout = &buf
	defer func() { stdout = old }()

	err := app.Run(append([]string{"tabstash"}, args...))
	return buf.String(), err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeOutput[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	return v
}

// exitMessage returns the message of a cli.Exit error.
func exitMessage(t *testing.T, err error) string {
	t.Helper()
	var exit cli.ExitCoder
	if !stderrors.As(err, &exit) {
		t.Fatalf("expected exit error, got %v", err)
	}
	return exit.Error()
}

// TestCLISaveAndStatus tests save followed by status against the same browser.
func TestCLISaveAndStatus(t *testing.T) {
	store := setupTestStore(t)
	mem := browser.NewMemory()
	mem.OpenTab("https://a.example", "A")
	mem.OpenGroup("Work", snapshot.ColorBlue, false, "https://w1.example", "https://w2.example")

	app := newCLIApp(store, browser.Fixed(mem), config.DefaultConfig())

	out, err := runCLI(t, app, "save")
	if err != nil {
		t.Fatalf("save command failed: %v", err)
	}
	saved := decodeOutput[ops.SaveOutput](t, out)
	if saved.UngroupedTabs != 1 || saved.CapturedGroups != 1 {
		t.Errorf("save output = %+v", saved)
	}

	mem.OpenGroup("Fresh", snapshot.ColorRed, false, "https://f.example")

	out, err = runCLI(t, app, "status")
	if err != nil {
		t.Fatalf("status command failed: %v", err)
	}
	status := decodeOutput[ops.StatusOutput](t, out)
	if len(status.Groups) != 2 {
		t.Fatalf("expected 2 live groups, got %d", len(status.Groups))
	}
	want := map[string]ops.SyncStatus{"Work": ops.StatusSaved, "Fresh": ops.StatusUnsaved}
	for _, g := range status.Groups {
		if g.Status != want[g.Title] {
			t.Errorf("group %q status = %s, want %s", g.Title, g.Status, want[g.Title])
		}
	}
}

// TestCLISaveGroupAndRestore tests the per-group commands.
func TestCLISaveGroupAndRestore(t *testing.T) {
	store := setupTestStore(t)
	mem := browser.NewMemory()
	g := mem.OpenGroup("Research", snapshot.ColorPurple, true, "https://r.example")
	app := newCLIApp(store, browser.Fixed(mem), config.DefaultConfig())

	if _, err := runCLI(t, app, "save-group", "--title=Research"); err != nil {
		t.Fatalf("save-group failed: %v", err)
	}
	mem.CloseGroup(g.ID)

	out, err := runCLI(t, app, "restore-group", "--title", "Research")
	if err != nil {
		t.Fatalf("restore-group failed: %v", err)
	}
	restored := decodeOutput[ops.RestoreOutput](t, out)
	if restored.GroupsCreated != 1 || restored.TabsCreated != 1 {
		t.Errorf("restore output = %+v", restored)
	}

	groups, _ := mem.Groups(context.Background())
	if len(groups) != 1 || groups[0].Color != snapshot.ColorPurple || !groups[0].Collapsed {
		t.Errorf("live groups = %+v", groups)
	}
}

// TestCLISaveTabAndRestoreTab tests editing an ungrouped tab without the browser.
func TestCLISaveTabAndRestoreTab(t *testing.T) {
	store := setupTestStore(t)
	mem := browser.NewMemory()
	app := newCLIApp(store, browser.Fixed(mem), config.DefaultConfig())

	out, err := runCLI(t, app, "save-tab", "--url=https://a.example", "--title=A", "--pinned")
	if err != nil {
		t.Fatalf("save-tab failed: %v", err)
	}
	if got := decodeOutput[ops.SaveTabOutput](t, out); !got.Created {
		t.Errorf("save-tab output = %+v", got)
	}
	if len(mem.Calls()) != 0 {
		t.Error("save-tab must not touch the browser")
	}

	out, err = runCLI(t, app, "restore-tab", "--url=https://a.example")
	if err != nil {
		t.Fatalf("restore-tab failed: %v", err)
	}
	if got := decodeOutput[ops.RestoreOutput](t, out); got.TabsCreated != 1 {
		t.Errorf("restore-tab output = %+v", got)
	}
	tabs, _ := mem.Tabs(context.Background())
	if len(tabs) != 1 || !tabs[0].Pinned {
		t.Errorf("live tabs = %+v", tabs)
	}

	out, err = runCLI(t, app, "restore")
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if got := decodeOutput[ops.RestoreOutput](t, out); got.TabsCreated != 1 {
		t.Errorf("restore output = %+v", got)
	}
}

// TestCLIShowAndRemove tests show in both formats and the remove commands.
func TestCLIShowAndRemove(t *testing.T) {
	store := setupTestStore(t)
	err := store.Save(context.Background(), &snapshot.SavedState{
		UngroupedTabs: []snapshot.SavedTab{{URL: "https://a.example", Title: "A"}},
		Groups:        []snapshot.SavedGroup{{Title: "Work", Tabs: []snapshot.SavedTab{{URL: "https://w.example"}}}},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	app := newCLIApp(store, nil, config.DefaultConfig())

	out, err := runCLI(t, app, "show")
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	shown := decodeOutput[ops.ShowOutput](t, out)
	if !shown.Exists || shown.Groups != 1 || shown.Tabs != 2 {
		t.Errorf("show output = %+v", shown)
	}

	out, err = runCLI(t, app, "show", "--markdown")
	if err != nil {
		t.Fatalf("show --markdown failed: %v", err)
	}
	if !strings.Contains(out, "## Work") || !strings.Contains(out, "(<https://a.example>)") {
		t.Errorf("markdown output:\n%s", out)
	}

	out, err = runCLI(t, app, "remove-group", "--title=Work")
	if err != nil {
		t.Fatalf("remove-group failed: %v", err)
	}
	if got := decodeOutput[ops.RemoveOutput](t, out); got.Removed != 1 {
		t.Errorf("remove-group output = %+v", got)
	}

	out, err = runCLI(t, app, "remove-tab", "--url=https://missing.example")
	if err != nil {
		t.Fatalf("remove-tab of a missing URL should succeed: %v", err)
	}
	if got := decodeOutput[ops.RemoveOutput](t, out); got.Removed != 0 {
		t.Errorf("remove-tab output = %+v", got)
	}
}

// TestCLIExportImport tests export to a file and import back.
func TestCLIExportImport(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{dir}

	src := setupTestStore(t)
	err := src.Save(context.Background(), &snapshot.SavedState{
		Groups: []snapshot.SavedGroup{{Title: "Work", Tabs: []snapshot.SavedTab{{URL: "https://w.example"}}}},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	path := filepath.Join(dir, "snap.yaml")
	out, err := runCLI(t, newCLIApp(src, nil, cfg), "export", "--path", path)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	exported := decodeOutput[ops.ExportOutput](t, out)
	if exported.Format != "yaml" || exported.Groups != 1 {
		t.Errorf("export output = %+v", exported)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("export file missing: %v", err)
	}

	dst := setupTestStore(t)
	out, err = runCLI(t, newCLIApp(dst, nil, cfg), "import", "--path", path, "--mode", "replace")
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	imported := decodeOutput[ops.ImportOutput](t, out)
	if imported.Mode != ops.ImportModeReplace || imported.ImportedGroups != 1 {
		t.Errorf("import output = %+v", imported)
	}

	state, err := dst.Load(context.Background())
	if err != nil || state == nil || state.Groups[0].Title != "Work" {
		t.Errorf("imported state = %+v, %v", state, err)
	}
}

// TestCLIClear tests that clear requires confirmation.
func TestCLIClear(t *testing.T) {
	store := setupTestStore(t)
	if err := store.Save(context.Background(), &snapshot.SavedState{}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	app := newCLIApp(store, nil, config.DefaultConfig())

	_, err := runCLI(t, app, "clear")
	if msg := exitMessage(t, err); !strings.HasPrefix(msg, "[INVALID_REQUEST]") {
		t.Errorf("clear without --yes = %q", msg)
	}
	if state, _ := store.Load(context.Background()); state == nil {
		t.Fatal("unconfirmed clear deleted the snapshot")
	}

	out, err := runCLI(t, app, "clear", "--yes")
	if err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if got := decodeOutput[ops.ClearOutput](t, out); !got.Cleared {
		t.Errorf("clear output = %+v", got)
	}
	if state, _ := store.Load(context.Background()); state != nil {
		t.Error("snapshot still present after clear")
	}
}

// TestCLIErrorHandling tests error handling in CLI commands.
func TestCLIErrorHandling(t *testing.T) {
	store := setupTestStore(t)
	mem := browser.NewMemory()
	app := newCLIApp(store, browser.Fixed(mem), config.DefaultConfig())

	tests := []struct {
		name   string
		args   []string
		prefix string
	}{
		{"restore-group not found", []string{"restore-group", "--title=Missing"}, "[NOT_FOUND]"},
		{"save-group not open", []string{"save-group", "--title=Missing"}, "[NOT_FOUND]"},
		{"restore-tab not found", []string{"restore-tab", "--url=https://x.example"}, "[NOT_FOUND]"},
		{"blank url", []string{"restore-tab", "--url= "}, "[INVALID_REQUEST]"},
		{"export without snapshot", []string{"export"}, "[NOT_FOUND]"},
		{"unknown browser", []string{"--browser=firefox", "status"}, "[INVALID_REQUEST]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, app, tt.args...)
			if msg := exitMessage(t, err); !strings.HasPrefix(msg, tt.prefix) {
				t.Errorf("error = %q, want prefix %s", msg, tt.prefix)
			}
		})
	}

	t.Run("missing required flag", func(t *testing.T) {
		if _, err := runCLI(t, app, "restore-group"); err == nil {
			t.Error("expected error, got nil")
		}
	})
}

// TestCLIBrowserConnectFailure tests that a browser that cannot be opened
// fails browser commands but leaves snapshot-only commands working.
func TestCLIBrowserConnectFailure(t *testing.T) {
	store := setupTestStore(t)
	browsers := browser.NewLazy(func(context.Context) (browser.Browser, error) {
		return nil, stderrors.New("no chrome")
	})
	app := newCLIApp(store, browsers, config.DefaultConfig())

	_, err := runCLI(t, app, "status")
	if msg := exitMessage(t, err); !strings.HasPrefix(msg, "[EXTERNAL_SERVICE]") || !strings.Contains(msg, "no chrome") {
		t.Errorf("status error = %q", msg)
	}

	if _, err := runCLI(t, app, "save-tab", "--url=https://a.example"); err != nil {
		t.Errorf("save-tab should not need the browser: %v", err)
	}
}

// TestCLIBrowserFlag tests that --browser selects the backend used by the factory.
func TestCLIBrowserFlag(t *testing.T) {
	store := setupTestStore(t)
	cfg := config.DefaultConfig()
	browsers := browser.NewLazy(browserFactory(cfg, quietLogger()))
	app := newCLIApp(store, browsers, cfg)

	out, err := runCLI(t, app, "--browser=memory", "status")
	if err != nil {
		t.Fatalf("status with memory browser failed: %v", err)
	}
	if got := decodeOutput[ops.StatusOutput](t, out); got.HasSnapshot || len(got.Tabs) != 0 {
		t.Errorf("status output = %+v", got)
	}
	if cfg.Browser != config.BrowserMemory {
		t.Errorf("cfg.Browser = %q, want memory", cfg.Browser)
	}
}

// TestBrowserFactory tests backend selection.
func TestBrowserFactory(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Browser = config.BrowserMemory
	b, err := browserFactory(cfg, quietLogger())(context.Background())
	if err != nil {
		t.Fatalf("memory backend: %v", err)
	}
	if _, ok := b.(*browser.Memory); !ok {
		t.Errorf("got %T, want *browser.Memory", b)
	}

	cfg.Browser = "firefox"
	if b, err := browserFactory(cfg, quietLogger())(context.Background()); err == nil || b != nil {
		t.Errorf("unknown backend = %v, %v", b, err)
	}
}

// TestIsCLIMode tests the isCLIMode function.
func TestIsCLIMode(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{name: "no args", args: []string{"tabstash"}, expected: false},
		{name: "save command", args: []string{"tabstash", "save"}, expected: true},
		{name: "ui command", args: []string{"tabstash", "ui"}, expected: true},
		{name: "global flag before command", args: []string{"tabstash", "--browser=memory", "status"}, expected: true},
		{name: "help flag", args: []string{"tabstash", "--help"}, expected: true},
		{name: "short version flag", args: []string{"tabstash", "-v"}, expected: true},
		{name: "unknown arg defaults to MCP", args: []string{"tabstash", "--unknown"}, expected: false},
		{name: "unknown command", args: []string{"tabstash", "sync"}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			if result := isCLIMode(); result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

// TestIsHelpOrVersion tests the isHelpOrVersion function.
func TestIsHelpOrVersion(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{name: "no args", args: []string{"tabstash"}, expected: false},
		{name: "help flag", args: []string{"tabstash", "--help"}, expected: true},
		{name: "short help flag", args: []string{"tabstash", "-h"}, expected: true},
		{name: "version flag", args: []string{"tabstash", "--version"}, expected: true},
		{name: "help subcommand", args: []string{"tabstash", "help"}, expected: true},
		{name: "save command is not help", args: []string{"tabstash", "save"}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			if result := isHelpOrVersion(); result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}
