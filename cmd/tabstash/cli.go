package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/tabstash/internal/browser"
	"github.com/hpungsan/tabstash/internal/config"
	"github.com/hpungsan/tabstash/internal/errors"
	"github.com/hpungsan/tabstash/internal/ops"
	"github.com/hpungsan/tabstash/internal/snapshot"
	"github.com/hpungsan/tabstash/internal/web"
)

// stdout receives command output. Tests swap it for a buffer.
var stdout io.Writer = os.Stdout

// newCLIApp creates the CLI application with all commands.
func newCLIApp(store web.Store, browsers *browser.Lazy, cfg *config.Config) *cli.App {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	app := &cli.App{
		Name:    "tabstash",
		Usage:   "Browser tab and tab group snapshots",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "browser", Aliases: []string{"b"}, Usage: "Browser backend: rod|memory (overrides config)"},
			&cli.StringFlag{Name: "debugger-url", Usage: "DevTools websocket URL of a running Chrome (overrides config)"},
		},
		Before: func(c *cli.Context) error {
			if c.IsSet("browser") {
				switch name := c.String("browser"); name {
				case config.BrowserRod, config.BrowserMemory:
					cfg.Browser = name
				default:
					return outputError(errors.NewInvalidRequest(fmt.Sprintf("unknown browser backend %q (want rod or memory)", name)))
				}
			}
			if c.IsSet("debugger-url") {
				cfg.DebuggerURL = c.String("debugger-url")
			}
			return nil
		},
		Commands: []*cli.Command{
			saveCmd(store, browsers),
			saveGroupCmd(store, browsers),
			saveTabCmd(store),
			restoreCmd(store, browsers),
			restoreGroupCmd(store, browsers),
			restoreTabCmd(store, browsers),
			statusCmd(store, browsers),
			showCmd(store),
			removeGroupCmd(store),
			removeTabCmd(store),
			exportCmd(store, cfg),
			importCmd(store, cfg),
			clearCmd(store),
			uiCmd(store, browsers, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// saveCmd creates the save command.
func saveCmd(store web.Store, browsers *browser.Lazy) *cli.Command {
	return &cli.Command{
		Name:  "save",
		Usage: "Capture every open tab and tab group, replacing the snapshot",
		Action: func(c *cli.Context) error {
			b, err := connect(c, browsers)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.SaveAll(c.Context, store, b)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// saveGroupCmd creates the save-group command.
func saveGroupCmd(store web.Store, browsers *browser.Lazy) *cli.Command {
	return &cli.Command{
		Name:  "save-group",
		Usage: "Capture one open group into the snapshot",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Required: true, Usage: "Group title"},
		},
		Action: func(c *cli.Context) error {
			b, err := connect(c, browsers)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.SaveGroup(c.Context, store, b, ops.SaveGroupInput{Title: c.String("title")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// saveTabCmd creates the save-tab command. It edits the snapshot only.
func saveTabCmd(store web.Store) *cli.Command {
	return &cli.Command{
		Name:  "save-tab",
		Usage: "Add or replace an ungrouped tab in the snapshot",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Required: true, Usage: "Tab URL"},
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Tab title"},
			&cli.BoolFlag{Name: "pinned", Usage: "Restore the tab pinned"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.SaveTab(c.Context, store, ops.SaveTabInput{
				URL:    c.String("url"),
				Title:  c.String("title"),
				Pinned: c.Bool("pinned"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// restoreCmd creates the restore command.
func restoreCmd(store web.Store, browsers *browser.Lazy) *cli.Command {
	return &cli.Command{
		Name:  "restore",
		Usage: "Reopen every saved tab and group in the current window",
		Action: func(c *cli.Context) error {
			b, err := connect(c, browsers)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.RestoreAll(c.Context, store, b)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// restoreGroupCmd creates the restore-group command.
func restoreGroupCmd(store web.Store, browsers *browser.Lazy) *cli.Command {
	return &cli.Command{
		Name:  "restore-group",
		Usage: "Reopen one saved group",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Required: true, Usage: "Group title"},
		},
		Action: func(c *cli.Context) error {
			b, err := connect(c, browsers)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.RestoreGroup(c.Context, store, b, ops.RestoreGroupInput{Title: c.String("title")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// restoreTabCmd creates the restore-tab command.
func restoreTabCmd(store web.Store, browsers *browser.Lazy) *cli.Command {
	return &cli.Command{
		Name:  "restore-tab",
		Usage: "Reopen one saved ungrouped tab",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Required: true, Usage: "Tab URL"},
		},
		Action: func(c *cli.Context) error {
			b, err := connect(c, browsers)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.RestoreTab(c.Context, store, b, ops.RestoreTabInput{URL: c.String("url")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// statusCmd creates the status command.
func statusCmd(store web.Store, browsers *browser.Lazy) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Compare open tabs and groups against the snapshot",
		Action: func(c *cli.Context) error {
			b, err := connect(c, browsers)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.ComputeStatus(c.Context, store, b)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// showCmd creates the show command.
func showCmd(store web.Store) *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Print the saved snapshot",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "markdown", Aliases: []string{"m"}, Usage: "Print as markdown instead of JSON"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Show(c.Context, store)
			if err != nil {
				return outputError(err)
			}
			if c.Bool("markdown") {
				_, err := io.WriteString(stdout, snapshot.RenderMarkdown(output.Snapshot))
				return err
			}
			return outputJSON(output)
		},
	}
}

// removeGroupCmd creates the remove-group command.
func removeGroupCmd(store web.Store) *cli.Command {
	return &cli.Command{
		Name:  "remove-group",
		Usage: "Delete saved groups with the given title",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Required: true, Usage: "Group title"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.RemoveGroup(c.Context, store, ops.RemoveGroupInput{Title: c.String("title")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// removeTabCmd creates the remove-tab command.
func removeTabCmd(store web.Store) *cli.Command {
	return &cli.Command{
		Name:  "remove-tab",
		Usage: "Delete saved ungrouped tabs with the given URL",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Required: true, Usage: "Tab URL"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.RemoveTab(c.Context, store, ops.RemoveTabInput{URL: c.String("url")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(store web.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export the snapshot to a JSON or YAML file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path, .json or .yaml (default: ~/.tabstash/exports/<store_key>-<timestamp>.json)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, store, cfg, ops.ExportInput{Path: c.String("path")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// importCmd creates the import command.
func importCmd(store web.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import a snapshot from a JSON or YAML export file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: string(ops.ImportModeMerge), Usage: "Import mode: merge|replace"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Import(c.Context, store, cfg, ops.ImportInput{
				Path: c.String("path"),
				Mode: ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// clearCmd creates the clear command.
func clearCmd(store web.Store) *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Delete the saved snapshot",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Confirm deletion"},
		},
		Action: func(c *cli.Context) error {
			if !c.Bool("yes") {
				return outputError(errors.NewInvalidRequest("clear deletes the saved snapshot; pass --yes to confirm"))
			}
			output, err := ops.Clear(c.Context, store)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// uiCmd creates the ui command.
func uiCmd(store web.Store, browsers *browser.Lazy, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "ui",
		Usage: "Serve the web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: cfg.UIBind, Usage: "Address to listen on"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: cfg.UIPort, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			port := c.Int("port")
			if port <= 0 || port > 65535 {
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("invalid port %d", port)))
			}
			srv, err := web.NewServer(store, browsers, web.Options{
				Version: Version,
				Bind:    c.String("bind"),
				Port:    port,
				Logger:  slog.Default(),
			})
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return web.Run(srv)
		},
	}
}

// Helper functions

// connect opens the browser on first use.
func connect(c *cli.Context, browsers *browser.Lazy) (browser.Browser, error) {
	b, err := browsers.Get(c.Context)
	if err != nil {
		return nil, errors.NewExternalService("browser.connect", err)
	}
	return b, nil
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var sErr *errors.StashError
	if stderrors.As(err, &sErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", sErr.Code, sErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
