package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hpungsan/tabstash/internal/browser"
	"github.com/hpungsan/tabstash/internal/config"
	"github.com/hpungsan/tabstash/internal/db"
	"github.com/hpungsan/tabstash/internal/logging"
	"github.com/hpungsan/tabstash/internal/mcp"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"save": true, "save-group": true, "save-tab": true,
	"restore": true, "restore-group": true, "restore-tab": true,
	"status": true, "show": true,
	"remove-group": true, "remove-tab": true,
	"export": true, "import": true, "clear": true,
	"ui": true, "help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	// Global flags come before the subcommand.
	if len(arg) > 1 && arg[0] == '-' {
		for _, a := range os.Args[2:] {
			if cliCommands[a] {
				return true
			}
		}
	}
	return false
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   _        _         _            _
  | |_ __ _| |__  ___| |_ __ _ ___| |__
  | __/ _' | '_ \/ __| __/ _' / __| '_ \
  | || (_| | |_) \__ \ || (_| \__ \ | | |
   \__\__,_|_.__/|___/\__\__,_|___/_| |_|

  Browser tab and tab group snapshots

  Usage: tabstash <command> [options]
         tabstash --help

  MCP server mode requires piped input.`)
}

// browserFactory opens the configured browser backend. It reads cfg when
// called, so a --browser flag parsed after wiring still applies.
func browserFactory(cfg *config.Config, logger *slog.Logger) browser.Factory {
	return func(ctx context.Context) (browser.Browser, error) {
		switch cfg.Browser {
		case config.BrowserMemory:
			logger.Info("using in-memory browser")
			return browser.NewMemory(), nil
		case config.BrowserRod, "":
			r, err := browser.ConnectRod(ctx, browser.RodOptions{
				DebuggerURL: cfg.DebuggerURL,
				ChromeBin:   cfg.ChromeBin,
				Headless:    cfg.IsHeadless(),
				Logger:      logger,
			})
			if err != nil {
				return nil, err
			}
			return r, nil
		default:
			return nil, fmt.Errorf("unknown browser backend %q", cfg.Browser)
		}
	}
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil, nil, nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}

	baseDir := filepath.Join(homeDir, config.DirName)

	database, err := db.Init(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	cwd, _ := os.Getwd()
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	db.ConfigurePool(database, cfg)

	logger := logging.Setup(os.Stderr, cfg.LogLevel)
	for _, name := range mcp.ValidateDisabledTools(cfg.DisabledTools) {
		logger.Warn("unknown tool in disabled_tools", "tool", name)
	}
	for _, name := range mcp.ValidateDisabledTypes(cfg.DisabledTypes) {
		logger.Warn("unknown type in disabled_types", "type", name)
	}

	store := db.NewDocumentStore(database, cfg.StoreKey)
	browsers := browser.NewLazy(browserFactory(cfg, logger))
	defer browsers.Close()

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(store, browsers, cfg)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			browsers.Close()
			database.Close()
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'tabstash --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default)
	if err := mcp.Run(store, browsers, cfg, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		browsers.Close()
		database.Close()
		os.Exit(1)
	}
}
