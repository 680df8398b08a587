package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// DirName is the directory holding tabstash state, both global (~/.tabstash)
// and per-repository (.tabstash).
const DirName = ".tabstash"

// Browser backends.
const (
	BrowserRod    = "rod"
	BrowserMemory = "memory"
)

// Config holds application configuration.
type Config struct {
	// StoreKey is the fixed key of the single snapshot document.
	StoreKey string `json:"store_key,omitempty"`

	// Browser selects the browser backend: "rod" (Chrome over DevTools) or
	// "memory" (in-process, for dry runs).
	Browser string `json:"browser,omitempty"`

	// DebuggerURL is the DevTools websocket of an already running Chrome
	// (e.g. ws://127.0.0.1:9222/devtools/browser/...). Takes precedence over ChromeBin.
	DebuggerURL string `json:"debugger_url,omitempty"`

	// ChromeBin is the Chrome binary to launch when DebuggerURL is empty.
	// Empty means let rod locate or download a browser.
	ChromeBin string `json:"chrome_bin,omitempty"`

	// Headless controls whether a launched Chrome is headless. nil means false:
	// restoring tabs into an invisible browser is rarely what a user wants.
	Headless *bool `json:"headless,omitempty"`

	// UIBind and UIPort control where the web UI listens.
	UIBind string `json:"ui_bind,omitempty"`
	UIPort int    `json:"ui_port,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// AllowedPaths is an allowlist of directories for import/export operations.
	// Paths outside ~/.tabstash/exports require either being in this list or AllowUnsafePaths=true.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for import/export.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of type names to disable entirely.
	// Known types: "snapshot".
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		StoreKey: "tabstash",
		Browser:  BrowserRod,
		UIBind:   "127.0.0.1",
		UIPort:   8737,
		LogLevel: "warn",
	}
}

// IsHeadless reports whether a launched browser should be headless.
func (c *Config) IsHeadless() bool {
	return c.Headless != nil && *c.Headless
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.tabstash) and repo (.tabstash) directories.
// Repo config is found by walking upward from startDir to find the nearest .tabstash/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repoConfigPath := FindRepoConfig(startDir)
	repo, err := loadFileRaw(repoConfigPath)
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .tabstash/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		configPath := filepath.Join(dir, DirName, "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		StoreKey:    firstString(overlay.StoreKey, base.StoreKey),
		Browser:     firstString(overlay.Browser, base.Browser),
		DebuggerURL: firstString(overlay.DebuggerURL, base.DebuggerURL),
		ChromeBin:   firstString(overlay.ChromeBin, base.ChromeBin),
		UIBind:      firstString(overlay.UIBind, base.UIBind),
		LogLevel:    firstString(overlay.LogLevel, base.LogLevel),
	}

	result.UIPort = overlay.UIPort
	if result.UIPort == 0 {
		result.UIPort = base.UIPort
	}

	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}

	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	// Pointers: overlay wins if set, so a repo can turn headless off again
	result.Headless = base.Headless
	if overlay.Headless != nil {
		result.Headless = overlay.Headless
	}

	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

func firstString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
