package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.StoreKey != DefaultConfig().StoreKey {
		t.Fatalf("StoreKey = %q, want %q", cfg.StoreKey, DefaultConfig().StoreKey)
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{"ui_port": 9000}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.UIPort != 9000 {
		t.Fatalf("UIPort = %d, want %d", cfg.UIPort, 9000)
	}
	if cfg.UIBind != "127.0.0.1" {
		t.Fatalf("UIBind = %q, want default", cfg.UIBind)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{not json}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoad_DisabledTools(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{"disabled_tools": ["snapshot_import", "snapshot_remove_group"]}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.DisabledTools) != 2 {
		t.Fatalf("DisabledTools length = %d, want 2", len(cfg.DisabledTools))
	}
	if cfg.DisabledTools[0] != "snapshot_import" {
		t.Errorf("DisabledTools[0] = %q, want %q", cfg.DisabledTools[0], "snapshot_import")
	}
	if cfg.DisabledTools[1] != "snapshot_remove_group" {
		t.Errorf("DisabledTools[1] = %q, want %q", cfg.DisabledTools[1], "snapshot_remove_group")
	}
}

func TestLoad_DisabledToolsEmpty(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.DisabledTools) != 0 {
		t.Fatalf("DisabledTools = %v, want nil or empty", cfg.DisabledTools)
	}
}

func TestLoadWithRepo_BothPresent(t *testing.T) {
	globalDir := t.TempDir()
	repoRoot := t.TempDir()

	// Global config
	globalConfig := `{"ui_port": 8000, "disabled_tools": ["snapshot_import"]}`
	if err := os.WriteFile(filepath.Join(globalDir, "config.json"), []byte(globalConfig), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	// Repo config at repoRoot/.tabstash/config.json
	repoCfgDir := filepath.Join(repoRoot, ".tabstash")
	if err := os.MkdirAll(repoCfgDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	repoConfig := `{"ui_port": 5000, "disabled_tools": ["snapshot_remove_group"]}`
	if err := os.WriteFile(filepath.Join(repoCfgDir, "config.json"), []byte(repoConfig), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadWithRepo(globalDir, repoRoot)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	// Repo overrides scalar
	if cfg.UIPort != 5000 {
		t.Errorf("UIPort = %d, want 5000 (repo override)", cfg.UIPort)
	}

	// Arrays merged
	if len(cfg.DisabledTools) != 2 {
		t.Errorf("DisabledTools length = %d, want 2", len(cfg.DisabledTools))
	}
}

func TestLoadWithRepo_OnlyGlobal(t *testing.T) {
	globalDir := t.TempDir()
	repoDir := t.TempDir() // No config file

	globalConfig := `{"ui_port": 8000, "disabled_tools": ["snapshot_import"]}`
	if err := os.WriteFile(filepath.Join(globalDir, "config.json"), []byte(globalConfig), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadWithRepo(globalDir, repoDir)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	if cfg.UIPort != 8000 {
		t.Errorf("UIPort = %d, want 8000", cfg.UIPort)
	}
	if len(cfg.DisabledTools) != 1 || cfg.DisabledTools[0] != "snapshot_import" {
		t.Errorf("DisabledTools = %v, want [snapshot_import]", cfg.DisabledTools)
	}
}

func TestLoadWithRepo_OnlyRepo(t *testing.T) {
	globalDir := t.TempDir() // No config file
	repoRoot := t.TempDir()

	// Repo config at repoRoot/.tabstash/config.json
	repoCfgDir := filepath.Join(repoRoot, ".tabstash")
	if err := os.MkdirAll(repoCfgDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	repoConfig := `{"disabled_tools": ["snapshot_remove_group", "snapshot_remove_tab"]}`
	if err := os.WriteFile(filepath.Join(repoCfgDir, "config.json"), []byte(repoConfig), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadWithRepo(globalDir, repoRoot)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	// Default value preserved
	if cfg.UIPort != 8737 {
		t.Errorf("UIPort = %d, want 8737 (default)", cfg.UIPort)
	}
	if len(cfg.DisabledTools) != 2 {
		t.Errorf("DisabledTools length = %d, want 2", len(cfg.DisabledTools))
	}
}

func TestLoadWithRepo_NeitherPresent(t *testing.T) {
	globalDir := t.TempDir()
	repoDir := t.TempDir()

	cfg, err := LoadWithRepo(globalDir, repoDir)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	// All defaults
	if cfg.Browser != BrowserRod || cfg.StoreKey != "tabstash" || cfg.LogLevel != "warn" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if len(cfg.DisabledTools) != 0 {
		t.Errorf("DisabledTools = %v, want empty", cfg.DisabledTools)
	}
}

func TestMerge_ScalarOverride(t *testing.T) {
	base := &Config{UIPort: 10000, DBMaxOpenConns: 5, Browser: BrowserRod}
	overlay := &Config{UIPort: 5000, Browser: BrowserMemory} // DBMaxOpenConns is 0 (zero value)

	result := Merge(base, overlay)

	if result.UIPort != 5000 {
		t.Errorf("UIPort = %d, want 5000 (overlay)", result.UIPort)
	}
	if result.Browser != BrowserMemory {
		t.Errorf("Browser = %q, want memory (overlay)", result.Browser)
	}
	if result.DBMaxOpenConns != 5 {
		t.Errorf("DBMaxOpenConns = %d, want 5 (base, overlay is zero)", result.DBMaxOpenConns)
	}
}

func TestMerge_BooleanOr(t *testing.T) {
	base := &Config{AllowUnsafePaths: true}
	overlay := &Config{AllowUnsafePaths: false}

	result := Merge(base, overlay)

	if !result.AllowUnsafePaths {
		t.Error("AllowUnsafePaths should be true (base OR overlay)")
	}
}

func TestMerge_ArrayMergeDedup(t *testing.T) {
	base := &Config{DisabledTools: []string{"snapshot_import", "snapshot_remove_group"}}
	overlay := &Config{DisabledTools: []string{"snapshot_remove_group", "snapshot_remove_tab"}}

	result := Merge(base, overlay)

	if len(result.DisabledTools) != 3 {
		t.Errorf("DisabledTools length = %d, want 3 (merged, deduped)", len(result.DisabledTools))
	}

	// Check all three are present
	has := make(map[string]bool)
	for _, s := range result.DisabledTools {
		has[s] = true
	}
	for _, want := range []string{"snapshot_import", "snapshot_remove_group", "snapshot_remove_tab"} {
		if !has[want] {
			t.Errorf("DisabledTools missing %q", want)
		}
	}
}

func TestFindRepoConfig_InCurrentDir(t *testing.T) {
	tmpDir := t.TempDir()
	repoCfgDir := filepath.Join(tmpDir, ".tabstash")
	if err := os.MkdirAll(repoCfgDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	configPath := filepath.Join(repoCfgDir, "config.json")
	if err := os.WriteFile(configPath, []byte(`{}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	found := FindRepoConfig(tmpDir)
	if found != configPath {
		t.Errorf("FindRepoConfig() = %q, want %q", found, configPath)
	}
}

func TestFindRepoConfig_InParentDir(t *testing.T) {
	// Create: tmpDir/.tabstash/config.json
	//         tmpDir/subdir/deeper/
	tmpDir := t.TempDir()
	repoCfgDir := filepath.Join(tmpDir, ".tabstash")
	if err := os.MkdirAll(repoCfgDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	configPath := filepath.Join(repoCfgDir, "config.json")
	if err := os.WriteFile(configPath, []byte(`{}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	subdir := filepath.Join(tmpDir, "subdir", "deeper")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	// Start from subdir, should find config in parent
	found := FindRepoConfig(subdir)
	if found != configPath {
		t.Errorf("FindRepoConfig() = %q, want %q", found, configPath)
	}
}

func TestFindRepoConfig_NotFound(t *testing.T) {
	tmpDir := t.TempDir()
	// No .tabstash directory

	found := FindRepoConfig(tmpDir)
	if found != "" {
		t.Errorf("FindRepoConfig() = %q, want empty string", found)
	}
}

func TestLoadWithRepo_WalksUpward(t *testing.T) {
	// Create: tmpDir/.tabstash/config.json with disabled_tools
	//         tmpDir/subdir/
	tmpDir := t.TempDir()
	globalDir := t.TempDir() // Separate global dir

	repoCfgDir := filepath.Join(tmpDir, ".tabstash")
	if err := os.MkdirAll(repoCfgDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	repoConfig := `{"disabled_tools": ["snapshot_import"]}`
	if err := os.WriteFile(filepath.Join(repoCfgDir, "config.json"), []byte(repoConfig), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	subdir := filepath.Join(tmpDir, "subdir")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	// Load from subdir, should find repo config in parent
	cfg, err := LoadWithRepo(globalDir, subdir)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	if len(cfg.DisabledTools) != 1 || cfg.DisabledTools[0] != "snapshot_import" {
		t.Errorf("DisabledTools = %v, want [snapshot_import]", cfg.DisabledTools)
	}
}

func TestMerge_HeadlessPointer(t *testing.T) {
	on, off := true, false

	result := Merge(&Config{Headless: &on}, &Config{Headless: &off})
	if result.IsHeadless() {
		t.Error("overlay headless=false should win over base true")
	}

	result = Merge(&Config{Headless: &on}, &Config{})
	if !result.IsHeadless() {
		t.Error("unset overlay should keep base headless=true")
	}

	if DefaultConfig().IsHeadless() {
		t.Error("default should not be headless")
	}
}
