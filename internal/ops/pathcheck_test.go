package ops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hpungsan/tabstash/internal/config"
	"github.com/hpungsan/tabstash/internal/errors"
)

// pathFixture is an allowed export directory with a few prepared entries:
// an existing export, a subdirectory, a symlinked file and a symlinked
// directory pointing outside.
type pathFixture struct {
	cfg     *config.Config
	allowed string
	outside string
}

func newPathFixture(t *testing.T) *pathFixture {
	t.Helper()
	allowed := t.TempDir()
	outside := t.TempDir()

	writeFile(t, filepath.Join(allowed, "saved.yaml"), "header: {}\n")
	writeFile(t, filepath.Join(outside, "target.json"), "{}")
	if err := os.Mkdir(filepath.Join(allowed, "nested"), 0700); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(allowed, "nested", "deep.json"), "{}")
	if err := os.Symlink(filepath.Join(outside, "target.json"), filepath.Join(allowed, "link.json")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := os.Symlink(outside, filepath.Join(allowed, "linkdir")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{allowed}
	return &pathFixture{cfg: cfg, allowed: allowed, outside: outside}
}

func TestValidatePath(t *testing.T) {
	f := newPathFixture(t)
	in := func(name string) string { return filepath.Join(f.allowed, name) }

	tests := []struct {
		name string
		path string
		mode PathCheckMode
		want errors.ErrorCode // "" means accepted
	}{
		// export targets
		{"json export", in("tabs.json"), PathCheckWrite, ""},
		{"yaml export", in("tabs.yaml"), PathCheckWrite, ""},
		{"yml export", in("tabs.yml"), PathCheckWrite, ""},
		{"upper-case extension", in("TABS.YAML"), PathCheckWrite, ""},
		{"overwrite existing export", in("saved.yaml"), PathCheckWrite, ""},

		// import sources
		{"existing yaml import", in("saved.yaml"), PathCheckRead, ""},
		{"missing import", in("absent.yml"), PathCheckRead, errors.ErrFileNotFound},

		// shape
		{"empty path", "", PathCheckWrite, errors.ErrInvalidRequest},
		{"jsonl is not an export format", in("tabs.jsonl"), PathCheckWrite, errors.ErrInvalidRequest},
		{"text file", in("tabs.txt"), PathCheckWrite, errors.ErrInvalidRequest},
		{"no extension", in("tabs"), PathCheckWrite, errors.ErrInvalidRequest},
		{"traversal out of allowed dir", f.allowed + "/../escape.yaml", PathCheckWrite, errors.ErrInvalidRequest},
		{"relative traversal", "../../etc/tabs.yml", PathCheckWrite, errors.ErrInvalidRequest},

		// location
		{"outside allowed dirs", filepath.Join(f.outside, "tabs.yaml"), PathCheckWrite, errors.ErrInvalidRequest},
		{"subdirectory write", in("nested/tabs.yml"), PathCheckWrite, errors.ErrInvalidRequest},
		{"subdirectory read", in("nested/deep.json"), PathCheckRead, errors.ErrInvalidRequest},
		{"symlinked file write", in("link.json"), PathCheckWrite, errors.ErrInvalidRequest},
		{"symlinked file read", in("link.json"), PathCheckRead, errors.ErrInvalidRequest},
		{"through symlinked dir", in("linkdir/target.json"), PathCheckRead, errors.ErrInvalidRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePath(tc.path, tc.mode, f.cfg)
			if tc.want == "" {
				if err != nil {
					t.Errorf("ValidatePath(%s) = %v, want accepted", tc.path, err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Errorf("ValidatePath(%s) = %v, want %s", tc.path, err, tc.want)
			}
		})
	}
}

func TestValidatePath_UnsafeLiftsDirectoryRuleOnly(t *testing.T) {
	f := newPathFixture(t)
	f.cfg.AllowUnsafePaths = true

	if err := ValidatePath(filepath.Join(f.outside, "anywhere.yml"), PathCheckWrite, f.cfg); err != nil {
		t.Errorf("outside dir with unsafe paths: %v", err)
	}
	if err := ValidatePath(filepath.Join(f.allowed, "nested", "deep.json"), PathCheckRead, f.cfg); err != nil {
		t.Errorf("subdirectory with unsafe paths: %v", err)
	}

	// Extension, traversal and symlink checks still apply.
	for _, p := range []string{
		filepath.Join(f.outside, "anywhere.csv"),
		f.allowed + "/../up.yaml",
		filepath.Join(f.allowed, "link.json"),
	} {
		if err := ValidatePath(p, PathCheckWrite, f.cfg); !errors.Is(err, errors.ErrInvalidRequest) {
			t.Errorf("ValidatePath(%s) = %v, want INVALID_REQUEST", p, err)
		}
	}
}

func TestValidatePath_SymlinkedAllowedDirResolved(t *testing.T) {
	target := t.TempDir()
	link := filepath.Join(t.TempDir(), "exports-link")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{link, "relative/ignored"}

	if err := ValidatePath(filepath.Join(target, "tabs.yaml"), PathCheckWrite, cfg); err != nil {
		t.Errorf("file in resolved allowed dir: %v", err)
	}
	if err := ValidatePath(filepath.Join(link, "tabs.yaml"), PathCheckWrite, cfg); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("file addressed through the symlink = %v, want INVALID_REQUEST", err)
	}
}

func TestContainsTraversal(t *testing.T) {
	for path, want := range map[string]bool{
		"tabs.yaml":           false,
		"./tabs.yml":          false,
		"a..b.json":           false,
		"/x/.tabstash/t.json": false,
		"..":                  true,
		"../tabs.json":        true,
		"/x/y/../tabs.yaml":   true,
		"x//..//tabs.yml":     true,
	} {
		if got := containsTraversal(path); got != want {
			t.Errorf("containsTraversal(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestSanitizeForFilename(t *testing.T) {
	for in, want := range map[string]string{
		"tabstash":         "tabstash",
		"work tabs":        "work tabs",
		"team/tabs":        "team-tabs",
		`team\tabs`:        "team-tabs",
		"../../keys":       "keys",
		"a..b":             "a-b",
		"tab\x00\x1fs\x7f": "tabs",
		"--a---b--":        "a-b",
		"/":                "unnamed",
		"":                 "unnamed",
		"\u00e9t\u00e9":    "\u00e9t\u00e9",
	} {
		if got := SanitizeForFilename(in); got != want {
			t.Errorf("SanitizeForFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDefaultExportsDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir, err := DefaultExportsDir()
	if err != nil {
		t.Fatalf("DefaultExportsDir: %v", err)
	}
	if want := filepath.Join(home, config.DirName, "exports"); dir != want {
		t.Errorf("DefaultExportsDir() = %q, want %q", dir, want)
	}
}
