package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hpungsan/tabstash/internal/config"
	"github.com/hpungsan/tabstash/internal/errors"
)

// PathCheckMode indicates whether a path is about to be read or written.
type PathCheckMode int

const (
	PathCheckRead  PathCheckMode = iota // import
	PathCheckWrite                      // export
)

// ExportExtensions lists the file extensions export and import accept.
var ExportExtensions = []string{".json", ".yaml", ".yml"}

// ValidatePath checks an import/export path:
//   - no ".." components
//   - a .json, .yaml or .yml extension
//   - the file sits directly in ~/.tabstash/exports or an allowed_paths entry
//   - neither the file nor its parent directory is a symlink
//
// Requiring the file to be directly inside an allowed directory leaves no
// intermediate directory to swap for a symlink after the check; the final
// component is opened with O_NOFOLLOW.
func ValidatePath(path string, mode PathCheckMode, cfg *config.Config) error {
	if path == "" {
		return errors.NewInvalidRequest("path is required")
	}
	if containsTraversal(path) {
		return errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}

	cleaned := filepath.Clean(path)
	if !slices.Contains(ExportExtensions, strings.ToLower(filepath.Ext(cleaned))) {
		return errors.NewInvalidRequest(fmt.Sprintf("path must have one of the extensions %v", ExportExtensions))
	}

	absPath, err := filepath.Abs(cleaned)
	if err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}

	// Unsafe mode lifts the directory allowlist only.
	if cfg == nil || !cfg.AllowUnsafePaths {
		allowed, err := allowedDirs(cfg)
		if err != nil {
			return err
		}
		parent := filepath.Dir(absPath)
		if !slices.Contains(allowed, filepath.Clean(parent)) {
			return errors.NewInvalidRequest(
				fmt.Sprintf("file must be directly in an allowed directory (no subdirectories); allowed: %v", allowed))
		}
		if info, err := os.Lstat(parent); err == nil && info.Mode()&os.ModeSymlink != 0 {
			return errors.NewInvalidRequest("parent directory must not be a symlink")
		}
	}

	if mode == PathCheckRead {
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			return errors.NewFileNotFound(path)
		}
	}
	if info, err := os.Lstat(absPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("path must not be a symlink")
	}
	return nil
}

// allowedDirs returns the exports directory plus absolute allowed_paths,
// each cleaned and, when it is itself a symlink, resolved.
func allowedDirs(cfg *config.Config) ([]string, error) {
	exports, err := DefaultExportsDir()
	if err != nil {
		return nil, err
	}
	dirs := []string{exports}
	if cfg != nil {
		for _, p := range cfg.AllowedPaths {
			if filepath.IsAbs(p) {
				dirs = append(dirs, p)
			}
		}
	}

	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		abs, err := filepath.Abs(filepath.Clean(d))
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid allowed path: %v", err))
		}
		if info, err := os.Lstat(abs); err == nil && info.Mode()&os.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(abs)
			if err != nil {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot resolve symlink in allowed path: %v", err))
			}
			abs = resolved
		}
		out = append(out, abs)
	}
	return out, nil
}

// DefaultExportsDir returns ~/.tabstash/exports.
func DefaultExportsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to get home directory: %w", err))
	}
	return filepath.Join(home, config.DirName, "exports"), nil
}

func containsTraversal(path string) bool {
	split := func(r rune) bool { return r == '/' || r == filepath.Separator }
	return slices.Contains(strings.FieldsFunc(path, split), "..")
}

// SanitizeForFilename turns s into a safe file name fragment.
func SanitizeForFilename(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '/' || r == '\\':
			b.WriteRune('-')
		case r < 32 || r == 127:
			// drop control characters
		default:
			b.WriteRune(r)
		}
	}
	s = strings.ReplaceAll(b.String(), "..", "-")
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	s = strings.Trim(s, "-")
	if s == "" {
		return "unnamed"
	}
	return s
}
