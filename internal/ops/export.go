package ops

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hpungsan/tabstash/internal/config"
	"github.com/hpungsan/tabstash/internal/errors"
	"github.com/hpungsan/tabstash/internal/snapshot"
)

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path string // optional, default: ~/.tabstash/exports/<store_key>-<timestamp>.json
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Format     string `json:"format"`
	Groups     int    `json:"groups"`
	Tabs       int    `json:"tabs"`
	ExportedAt int64  `json:"exported_at"`
}

// Export writes the stored document to a JSON or YAML file, chosen by the
// path's extension.
func Export(ctx context.Context, store Store, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	state, err := loadState(ctx, store)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, errors.NewSnapshotNotFound()
	}

	now := time.Now()
	path := input.Path
	if path == "" {
		path, err = defaultExportPath(cfg, now)
		if err != nil {
			return nil, err
		}
	}
	// Default paths are validated too: the store key ends up in the file name.
	if err := ValidatePath(path, PathCheckWrite, cfg); err != nil {
		return nil, err
	}

	format := formatOf(path)
	data, err := encodeExport(format, snapshot.ExportDocument{
		Header: snapshot.ExportHeader{
			TabstashExport: true,
			SchemaVersion:  snapshot.ExportSchemaVersion,
			ExportedAt:     now.Unix(),
		},
		State: state,
	})
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	if err := writeFileAtomic(path, data); err != nil {
		return nil, err
	}

	return &ExportOutput{
		Path:       path,
		Format:     format,
		Groups:     len(state.Groups),
		Tabs:       state.TabCount(),
		ExportedAt: now.Unix(),
	}, nil
}

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML
	default:
		return formatJSON
	}
}

func encodeExport(format string, doc snapshot.ExportDocument) ([]byte, error) {
	if format == formatYAML {
		return yaml.Marshal(doc)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// writeFileAtomic writes to a temp file beside path and renames it into
// place, so an existing file survives a failed write.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(suffix) + ".tmp"

	file, err := openNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}
	committed := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !committed {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(data); err != nil {
		return errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return errors.NewInternal(err)
	}
	if err := file.Close(); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlink planted since validation.
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("path must not be a symlink")
	}
	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return errors.NewInvalidRequest("export destination already exists; overwriting is not supported on Windows")
			}
		}
		return errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}
	committed = true
	return nil
}

// defaultExportPath returns ~/.tabstash/exports/<store_key>-<timestamp>.json.
func defaultExportPath(cfg *config.Config, now time.Time) (string, error) {
	dir, err := DefaultExportsDir()
	if err != nil {
		return "", err
	}
	key := "tabstash"
	if cfg != nil && cfg.StoreKey != "" {
		key = cfg.StoreKey
	}
	name := fmt.Sprintf("%s-%s.json", SanitizeForFilename(key), now.Format("2006-01-02T150405"))
	return filepath.Join(dir, name), nil
}
