package ops

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hpungsan/tabstash/internal/config"
	"github.com/hpungsan/tabstash/internal/errors"
	"github.com/hpungsan/tabstash/internal/snapshot"
)

// ImportMode controls how an imported document meets the stored one.
type ImportMode string

const (
	ImportModeMerge   ImportMode = "merge"   // upsert groups by title and ungrouped tabs by URL
	ImportModeReplace ImportMode = "replace" // overwrite the stored document
)

// maxImportSize bounds how much of an import file is read.
const maxImportSize = 16 << 20

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     // required
	Mode ImportMode // default: merge
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Mode           ImportMode `json:"mode"`
	ImportedGroups int        `json:"imported_groups"`
	ImportedTabs   int        `json:"imported_tabs"`
	Groups         int        `json:"groups"` // saved groups after import
	Tabs           int        `json:"tabs"`   // saved tabs after import
}

// Import reads an export file, validates it and stores it.
func Import(ctx context.Context, store Store, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if input.Path == "" {
		return nil, errors.NewInvalidRequest("path is required")
	}
	if input.Mode == "" {
		input.Mode = ImportModeMerge
	}
	if input.Mode != ImportModeMerge && input.Mode != ImportModeReplace {
		return nil, errors.NewInvalidRequest("mode must be one of: merge, replace")
	}
	if err := ValidatePath(input.Path, PathCheckRead, cfg); err != nil {
		return nil, err
	}

	incoming, err := readExport(input.Path)
	if err != nil {
		return nil, err
	}
	if result := snapshot.Validate(incoming); !result.Valid {
		return nil, errors.NewInvalidDocument(result.Problems())
	}

	next := incoming
	if input.Mode == ImportModeMerge {
		prev, err := loadState(ctx, store)
		if err != nil {
			return nil, err
		}
		next = MergeImport(prev, incoming, time.Now().UTC())
	}
	if err := saveState(ctx, store, next); err != nil {
		return nil, err
	}

	return &ImportOutput{
		Mode:           input.Mode,
		ImportedGroups: len(incoming.Groups),
		ImportedTabs:   incoming.TabCount(),
		Groups:         len(next.Groups),
		Tabs:           next.TabCount(),
	}, nil
}

// MergeImport folds an imported document into prev: groups are upserted by
// title and ungrouped tabs by URL, both in place when already saved.
func MergeImport(prev, incoming *snapshot.SavedState, now time.Time) *snapshot.SavedState {
	out := prev.Clone()
	if out == nil {
		out = &snapshot.SavedState{}
	}
	out.SavedAt = now
	for _, t := range incoming.UngroupedTabs {
		if idx := out.FindUngroupedTab(t.URL); idx >= 0 {
			out.UngroupedTabs[idx] = t
		} else {
			out.UngroupedTabs = append(out.UngroupedTabs, t)
		}
	}
	for _, g := range incoming.Groups {
		g.Tabs = cloneTabs(g.Tabs)
		out.Groups = upsertGroup(out.Groups, g)
	}
	return out.Normalize()
}

// readExport opens and decodes an export file in the format its extension names.
func readExport(path string) (*snapshot.SavedState, error) {
	file, err := openNoFollow(path, os.O_RDONLY, 0)
	if err != nil {
		if _, ok := err.(*errors.StashError); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImportSize+1))
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to read import file: %w", err))
	}
	if len(data) > maxImportSize {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("import file exceeds %d bytes", maxImportSize))
	}

	var doc snapshot.ExportDocument
	if formatOf(path) == formatYAML {
		err = yaml.Unmarshal(data, &doc)
	} else {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&doc)
	}
	if err != nil {
		return nil, errors.NewInvalidDocument([]string{fmt.Sprintf("cannot parse %s: %v", formatOf(path), err)})
	}
	if !doc.Header.TabstashExport {
		return nil, errors.NewInvalidDocument([]string{"missing tabstash export header"})
	}
	if doc.State == nil {
		return nil, errors.NewInvalidDocument([]string{"missing snapshot"})
	}
	return doc.State.Normalize(), nil
}
