package ops

import (
	"context"

	"github.com/hpungsan/tabstash/internal/snapshot"
)

// ShowOutput contains the stored document and its counts.
type ShowOutput struct {
	Exists   bool                 `json:"exists"`
	Groups   int                  `json:"groups"`
	Tabs     int                  `json:"tabs"`
	Snapshot *snapshot.SavedState `json:"snapshot,omitempty"`
}

// Show returns the stored document without touching the browser.
func Show(ctx context.Context, store Store) (*ShowOutput, error) {
	state, err := loadState(ctx, store)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return &ShowOutput{}, nil
	}
	return &ShowOutput{
		Exists:   true,
		Groups:   len(state.Groups),
		Tabs:     state.TabCount(),
		Snapshot: state,
	}, nil
}
