package ops

import (
	"context"
	"slices"

	"github.com/hpungsan/tabstash/internal/snapshot"
)

// RemoveOutput contains the result of a remove operation.
// A missing target is not an error: Removed is simply 0.
type RemoveOutput struct {
	Removed int `json:"removed"`
}

// RemoveGroupInput contains parameters for the RemoveGroup operation.
type RemoveGroupInput struct {
	Title string
}

// RemoveGroup drops every saved group with exactly this title.
func RemoveGroup(ctx context.Context, store Store, input RemoveGroupInput) (*RemoveOutput, error) {
	state, err := loadState(ctx, store)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return &RemoveOutput{}, nil
	}

	before := len(state.Groups)
	state.Groups = slices.DeleteFunc(state.Groups, func(g snapshot.SavedGroup) bool {
		return g.Title == input.Title
	})
	// The document is rewritten even when nothing matched.
	if err := saveState(ctx, store, state); err != nil {
		return nil, err
	}
	return &RemoveOutput{Removed: before - len(state.Groups)}, nil
}

// RemoveTabInput contains parameters for the RemoveTab operation.
type RemoveTabInput struct {
	URL string
}

// RemoveTab drops every saved ungrouped tab with exactly this URL.
// Tabs inside saved groups are untouched.
func RemoveTab(ctx context.Context, store Store, input RemoveTabInput) (*RemoveOutput, error) {
	state, err := loadState(ctx, store)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return &RemoveOutput{}, nil
	}

	before := len(state.UngroupedTabs)
	state.UngroupedTabs = slices.DeleteFunc(state.UngroupedTabs, func(t snapshot.SavedTab) bool {
		return t.URL == input.URL
	})
	if err := saveState(ctx, store, state); err != nil {
		return nil, err
	}
	return &RemoveOutput{Removed: before - len(state.UngroupedTabs)}, nil
}
