package ops

import (
	"context"
	"time"

	"github.com/hpungsan/tabstash/internal/snapshot"
)

// SaveTabInput contains parameters for the SaveTab operation.
type SaveTabInput struct {
	URL    string
	Title  string
	Pinned bool
}

// SaveTabOutput contains the result of the SaveTab operation.
type SaveTabOutput struct {
	URL      string `json:"url"`
	Replaced bool   `json:"replaced"` // false when the tab was appended
	Created  bool   `json:"created"`  // true when this call created the document
}

// SaveTab upserts one ungrouped tab by URL, replacing in place or appending.
// The stored index is PlaceholderIndex. The document is created when absent.
func SaveTab(ctx context.Context, store Store, input SaveTabInput) (*SaveTabOutput, error) {
	if err := requireURL(input.URL); err != nil {
		return nil, err
	}
	state, err := loadState(ctx, store)
	if err != nil {
		return nil, err
	}

	out := &SaveTabOutput{URL: input.URL}
	if state == nil {
		state = (&snapshot.SavedState{SavedAt: time.Now().UTC()}).Normalize()
		out.Created = true
	}

	tab := snapshot.SavedTab{
		URL:    input.URL,
		Title:  input.Title,
		Pinned: input.Pinned,
		Index:  snapshot.PlaceholderIndex,
	}
	if idx := state.FindUngroupedTab(input.URL); idx >= 0 {
		state.UngroupedTabs[idx] = tab
		out.Replaced = true
	} else {
		state.UngroupedTabs = append(state.UngroupedTabs, tab)
	}

	if err := saveState(ctx, store, state); err != nil {
		return nil, err
	}
	return out, nil
}
