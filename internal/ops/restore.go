package ops

import (
	"context"
	"log/slog"

	"github.com/hpungsan/tabstash/internal/browser"
	"github.com/hpungsan/tabstash/internal/errors"
	"github.com/hpungsan/tabstash/internal/snapshot"
)

// RestoreOutput reports what a restore created.
type RestoreOutput struct {
	WindowID      int `json:"window_id,omitempty"`
	TabsCreated   int `json:"tabs_created"`
	GroupsCreated int `json:"groups_created"`
}

// restorer replays saved entities into one window, strictly one call at a
// time. Nothing is rolled back on failure: entities already created stay open.
type restorer struct {
	b      browser.Browser
	window int
	out    RestoreOutput
}

func newRestorer(ctx context.Context, b browser.Browser) (*restorer, error) {
	window, err := b.CurrentWindow(ctx)
	if err != nil {
		return nil, errors.NewWindowUnavailable(err)
	}
	return &restorer{b: b, window: window, out: RestoreOutput{WindowID: window}}, nil
}

func (r *restorer) tab(ctx context.Context, t snapshot.SavedTab) (int, error) {
	live, err := r.b.CreateTab(ctx, browser.CreateTabParams{
		URL:      t.URL,
		Pinned:   t.Pinned,
		WindowID: r.window,
		Active:   false,
	})
	if err != nil {
		return 0, errors.Wrap(opBrowserCreateTab, err)
	}
	r.out.TabsCreated++
	slog.DebugContext(ctx, "restored tab", "url", t.URL, "tab_id", live.ID, "window_id", r.window)
	return live.ID, nil
}

func (r *restorer) group(ctx context.Context, g snapshot.SavedGroup) error {
	// Nothing to group. The browser cannot create a group without members.
	if len(g.Tabs) == 0 {
		slog.DebugContext(ctx, "skipped empty group", "title", g.Title)
		return nil
	}

	ids := make([]int, 0, len(g.Tabs))
	for _, t := range g.Tabs {
		id, err := r.tab(ctx, t)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	groupID, err := r.b.CreateGroup(ctx, ids, r.window)
	if err != nil {
		return errors.Wrap(opBrowserCreateGroup, err)
	}
	err = r.b.UpdateGroup(ctx, groupID, browser.GroupUpdate{
		Title:     browser.StringPtr(g.Title),
		Color:     browser.ColorPtr(g.Color),
		Collapsed: browser.BoolPtr(g.Collapsed),
	})
	if err != nil {
		return errors.Wrap(opBrowserUpdateGroup, err)
	}
	r.out.GroupsCreated++
	slog.DebugContext(ctx, "restored group", "title", g.Title, "group_id", groupID, "tabs", len(ids))
	return nil
}

// abort logs how far a failed restore got before returning its error.
func (r *restorer) abort(ctx context.Context, err error) error {
	slog.WarnContext(ctx, "restore aborted", "tabs_created", r.out.TabsCreated, "groups_created", r.out.GroupsCreated, "error", err)
	return err
}

// RestoreAll reopens every saved ungrouped tab, then every saved group, in
// saved order. A missing document is a successful no-op.
func RestoreAll(ctx context.Context, store Store, b browser.Browser) (*RestoreOutput, error) {
	state, err := loadState(ctx, store)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return &RestoreOutput{}, nil
	}

	r, err := newRestorer(ctx, b)
	if err != nil {
		return nil, err
	}
	for _, t := range state.UngroupedTabs {
		if _, err := r.tab(ctx, t); err != nil {
			return nil, r.abort(ctx, err)
		}
	}
	for _, g := range state.Groups {
		if err := r.group(ctx, g); err != nil {
			return nil, r.abort(ctx, err)
		}
	}
	return &r.out, nil
}

// RestoreGroupInput contains parameters for the RestoreGroup operation.
type RestoreGroupInput struct {
	Title string
}

// RestoreGroup reopens the first saved group with the given title.
func RestoreGroup(ctx context.Context, store Store, b browser.Browser, input RestoreGroupInput) (*RestoreOutput, error) {
	state, err := loadState(ctx, store)
	if err != nil {
		return nil, err
	}
	idx := state.FindGroup(input.Title)
	if idx < 0 {
		return nil, errors.NewGroupNotFound("saved", input.Title)
	}

	r, err := newRestorer(ctx, b)
	if err != nil {
		return nil, err
	}
	if err := r.group(ctx, state.Groups[idx]); err != nil {
		return nil, r.abort(ctx, err)
	}
	return &r.out, nil
}

// RestoreTabInput contains parameters for the RestoreTab operation.
type RestoreTabInput struct {
	URL string
}

// RestoreTab reopens one saved ungrouped tab. Tabs saved inside groups are
// not looked up.
func RestoreTab(ctx context.Context, store Store, b browser.Browser, input RestoreTabInput) (*RestoreOutput, error) {
	if err := requireURL(input.URL); err != nil {
		return nil, err
	}
	state, err := loadState(ctx, store)
	if err != nil {
		return nil, err
	}
	idx := state.FindUngroupedTab(input.URL)
	if idx < 0 {
		return nil, errors.NewTabNotFound(input.URL)
	}

	r, err := newRestorer(ctx, b)
	if err != nil {
		return nil, err
	}
	if _, err := r.tab(ctx, state.UngroupedTabs[idx]); err != nil {
		return nil, r.abort(ctx, err)
	}
	return &r.out, nil
}
