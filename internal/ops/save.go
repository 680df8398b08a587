package ops

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/tabstash/internal/browser"
	"github.com/hpungsan/tabstash/internal/errors"
	"github.com/hpungsan/tabstash/internal/snapshot"
)

// SaveOutput contains the result of a full save.
type SaveOutput struct {
	SavedAt        time.Time `json:"saved_at"`
	UngroupedTabs  int       `json:"ungrouped_tabs"`
	CapturedGroups int       `json:"captured_groups"`
	Groups         int       `json:"groups"` // saved groups after merge, closed ones included
}

// MergeFull merges a fresh capture into the previous document.
//
// Ungrouped tabs are replaced wholesale. Groups are merged by title: a
// captured group replaces the saved group with the same title in place,
// otherwise it is appended. Saved groups with no captured counterpart are
// kept. prev is not modified.
func MergeFull(prev *snapshot.SavedState, c Captured, now time.Time) *snapshot.SavedState {
	out := &snapshot.SavedState{
		SavedAt:       now,
		UngroupedTabs: cloneTabs(c.UngroupedTabs),
		Groups:        []snapshot.SavedGroup{},
	}
	if prev != nil {
		out.Groups = prev.Clone().Groups
	}
	for _, g := range c.Groups {
		out.Groups = upsertGroup(out.Groups, g)
	}
	return out.Normalize()
}

// MergeGroup merges one freshly built group into the previous document by
// title. Ungrouped tabs and SavedAt come from prev; when prev is nil they
// start empty and at now. prev is not modified.
func MergeGroup(prev *snapshot.SavedState, group snapshot.SavedGroup, now time.Time) *snapshot.SavedState {
	out := prev.Clone()
	if out == nil {
		out = &snapshot.SavedState{SavedAt: now}
	}
	group.Tabs = cloneTabs(group.Tabs)
	out.Groups = upsertGroup(out.Groups, group)
	return out.Normalize()
}

// upsertGroup replaces the first group titled g.Title, or appends g.
func upsertGroup(groups []snapshot.SavedGroup, g snapshot.SavedGroup) []snapshot.SavedGroup {
	for i := range groups {
		if groups[i].Title == g.Title {
			groups[i] = g
			return groups
		}
	}
	return append(groups, g)
}

func cloneTabs(tabs []snapshot.SavedTab) []snapshot.SavedTab {
	out := make([]snapshot.SavedTab, len(tabs))
	copy(out, tabs)
	return out
}

// SaveAll captures the whole live browser and merges it into the stored document.
func SaveAll(ctx context.Context, store Store, b browser.Browser) (*SaveOutput, error) {
	var (
		prev   *snapshot.SavedState
		tabs   []snapshot.LiveTab
		groups []snapshot.LiveGroup
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		prev, err = loadState(gctx, store)
		return err
	})
	readLive(gctx, g, b, &tabs, &groups)
	if err := g.Wait(); err != nil {
		return nil, err
	}

	captured := BuildFromLive(tabs, groups)
	next := MergeFull(prev, captured, time.Now().UTC())
	if err := saveState(ctx, store, next); err != nil {
		return nil, err
	}

	return &SaveOutput{
		SavedAt:        next.SavedAt,
		UngroupedTabs:  len(next.UngroupedTabs),
		CapturedGroups: len(captured.Groups),
		Groups:         len(next.Groups),
	}, nil
}

// SaveGroupInput contains parameters for the SaveGroup operation.
type SaveGroupInput struct {
	Title string
}

// SaveGroupOutput contains the result of a single-group re-save.
type SaveGroupOutput struct {
	Title    string `json:"title"`
	Tabs     int    `json:"tabs"`
	Replaced bool   `json:"replaced"` // false when the group was appended
}

// SaveGroup re-saves one live group by title without touching other saved
// groups. When the browser reports several groups with the title, the first
// one in enumeration order wins.
func SaveGroup(ctx context.Context, store Store, b browser.Browser, input SaveGroupInput) (*SaveGroupOutput, error) {
	var (
		prev   *snapshot.SavedState
		tabs   []snapshot.LiveTab
		groups []snapshot.LiveGroup
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		prev, err = loadState(gctx, store)
		return err
	})
	readLive(gctx, g, b, &tabs, &groups)
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var live *snapshot.LiveGroup
	for i := range groups {
		if groups[i].Title == input.Title {
			live = &groups[i]
			break
		}
	}
	if live == nil {
		return nil, errors.NewGroupNotFound("live", input.Title)
	}

	group := buildGroup(*live, tabs)
	replaced := prev.FindGroup(input.Title) >= 0
	next := MergeGroup(prev, group, time.Now().UTC())
	if err := saveState(ctx, store, next); err != nil {
		return nil, err
	}

	return &SaveGroupOutput{
		Title:    input.Title,
		Tabs:     len(group.Tabs),
		Replaced: replaced,
	}, nil
}
