package ops

import (
	"context"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/tabstash/internal/browser"
	"github.com/hpungsan/tabstash/internal/snapshot"
)

// SyncStatus compares one live entity with its saved counterpart.
type SyncStatus string

const (
	StatusSaved     SyncStatus = "saved"
	StatusOutOfSync SyncStatus = "out-of-sync"
	StatusUnsaved   SyncStatus = "unsaved"
)

// GroupStatus is a live group with its members and sync status.
type GroupStatus struct {
	snapshot.LiveGroup
	Tabs   []snapshot.LiveTab `json:"tabs"`
	Status SyncStatus         `json:"status"`
}

// TabStatus is a live ungrouped tab with its sync status.
type TabStatus struct {
	snapshot.LiveTab
	Status SyncStatus `json:"status"`
}

// StatusOutput is the sync view of live state against the saved document.
type StatusOutput struct {
	HasSnapshot bool       `json:"has_snapshot"`
	SavedAt     *time.Time `json:"saved_at,omitempty"`

	Groups []GroupStatus `json:"groups"`
	Tabs   []TabStatus   `json:"tabs"`

	// Closed entities are saved but not open: the candidates for restore.
	ClosedGroups []snapshot.SavedGroup `json:"closed_groups"`
	ClosedTabs   []snapshot.SavedTab   `json:"closed_tabs"`
}

// Classify compares a live group's URLs with its saved counterpart, which
// is nil when no saved group shares the title.
func Classify(live snapshot.URLSet, saved *snapshot.SavedGroup) SyncStatus {
	if saved == nil {
		return StatusUnsaved
	}
	if live.Equal(snapshot.SavedURLs(saved.Tabs)) {
		return StatusSaved
	}
	return StatusOutOfSync
}

// BuildStatus classifies live state against saved. It reads its inputs only.
func BuildStatus(saved *snapshot.SavedState, tabs []snapshot.LiveTab, groups []snapshot.LiveGroup) *StatusOutput {
	out := &StatusOutput{
		HasSnapshot:  saved != nil,
		Groups:       make([]GroupStatus, 0, len(groups)),
		Tabs:         []TabStatus{},
		ClosedGroups: []snapshot.SavedGroup{},
		ClosedTabs:   []snapshot.SavedTab{},
	}
	if saved != nil {
		at := saved.SavedAt
		out.SavedAt = &at
	}

	liveTitles := make(map[string]bool, len(groups))
	for _, g := range groups {
		liveTitles[g.Title] = true

		var members []snapshot.LiveTab
		for _, t := range tabs {
			if t.GroupID == g.ID {
				members = append(members, t)
			}
		}
		slices.SortStableFunc(members, func(a, b snapshot.LiveTab) int { return a.Index - b.Index })
		if members == nil {
			members = []snapshot.LiveTab{}
		}

		var match *snapshot.SavedGroup
		if idx := saved.FindGroup(g.Title); idx >= 0 {
			match = &saved.Groups[idx]
		}
		out.Groups = append(out.Groups, GroupStatus{
			LiveGroup: g,
			Tabs:      members,
			Status:    Classify(snapshot.LiveURLs(members), match),
		})
	}

	var savedUngrouped snapshot.URLSet
	if saved != nil {
		savedUngrouped = snapshot.SavedURLs(saved.UngroupedTabs)
	}
	for _, t := range tabs {
		if t.Grouped() {
			continue
		}
		status := StatusUnsaved
		if savedUngrouped.Has(t.URL) {
			status = StatusSaved
		}
		out.Tabs = append(out.Tabs, TabStatus{LiveTab: t, Status: status})
	}

	if saved == nil {
		return out
	}
	open := snapshot.LiveURLs(tabs)
	for _, g := range saved.Groups {
		if !liveTitles[g.Title] {
			out.ClosedGroups = append(out.ClosedGroups, g)
		}
	}
	for _, t := range saved.UngroupedTabs {
		if !open.Has(t.URL) {
			out.ClosedTabs = append(out.ClosedTabs, t)
		}
	}
	return out
}

// ComputeStatus loads the document and reads the live browser concurrently,
// then classifies. It never writes.
func ComputeStatus(ctx context.Context, store Store, b browser.Browser) (*StatusOutput, error) {
	var (
		saved  *snapshot.SavedState
		tabs   []snapshot.LiveTab
		groups []snapshot.LiveGroup
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		saved, err = loadState(gctx, store)
		return err
	})
	readLive(gctx, g, b, &tabs, &groups)
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return BuildStatus(saved, tabs, groups), nil
}
