package ops

import (
	"context"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/tabstash/internal/browser"
	"github.com/hpungsan/tabstash/internal/errors"
	"github.com/hpungsan/tabstash/internal/snapshot"
)

// Captured is live browser state converted to snapshot form.
type Captured struct {
	UngroupedTabs []snapshot.SavedTab
	Groups        []snapshot.SavedGroup
}

// BuildFromLive converts live tabs and groups into snapshot form.
// Ungrouped tabs keep enumeration order. Each enumerated group yields one
// SavedGroup, with its members sorted by live index, even when it has none.
func BuildFromLive(tabs []snapshot.LiveTab, groups []snapshot.LiveGroup) Captured {
	c := Captured{
		UngroupedTabs: []snapshot.SavedTab{},
		Groups:        make([]snapshot.SavedGroup, 0, len(groups)),
	}
	for _, t := range tabs {
		if !t.Grouped() {
			c.UngroupedTabs = append(c.UngroupedTabs, savedTab(t))
		}
	}
	for _, g := range groups {
		c.Groups = append(c.Groups, buildGroup(g, tabs))
	}
	return c
}

func buildGroup(g snapshot.LiveGroup, tabs []snapshot.LiveTab) snapshot.SavedGroup {
	var members []snapshot.LiveTab
	for _, t := range tabs {
		if t.GroupID == g.ID {
			members = append(members, t)
		}
	}
	slices.SortStableFunc(members, func(a, b snapshot.LiveTab) int { return a.Index - b.Index })

	out := snapshot.SavedGroup{
		Title:     g.Title,
		Color:     g.Color,
		Collapsed: g.Collapsed,
		Tabs:      make([]snapshot.SavedTab, 0, len(members)),
	}
	for _, t := range members {
		out.Tabs = append(out.Tabs, savedTab(t))
	}
	return out
}

func savedTab(t snapshot.LiveTab) snapshot.SavedTab {
	return snapshot.SavedTab{URL: t.URL, Title: t.Title, Pinned: t.Pinned, Index: t.Index}
}

// readLive enumerates tabs and groups concurrently.
func readLive(ctx context.Context, g *errgroup.Group, b browser.Browser, tabs *[]snapshot.LiveTab, groups *[]snapshot.LiveGroup) {
	g.Go(func() error {
		out, err := b.Tabs(ctx)
		if err != nil {
			return errors.Wrap(opBrowserTabs, err)
		}
		*tabs = out
		return nil
	})
	g.Go(func() error {
		out, err := b.Groups(ctx)
		if err != nil {
			return errors.Wrap(opBrowserGroups, err)
		}
		*groups = out
		return nil
	})
}

// BuildSnapshot reads the live browser and converts it to snapshot form.
func BuildSnapshot(ctx context.Context, b browser.Browser) (*Captured, error) {
	var (
		tabs   []snapshot.LiveTab
		groups []snapshot.LiveGroup
	)
	g, gctx := errgroup.WithContext(ctx)
	readLive(gctx, g, b, &tabs, &groups)
	if err := g.Wait(); err != nil {
		return nil, err
	}
	c := BuildFromLive(tabs, groups)
	return &c, nil
}
