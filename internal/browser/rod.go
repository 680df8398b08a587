package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hpungsan/tabstash/internal/snapshot"
)

// RodOptions configures how Rod attaches to Chrome.
type RodOptions struct {
	// DebuggerURL attaches to a running Chrome. Takes precedence over ChromeBin.
	DebuggerURL string
	// ChromeBin is launched when DebuggerURL is empty. Empty lets rod find a browser.
	ChromeBin string
	Headless  bool
	Logger    *slog.Logger
}

// Rod drives Chrome over the DevTools protocol.
//
// DevTools exposes page targets and their windows but has no notion of tab
// groups, pinning or tab strip position. Rod therefore assigns each page
// target a numeric id in first-seen order, derives positions from that
// order, and keeps group membership and pinned flags for as long as the
// adapter lives.
type Rod struct {
	browser *rod.Browser
	logger  *slog.Logger

	mu      sync.Mutex
	nextID  int
	ids     map[proto.TargetTargetID]int
	order   []proto.TargetTargetID
	windows map[proto.TargetTargetID]int
	pinned  map[int]bool
	members map[int]int // tab id -> group id
	groups  []snapshot.LiveGroup
}

// ConnectRod attaches to (or launches) Chrome.
func ConnectRod(ctx context.Context, opts RodOptions) (*Rod, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	controlURL := opts.DebuggerURL
	if controlURL == "" {
		l := launcher.New().Headless(opts.Headless).Leakless(false)
		if opts.ChromeBin != "" {
			l = l.Bin(opts.ChromeBin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	logger.Info("browser connected", "control_url", controlURL)

	return &Rod{
		browser: b,
		logger:  logger,
		nextID:  1,
		ids:     make(map[proto.TargetTargetID]int),
		windows: make(map[proto.TargetTargetID]int),
		pinned:  make(map[int]bool),
		members: make(map[int]int),
	}, nil
}

// Close disconnects from Chrome.
func (r *Rod) Close() error {
	return r.browser.Close()
}

type rodPage struct {
	target proto.TargetTargetID
	id     int
	info   *proto.TargetTargetInfo
	window int
}

// pages lists page targets with their windows and refreshes id bookkeeping.
func (r *Rod) pages(ctx context.Context) ([]rodPage, error) {
	b := r.browser.Context(ctx)
	res, err := proto.TargetGetTargets{}.Call(b)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}

	byTarget := make(map[proto.TargetTargetID]*proto.TargetTargetInfo)
	for _, info := range res.TargetInfos {
		if string(info.Type) != "page" {
			continue
		}
		byTarget[info.TargetID] = info
	}

	windows := make(map[proto.TargetTargetID]int, len(byTarget))
	for id := range byTarget {
		w, err := proto.BrowserGetWindowForTarget{TargetID: id}.Call(b)
		if err != nil {
			return nil, fmt.Errorf("window for target %s: %w", id, err)
		}
		windows[id] = int(w.WindowID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.windows = windows

	// Forget closed targets, then register new ones in a stable order.
	r.order = slices.DeleteFunc(r.order, func(id proto.TargetTargetID) bool {
		if _, ok := byTarget[id]; ok {
			return false
		}
		tabID := r.ids[id]
		delete(r.ids, id)
		delete(r.pinned, tabID)
		delete(r.members, tabID)
		return true
	})
	for _, info := range res.TargetInfos {
		if _, ok := byTarget[info.TargetID]; !ok {
			continue
		}
		if _, known := r.ids[info.TargetID]; !known {
			r.ids[info.TargetID] = r.allocIDLocked()
			r.order = append(r.order, info.TargetID)
		}
	}
	r.groups = slices.DeleteFunc(r.groups, func(g snapshot.LiveGroup) bool {
		for _, gid := range r.members {
			if gid == g.ID {
				return false
			}
		}
		return true
	})

	out := make([]rodPage, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, rodPage{target: id, id: r.ids[id], info: byTarget[id], window: windows[id]})
	}
	return out, nil
}

// Tabs lists page targets as tabs.
func (r *Rod) Tabs(ctx context.Context) ([]snapshot.LiveTab, error) {
	pages, err := r.pages(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	positions := windowPositions(r.order, r.windows)
	out := make([]snapshot.LiveTab, 0, len(pages))
	for _, p := range pages {
		groupID, grouped := r.members[p.id]
		if !grouped {
			groupID = snapshot.NoGroup
		}
		out = append(out, snapshot.LiveTab{
			ID:       p.id,
			URL:      p.info.URL,
			Title:    p.info.Title,
			Pinned:   r.pinned[p.id],
			Index:    positions[p.target],
			GroupID:  groupID,
			WindowID: p.window,
		})
	}
	return out, nil
}

// windowPositions numbers targets within their own window, following order.
// Tabs and CreateTab both report this position as the tab index.
func windowPositions(order []proto.TargetTargetID, windows map[proto.TargetTargetID]int) map[proto.TargetTargetID]int {
	next := make(map[int]int)
	out := make(map[proto.TargetTargetID]int, len(order))
	for _, id := range order {
		w := windows[id]
		out[id] = next[w]
		next[w]++
	}
	return out
}

// CreateTab opens a page target. DevTools cannot pick the window of a new
// target, so WindowID is only checked against the known windows.
func (r *Rod) CreateTab(ctx context.Context, p CreateTabParams) (snapshot.LiveTab, error) {
	b := r.browser.Context(ctx)
	res, err := proto.TargetCreateTarget{URL: p.URL, Background: !p.Active}.Call(b)
	if err != nil {
		return snapshot.LiveTab{}, fmt.Errorf("create target %s: %w", p.URL, err)
	}

	w, err := proto.BrowserGetWindowForTarget{TargetID: res.TargetID}.Call(b)
	if err != nil {
		return snapshot.LiveTab{}, fmt.Errorf("window for target %s: %w", res.TargetID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	id, known := r.ids[res.TargetID]
	if !known {
		id = r.allocIDLocked()
		r.ids[res.TargetID] = id
		r.order = append(r.order, res.TargetID)
	}
	r.windows[res.TargetID] = int(w.WindowID)
	if p.Pinned {
		r.pinned[id] = true
	}
	if int(w.WindowID) != p.WindowID {
		r.logger.Debug("tab opened outside requested window", "requested", p.WindowID, "actual", w.WindowID)
	}

	return snapshot.LiveTab{
		ID:       id,
		URL:      p.URL,
		Pinned:   p.Pinned,
		Index:    windowPositions(r.order, r.windows)[res.TargetID],
		GroupID:  snapshot.NoGroup,
		WindowID: int(w.WindowID),
	}, nil
}

// Groups lists the groups this adapter knows about.
func (r *Rod) Groups(ctx context.Context) ([]snapshot.LiveGroup, error) {
	// Refresh so groups whose tabs were closed disappear.
	if _, err := r.pages(ctx); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.groups), nil
}

// CreateGroup records a new group holding the given tabs.
func (r *Rod) CreateGroup(ctx context.Context, tabIDs []int, windowID int) (int, error) {
	if len(tabIDs) == 0 {
		return 0, errors.New("at least one tab is required to create a group")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	known := make(map[int]bool, len(r.ids))
	for _, id := range r.ids {
		known[id] = true
	}
	for _, id := range tabIDs {
		if !known[id] {
			return 0, fmt.Errorf("no tab with id %d", id)
		}
	}

	g := snapshot.LiveGroup{ID: r.allocIDLocked(), Color: snapshot.ColorGrey, WindowID: windowID}
	r.groups = append(r.groups, g)
	for _, id := range tabIDs {
		r.members[id] = g.ID
	}
	return g.ID, nil
}

// UpdateGroup applies the non-nil fields of u.
func (r *Rod) UpdateGroup(ctx context.Context, groupID int, u GroupUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := slices.IndexFunc(r.groups, func(g snapshot.LiveGroup) bool { return g.ID == groupID })
	if idx < 0 {
		return fmt.Errorf("no group with id %d", groupID)
	}
	if u.Title != nil {
		r.groups[idx].Title = *u.Title
	}
	if u.Color != nil {
		r.groups[idx].Color = *u.Color
	}
	if u.Collapsed != nil {
		r.groups[idx].Collapsed = *u.Collapsed
	}
	return nil
}

// CurrentWindow returns the window of the first page target.
func (r *Rod) CurrentWindow(ctx context.Context) (int, error) {
	pages, err := r.pages(ctx)
	if err != nil {
		return 0, err
	}
	if len(pages) == 0 {
		return 0, errors.New("browser has no open windows")
	}
	return pages[0].window, nil
}

// Watch calls fn whenever a target is created, destroyed or changes, until
// ctx is done.
func (r *Rod) Watch(ctx context.Context, fn func()) error {
	b := r.browser.Context(ctx)
	if err := (proto.TargetSetDiscoverTargets{Discover: true}).Call(b); err != nil {
		return fmt.Errorf("enable target discovery: %w", err)
	}
	wait := b.EachEvent(
		func(*proto.TargetTargetCreated) { fn() },
		func(*proto.TargetTargetDestroyed) { fn() },
		func(*proto.TargetTargetInfoChanged) { fn() },
	)
	wait()
	return nil
}

func (r *Rod) allocIDLocked() int {
	id := r.nextID
	r.nextID++
	return id
}
