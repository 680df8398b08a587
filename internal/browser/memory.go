package browser

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/hpungsan/tabstash/internal/snapshot"
)

// Operation names used by Memory for call recording and failure injection.
const (
	OpTabs          = "tabs"
	OpCreateTab     = "create_tab"
	OpGroups        = "groups"
	OpCreateGroup   = "create_group"
	OpUpdateGroup   = "update_group"
	OpCurrentWindow = "current_window"
)

// Call is one recorded primitive invocation on a Memory browser.
type Call struct {
	Op       string
	URL      string
	Pinned   bool
	Active   bool
	WindowID int
	TabIDs   []int
	GroupID  int
	Update   GroupUpdate
}

type failure struct {
	op  string
	nth int // 1-based call number; 0 fails every call
	err error
}

type memTab struct {
	id       int
	url      string
	title    string
	pinned   bool
	groupID  int
	windowID int
}

// Memory is an in-process browser. Tabs keep their order per window, and the
// live index of a tab is its position within its window.
type Memory struct {
	mu       sync.Mutex
	windows  []int
	focused  int
	tabs     []*memTab
	groups   []snapshot.LiveGroup
	nextID   int
	calls    []Call
	counts   map[string]int
	failures []failure
	watchers map[int]func()
}

// NewMemory creates a browser with one focused, empty window.
func NewMemory() *Memory {
	m := &Memory{
		nextID:   1,
		counts:   make(map[string]int),
		watchers: make(map[int]func()),
	}
	m.focused = m.AddWindow()
	return m
}

// AddWindow opens a new empty window and returns its id. The focused window
// is unchanged unless there was none.
func (m *Memory) AddWindow() int {
	m.mu.Lock()
	id := m.allocID()
	m.windows = append(m.windows, id)
	if m.focused == 0 {
		m.focused = id
	}
	m.mu.Unlock()
	return id
}

// Focus makes windowID the current window.
func (m *Memory) Focus(windowID int) {
	m.mu.Lock()
	m.focused = windowID
	m.mu.Unlock()
}

// OpenTab seeds an ungrouped tab at the end of the focused window.
// Seeding is not recorded as a call.
func (m *Memory) OpenTab(url, title string) snapshot.LiveTab {
	return m.OpenTabIn(0, url, title)
}

// OpenTabIn seeds an ungrouped tab at the end of windowID (0 means focused).
func (m *Memory) OpenTabIn(windowID int, url, title string) snapshot.LiveTab {
	m.mu.Lock()
	if windowID == 0 {
		windowID = m.focused
	}
	t := &memTab{id: m.allocID(), url: url, title: title, groupID: snapshot.NoGroup, windowID: windowID}
	m.tabs = append(m.tabs, t)
	live := m.liveTabLocked(t)
	m.mu.Unlock()
	m.fire()
	return live
}

// OpenGroup seeds a group in the focused window holding one new tab per URL.
func (m *Memory) OpenGroup(title string, color snapshot.Color, collapsed bool, urls ...string) snapshot.LiveGroup {
	m.mu.Lock()
	g := snapshot.LiveGroup{ID: m.allocID(), Title: title, Color: color, Collapsed: collapsed, WindowID: m.focused}
	m.groups = append(m.groups, g)
	for _, u := range urls {
		m.tabs = append(m.tabs, &memTab{id: m.allocID(), url: u, title: u, groupID: g.ID, windowID: m.focused})
	}
	m.mu.Unlock()
	m.fire()
	return g
}

// AddTabToGroup seeds one more tab at the end of an existing group.
func (m *Memory) AddTabToGroup(groupID int, url string) snapshot.LiveTab {
	m.mu.Lock()
	var windowID int
	for _, g := range m.groups {
		if g.ID == groupID {
			windowID = g.WindowID
		}
	}
	t := &memTab{id: m.allocID(), url: url, title: url, groupID: groupID, windowID: windowID}
	// Keep group members contiguous: insert after the group's last member.
	pos := len(m.tabs)
	for i, existing := range m.tabs {
		if existing.groupID == groupID {
			pos = i + 1
		}
	}
	m.tabs = slices.Insert(m.tabs, pos, t)
	live := m.liveTabLocked(t)
	m.mu.Unlock()
	m.fire()
	return live
}

// CloseTab removes a tab. A group left empty is removed too, as browsers do.
func (m *Memory) CloseTab(tabID int) {
	m.mu.Lock()
	m.tabs = slices.DeleteFunc(m.tabs, func(t *memTab) bool { return t.id == tabID })
	m.dropEmptyGroupsLocked()
	m.mu.Unlock()
	m.fire()
}

// CloseGroup removes a group and all of its tabs.
func (m *Memory) CloseGroup(groupID int) {
	m.mu.Lock()
	m.tabs = slices.DeleteFunc(m.tabs, func(t *memTab) bool { return t.groupID == groupID })
	m.groups = slices.DeleteFunc(m.groups, func(g snapshot.LiveGroup) bool { return g.ID == groupID })
	m.mu.Unlock()
	m.fire()
}

// Fail makes the nth call (1-based, counted from now) of op return err.
// nth 0 fails every subsequent call of op.
func (m *Memory) Fail(op string, nth int, err error) {
	m.mu.Lock()
	if nth > 0 {
		nth += m.counts[op]
	}
	m.failures = append(m.failures, failure{op: op, nth: nth, err: err})
	m.mu.Unlock()
}

// Calls returns the recorded calls in order.
func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// CallsTo returns the recorded calls of one operation.
func (m *Memory) CallsTo(op string) []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Call
	for _, c := range m.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// ResetCalls forgets recorded calls. Failure counters keep running.
func (m *Memory) ResetCalls() {
	m.mu.Lock()
	m.calls = nil
	m.mu.Unlock()
}

// Tabs lists tabs window by window, in tab strip order.
func (m *Memory) Tabs(ctx context.Context) ([]snapshot.LiveTab, error) {
	if err := m.begin(ctx, Call{Op: OpTabs}); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]snapshot.LiveTab, 0, len(m.tabs))
	for _, w := range m.windows {
		for _, t := range m.tabs {
			if t.windowID == w {
				out = append(out, m.liveTabLocked(t))
			}
		}
	}
	return out, nil
}

// CreateTab appends a tab to the end of the requested window.
func (m *Memory) CreateTab(ctx context.Context, p CreateTabParams) (snapshot.LiveTab, error) {
	if err := m.begin(ctx, Call{Op: OpCreateTab, URL: p.URL, Pinned: p.Pinned, Active: p.Active, WindowID: p.WindowID}); err != nil {
		return snapshot.LiveTab{}, err
	}
	m.mu.Lock()
	if !slices.Contains(m.windows, p.WindowID) {
		m.mu.Unlock()
		return snapshot.LiveTab{}, fmt.Errorf("no window with id %d", p.WindowID)
	}
	t := &memTab{id: m.allocID(), url: p.URL, title: p.URL, pinned: p.Pinned, groupID: snapshot.NoGroup, windowID: p.WindowID}
	m.tabs = append(m.tabs, t)
	live := m.liveTabLocked(t)
	m.mu.Unlock()
	m.fire()
	return live, nil
}

// Groups lists groups in creation order.
func (m *Memory) Groups(ctx context.Context) ([]snapshot.LiveGroup, error) {
	if err := m.begin(ctx, Call{Op: OpGroups}); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.groups), nil
}

// CreateGroup groups the given tabs in windowID. Members are moved next to
// the first of them, in the order given.
func (m *Memory) CreateGroup(ctx context.Context, tabIDs []int, windowID int) (int, error) {
	if err := m.begin(ctx, Call{Op: OpCreateGroup, TabIDs: slices.Clone(tabIDs), WindowID: windowID}); err != nil {
		return 0, err
	}
	if len(tabIDs) == 0 {
		return 0, fmt.Errorf("at least one tab is required to create a group")
	}

	m.mu.Lock()
	members := make([]*memTab, 0, len(tabIDs))
	for _, id := range tabIDs {
		idx := slices.IndexFunc(m.tabs, func(t *memTab) bool { return t.id == id })
		if idx < 0 {
			m.mu.Unlock()
			return 0, fmt.Errorf("no tab with id %d", id)
		}
		members = append(members, m.tabs[idx])
	}

	g := snapshot.LiveGroup{ID: m.allocID(), Color: snapshot.ColorGrey, WindowID: windowID}
	m.groups = append(m.groups, g)

	anchor := slices.Index(m.tabs, members[0])
	rest := slices.DeleteFunc(slices.Clone(m.tabs), func(t *memTab) bool { return slices.Contains(members, t) })
	// Shift the anchor left by the members that sat before it.
	before := 0
	for _, t := range m.tabs[:anchor] {
		if slices.Contains(members, t) {
			before++
		}
	}
	for _, t := range members {
		t.groupID = g.ID
		t.windowID = windowID
	}
	m.tabs = slices.Insert(rest, anchor-before, members...)
	m.dropEmptyGroupsLocked()
	m.mu.Unlock()
	m.fire()
	return g.ID, nil
}

// UpdateGroup applies the non-nil fields of u.
func (m *Memory) UpdateGroup(ctx context.Context, groupID int, u GroupUpdate) error {
	if err := m.begin(ctx, Call{Op: OpUpdateGroup, GroupID: groupID, Update: u}); err != nil {
		return err
	}
	m.mu.Lock()
	idx := slices.IndexFunc(m.groups, func(g snapshot.LiveGroup) bool { return g.ID == groupID })
	if idx < 0 {
		m.mu.Unlock()
		return fmt.Errorf("no group with id %d", groupID)
	}
	if u.Title != nil {
		m.groups[idx].Title = *u.Title
	}
	if u.Color != nil {
		m.groups[idx].Color = *u.Color
	}
	if u.Collapsed != nil {
		m.groups[idx].Collapsed = *u.Collapsed
	}
	m.mu.Unlock()
	m.fire()
	return nil
}

// CurrentWindow returns the focused window.
func (m *Memory) CurrentWindow(ctx context.Context) (int, error) {
	if err := m.begin(ctx, Call{Op: OpCurrentWindow}); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !slices.Contains(m.windows, m.focused) {
		return 0, fmt.Errorf("no focused window")
	}
	return m.focused, nil
}

// Watch calls fn after every change until ctx is done.
func (m *Memory) Watch(ctx context.Context, fn func()) error {
	m.mu.Lock()
	id := m.allocID()
	m.watchers[id] = fn
	m.mu.Unlock()

	<-ctx.Done()

	m.mu.Lock()
	delete(m.watchers, id)
	m.mu.Unlock()
	return nil
}

// begin records a call and returns an injected failure, if any.
func (m *Memory) begin(ctx context.Context, c Call) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
	m.counts[c.Op]++
	n := m.counts[c.Op]
	for _, f := range m.failures {
		if f.op == c.Op && (f.nth == 0 || f.nth == n) {
			return f.err
		}
	}
	return nil
}

func (m *Memory) fire() {
	m.mu.Lock()
	fns := make([]func(), 0, len(m.watchers))
	for _, fn := range m.watchers {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (m *Memory) allocID() int {
	id := m.nextID
	m.nextID++
	return id
}

func (m *Memory) liveTabLocked(t *memTab) snapshot.LiveTab {
	index := 0
	for _, other := range m.tabs {
		if other == t {
			break
		}
		if other.windowID == t.windowID {
			index++
		}
	}
	return snapshot.LiveTab{
		ID:       t.id,
		URL:      t.url,
		Title:    t.title,
		Pinned:   t.pinned,
		Index:    index,
		GroupID:  t.groupID,
		WindowID: t.windowID,
	}
}

func (m *Memory) dropEmptyGroupsLocked() {
	m.groups = slices.DeleteFunc(m.groups, func(g snapshot.LiveGroup) bool {
		return !slices.ContainsFunc(m.tabs, func(t *memTab) bool { return t.groupID == g.ID })
	})
}
