package snapshot

import "time"

// NoGroup is the group id the browser reports for tabs outside any group.
const NoGroup = -1

// PlaceholderIndex is the position stored for tabs saved one at a time.
// A single saved tab has no meaningful capture-time position.
const PlaceholderIndex = -1

// Color is a tab group color from the browser palette.
type Color string

const (
	ColorGrey   Color = "grey"
	ColorBlue   Color = "blue"
	ColorRed    Color = "red"
	ColorYellow Color = "yellow"
	ColorGreen  Color = "green"
	ColorPink   Color = "pink"
	ColorPurple Color = "purple"
	ColorCyan   Color = "cyan"
	ColorOrange Color = "orange"
)

// Colors lists the palette in the browser's display order.
var Colors = []Color{
	ColorGrey, ColorBlue, ColorRed, ColorYellow, ColorGreen,
	ColorPink, ColorPurple, ColorCyan, ColorOrange,
}

// SavedTab is a persisted tab. URL is its identity within a list.
type SavedTab struct {
	URL    string `json:"url" yaml:"url"`
	Title  string `json:"title" yaml:"title"`
	Pinned bool   `json:"pinned" yaml:"pinned"`

	// Index is the capture-time position. It orders tabs inside a group when
	// the snapshot is taken and carries no meaning afterwards.
	Index int `json:"index" yaml:"index"`
}

// SavedGroup is a persisted tab group. Title is its identity within the
// document: live group ids change on every browser restart, titles do not.
type SavedGroup struct {
	Title     string     `json:"title" yaml:"title"`
	Color     Color      `json:"color" yaml:"color"`
	Collapsed bool       `json:"collapsed" yaml:"collapsed"`
	Tabs      []SavedTab `json:"tabs" yaml:"tabs"`
}

// SavedState is the single persisted snapshot document.
type SavedState struct {
	SavedAt       time.Time    `json:"savedAt" yaml:"savedAt"`
	UngroupedTabs []SavedTab   `json:"ungroupedTabs" yaml:"ungroupedTabs"`
	Groups        []SavedGroup `json:"groups" yaml:"groups"`
}

// Clone returns a deep copy so callers can edit without aliasing the original.
func (s *SavedState) Clone() *SavedState {
	if s == nil {
		return nil
	}
	out := &SavedState{
		SavedAt:       s.SavedAt,
		UngroupedTabs: cloneTabs(s.UngroupedTabs),
		Groups:        make([]SavedGroup, len(s.Groups)),
	}
	for i, g := range s.Groups {
		g.Tabs = cloneTabs(g.Tabs)
		out.Groups[i] = g
	}
	return out
}

// Normalize replaces nil lists with empty ones so the document always
// serialises lists as [] rather than null.
func (s *SavedState) Normalize() *SavedState {
	if s == nil {
		return nil
	}
	if s.UngroupedTabs == nil {
		s.UngroupedTabs = []SavedTab{}
	}
	if s.Groups == nil {
		s.Groups = []SavedGroup{}
	}
	for i := range s.Groups {
		if s.Groups[i].Tabs == nil {
			s.Groups[i].Tabs = []SavedTab{}
		}
	}
	return s
}

// TabCount returns the number of saved tabs, grouped and ungrouped.
func (s *SavedState) TabCount() int {
	if s == nil {
		return 0
	}
	n := len(s.UngroupedTabs)
	for _, g := range s.Groups {
		n += len(g.Tabs)
	}
	return n
}

// FindGroup returns the position of the first group with exactly this title, or -1.
func (s *SavedState) FindGroup(title string) int {
	if s == nil {
		return -1
	}
	for i, g := range s.Groups {
		if g.Title == title {
			return i
		}
	}
	return -1
}

// FindUngroupedTab returns the position of the first ungrouped tab with this URL, or -1.
func (s *SavedState) FindUngroupedTab(url string) int {
	if s == nil {
		return -1
	}
	for i, t := range s.UngroupedTabs {
		if t.URL == url {
			return i
		}
	}
	return -1
}

func cloneTabs(tabs []SavedTab) []SavedTab {
	out := make([]SavedTab, len(tabs))
	copy(out, tabs)
	return out
}

// LiveTab mirrors one tab currently open in the browser. Never persisted.
type LiveTab struct {
	ID       int    `json:"id"`
	URL      string `json:"url"`
	Title    string `json:"title"`
	Pinned   bool   `json:"pinned"`
	Index    int    `json:"index"`
	GroupID  int    `json:"group_id"` // NoGroup when ungrouped
	WindowID int    `json:"window_id"`
}

// Grouped reports whether the tab belongs to a tab group.
func (t LiveTab) Grouped() bool {
	return t.GroupID != NoGroup
}

// LiveGroup mirrors one tab group currently open in the browser. Never persisted.
type LiveGroup struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Color     Color  `json:"color"`
	Collapsed bool   `json:"collapsed"`
	WindowID  int    `json:"window_id"`
}
