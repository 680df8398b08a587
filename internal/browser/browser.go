// Package browser defines the live tab/group primitives tabstash depends on,
// with an in-process implementation and a Chrome DevTools implementation.
package browser

import (
	"context"

	"github.com/hpungsan/tabstash/internal/snapshot"
)

// CreateTabParams describes one tab to open.
type CreateTabParams struct {
	URL      string
	Pinned   bool
	WindowID int
	Active   bool
}

// GroupUpdate carries the group metadata to change. Nil fields are left alone.
type GroupUpdate struct {
	Title     *string
	Color     *snapshot.Color
	Collapsed *bool
}

// Tabs enumerates and opens tabs.
type Tabs interface {
	Tabs(ctx context.Context) ([]snapshot.LiveTab, error)
	CreateTab(ctx context.Context, p CreateTabParams) (snapshot.LiveTab, error)
}

// Groups enumerates, creates and edits tab groups.
type Groups interface {
	Groups(ctx context.Context) ([]snapshot.LiveGroup, error)
	// CreateGroup groups existing tabs in windowID and returns the new group id.
	CreateGroup(ctx context.Context, tabIDs []int, windowID int) (int, error)
	UpdateGroup(ctx context.Context, groupID int, u GroupUpdate) error
}

// Windows resolves the window new tabs should open in.
type Windows interface {
	CurrentWindow(ctx context.Context) (int, error)
}

// Browser is the full set of live primitives.
type Browser interface {
	Tabs
	Groups
	Windows
}

// Notifier is implemented by browsers that can report live changes.
// Watch calls fn after each change until ctx is done.
type Notifier interface {
	Watch(ctx context.Context, fn func()) error
}

// StringPtr, ColorPtr and BoolPtr build GroupUpdate fields.
func StringPtr(s string) *string { return &s }

func ColorPtr(c snapshot.Color) *snapshot.Color { return &c }

func BoolPtr(b bool) *bool { return &b }
