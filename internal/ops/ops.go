package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/tabstash/internal/errors"
	"github.com/hpungsan/tabstash/internal/snapshot"
)

// Store is the snapshot document collaborator. Load returns (nil, nil)
// when no document has been saved.
type Store interface {
	Load(ctx context.Context) (*snapshot.SavedState, error)
	Save(ctx context.Context, state *snapshot.SavedState) error
	Clear(ctx context.Context) error
}

// Collaborator operation names, reported in EXTERNAL_SERVICE details.
const (
	opStoreLoad          = "store.load"
	opStoreSave          = "store.save"
	opStoreClear         = "store.clear"
	opBrowserTabs        = "browser.tabs"
	opBrowserGroups      = "browser.groups"
	opBrowserCreateTab   = "browser.create_tab"
	opBrowserCreateGroup = "browser.create_group"
	opBrowserUpdateGroup = "browser.update_group"
)

func loadState(ctx context.Context, store Store) (*snapshot.SavedState, error) {
	state, err := store.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(opStoreLoad, err)
	}
	return state, nil
}

func saveState(ctx context.Context, store Store, state *snapshot.SavedState) error {
	return errors.Wrap(opStoreSave, store.Save(ctx, state))
}

func requireURL(url string) error {
	if strings.TrimSpace(url) == "" {
		return errors.NewInvalidRequest("url is required")
	}
	return nil
}
