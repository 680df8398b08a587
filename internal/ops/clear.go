package ops

import (
	"context"

	"github.com/hpungsan/tabstash/internal/errors"
)

// ClearOutput contains the result of the Clear operation.
type ClearOutput struct {
	Cleared bool `json:"cleared"` // false when there was nothing to clear
}

// Clear deletes the stored document. Nothing else ever deletes it.
func Clear(ctx context.Context, store Store) (*ClearOutput, error) {
	state, err := loadState(ctx, store)
	if err != nil {
		return nil, err
	}
	if err := store.Clear(ctx); err != nil {
		return nil, errors.Wrap(opStoreClear, err)
	}
	return &ClearOutput{Cleared: state != nil}, nil
}
