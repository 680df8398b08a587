//go:build windows

package ops

import (
	"os"

	"github.com/hpungsan/tabstash/internal/errors"
)

// openNoFollow opens path. Windows has no O_NOFOLLOW; ValidatePath has
// already refused symlinks.
func openNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	f, err := os.OpenFile(path, flag, perm)
	if err != nil && os.IsNotExist(err) && flag&os.O_CREATE == 0 {
		return nil, errors.NewFileNotFound(path)
	}
	return f, err
}
