package audio

import (
	"os"
	"path/filepath"

	"github.com/kbukum/chunkscribe/errors"
)

// Cleanup removes every file and subdirectory inside dir. A missing or
// empty dir is a no-op.
func Cleanup(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.IOFailure("list scratch dir", dir, err)
	}
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		if err := os.RemoveAll(p); err != nil {
			return errors.IOFailure("remove scratch entry", p, err)
		}
	}
	return nil
}
