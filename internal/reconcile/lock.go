package reconcile

import (
	"fmt"
	"os"
	"path/filepath"
)

// acquireRunLock takes an exclusive lock file so two processes cannot
// reconcile the same owner namespace and checkpoint file concurrently. The
// returned release func removes the file.
func acquireRunLock(path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir for lock %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: lock file %s exists", ErrRunInProgress, path)
		}
		return nil, fmt.Errorf("create lock %s: %w", path, err)
	}
	_, _ = fmt.Fprintf(f, "%d\n", os.Getpid())
	_ = f.Close()
	return func() { _ = os.Remove(path) }, nil
}
