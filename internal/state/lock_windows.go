//go:build windows

package state

import (
	"os"
	"path/filepath"
)

// acquireLock only ensures the directory exists on Windows.
// Cross-process locking is not supported there; the store mutex still
// serializes goroutines.
func acquireLock(lockPath string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return nil, err
	}
	return func() {}, nil
}
