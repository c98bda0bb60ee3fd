// Package lock serializes fix runs over the same tree across processes.
package lock

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nightlyone/lockfile"
)

// ErrFixInProgress is returned when another live process holds the lock.
var ErrFixInProgress = errors.New("another fix run is in progress for this tree")

// Lock is a held process lock.
type Lock struct {
	file lockfile.Lockfile
}

// PathFor returns the lock file path for a tree root. Locks live in the
// temp directory so the tree itself is never touched.
func PathFor(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", root, err)
	}
	sum := sha256.Sum256([]byte(abs))
	return filepath.Join(os.TempDir(), "check-format-"+hex.EncodeToString(sum[:8])+".lock"), nil
}

// Acquire takes the lock for root. A lock left by a dead process is reclaimed.
func Acquire(root string) (*Lock, error) {
	path, err := PathFor(root)
	if err != nil {
		return nil, err
	}
	lf, err := lockfile.New(path)
	if err != nil {
		return nil, fmt.Errorf("creating lock %s: %w", path, err)
	}

	err = lf.TryLock()
	switch {
	case err == nil:
		return &Lock{file: lf}, nil
	case errors.Is(err, lockfile.ErrBusy):
		return nil, ErrFixInProgress
	case errors.Is(err, lockfile.ErrDeadOwner), errors.Is(err, lockfile.ErrInvalidPid):
		// The library removed the stale file; one retry claims it.
		if retryErr := lf.TryLock(); retryErr != nil {
			return nil, fmt.Errorf("acquiring lock %s: %w", path, retryErr)
		}
		return &Lock{file: lf}, nil
	default:
		return nil, fmt.Errorf("acquiring lock %s: %w", path, err)
	}
}

// Release drops the lock.
func (l *Lock) Release() error {
	if err := l.file.Unlock(); err != nil {
		return fmt.Errorf("releasing lock: %w", err)
	}
	return nil
}
