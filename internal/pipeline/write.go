package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
)

// writeFile replaces path with content through a temp file in the same
// directory, keeping the original permissions.
func writeFile(path, content string) error {
	info, statErr := os.Stat(path)
	if statErr != nil {
		return fmt.Errorf("stat %s: %w", path, statErr)
	}

	tempFile, createErr := os.CreateTemp(filepath.Dir(path), ".check-format-*.tmp")
	if createErr != nil {
		return fmt.Errorf("creating temp file: %w", createErr)
	}
	tempPath := tempFile.Name()

	if _, writeErr := tempFile.WriteString(content); writeErr != nil {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing %s: %w", path, writeErr)
	}

	// Sync to disk to catch disk full errors before closing
	if syncErr := tempFile.Sync(); syncErr != nil {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("syncing %s: %w", path, syncErr)
	}

	if closeErr := tempFile.Close(); closeErr != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing %s: %w", path, closeErr)
	}

	if chmodErr := os.Chmod(tempPath, info.Mode().Perm()); chmodErr != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("setting mode on %s: %w", path, chmodErr)
	}

	if renameErr := os.Rename(tempPath, path); renameErr != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("replacing %s: %w", path, renameErr)
	}
	return nil
}
