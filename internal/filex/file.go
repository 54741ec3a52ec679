// Package filex contains small filesystem helpers for staging uploaded files
// before they are pushed to object storage.
package filex

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// EnsureSubDir creates dirName under the current working directory (if it
// does not exist yet) and returns its absolute path.
func EnsureSubDir(dirName string) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getwd: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// SaveUpload writes src into dir under a random file name, preserving the
// original extension, and returns the full path of the written file.
func SaveUpload(dir string, originalName string, src io.Reader) (string, error) {
	name := uuid.New().String() + filepath.Ext(originalName)
	path := filepath.Join(dir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	if err := dst.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close %s: %w", path, err)
	}

	return path, nil
}
