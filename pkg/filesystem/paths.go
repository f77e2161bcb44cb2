// Package filesystem locates config and data files for reddit-feeds.
package filesystem

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// AppName is the directory name used under the XDG base directories.
const AppName = "reddit-feeds"

// ErrDirNotFound is returned when a parent directory cannot be created.
var ErrDirNotFound = errors.New("directory not found")

// GetDefaultPath returns a file path in the executable directory
func GetDefaultPath(filename string) (string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}

	return filepath.Join(filepath.Dir(exePath), filename), nil
}

// ResolveConfigPath finds an existing file for a relative path. It looks in
// the current directory, then next to the executable, then in the XDG config
// directory. If none exists the path is returned unchanged.
func ResolveConfigPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}

	candidates := []string{}
	if exePath, err := GetDefaultPath(path); err == nil {
		candidates = append(candidates, exePath)
	}
	if xdgPath, err := xdg.SearchConfigFile(filepath.Join(AppName, path)); err == nil {
		candidates = append(candidates, xdgPath)
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return path
}

// DataFile returns the XDG data path for name, creating parent directories.
func DataFile(name string) (string, error) {
	path, err := xdg.DataFile(filepath.Join(AppName, name))
	if err != nil {
		return "", fmt.Errorf("failed to resolve data path: %w", err)
	}
	return path, nil
}

// EnsureDirectoryExists creates the directory for the given file path if it doesn't exist
func EnsureDirectoryExists(filePath string) error {
	dir := filepath.Dir(filePath)
	if dir == "." {
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrDirNotFound, dir)
		}
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	return nil
}
