package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome expands a leading '~' to the user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	// handle cases like ~/.config/streamd
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}

// RegularFiles returns the paths that name existing regular files, after
// '~' expansion, preserving order. Missing paths are skipped; any other stat
// failure is returned.
func RegularFiles(paths ...string) ([]string, error) {
	var out []string
	for _, p := range paths {
		ep, err := ExpandHome(p)
		if err != nil {
			return nil, err
		}
		fi, err := os.Stat(ep)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if fi.Mode().IsRegular() {
			out = append(out, ep)
		}
	}
	return out, nil
}
