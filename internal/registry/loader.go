package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"streamd/internal/common/fsutil"
	"streamd/internal/config"
	"streamd/pkg/types"
)

// LoadDir scans a directory for manager descriptor files (*.yaml, *.yml,
// *.json, *.toml), one ManagerInfo per file, in filename order. A file that
// omits the id takes its filename without extension as id.
func LoadDir(dir string) ([]types.ManagerInfo, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var managers []types.ManagerInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, ".") || !config.IsSupported(name) {
			continue
		}
		var info types.ManagerInfo
		if err := config.DecodeFile(filepath.Join(abs, name), &info); err != nil {
			return nil, err
		}
		if info.ID == "" {
			info.ID = strings.TrimSuffix(name, filepath.Ext(name))
		}
		managers = append(managers, info)
	}
	return managers, nil
}

// Merge appends the descriptors found in dir to base. An empty dir is a no-op.
func Merge(base []types.ManagerInfo, dir string) ([]types.ManagerInfo, error) {
	if dir == "" {
		return base, nil
	}
	extra, err := LoadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("managers dir %s: %w", dir, err)
	}
	out := make([]types.ManagerInfo, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...), nil
}
