package rigcache

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-rig/common"
	"github.com/Carmen-Shannon/oxy-rig/engine/model"
)

// SaveFile writes a skeleton to path, creating parent directories as needed.
// The file is written to a temporary sibling and renamed so a failed write never
// leaves a partial cache behind.
//
// Parameters:
//   - path: destination file path
//   - s: the skeleton to cache
//
// Returns:
//   - error: error if encoding or file I/O fails
func SaveFile(path string, s *model.Skeleton) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("rigcache: create dir for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("rigcache: create %s: %w", path, err)
	}
	tmpName := tmp.Name()

	n, err := Encode(tmp, s)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rigcache: write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rigcache: rename %s: %w", path, err)
	}

	common.Logger().Debug("rigcache: saved skeleton", "path", path, "bytes", n)
	return nil
}

// LoadFile reads a skeleton cached by SaveFile.
//
// Parameters:
//   - path: the cache file path
//
// Returns:
//   - *model.Skeleton: the decoded skeleton
//   - error: error if the file cannot be read or decoded
func LoadFile(path string) (*model.Skeleton, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rigcache: open %s: %w", path, err)
	}
	defer f.Close()

	s, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("rigcache: read %s: %w", path, err)
	}
	return s, nil
}
