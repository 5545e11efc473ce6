package dataset

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"profit-dashboard/internal/models"
)

const cacheVersion = "v1"

type cacheEntry struct {
	Rows      []models.Row
	CreatedAt time.Time
}

// cacheFilename names the entry after the absolute source path, so relative
// and absolute spellings of one file share a cache entry.
func cacheFilename(dir, path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	name := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(path)
	return filepath.Join(dir, fmt.Sprintf("%s_%s.gob", name, cacheVersion))
}

func saveCache(dir, path string, rows []models.Row) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	file, err := os.Create(cacheFilename(dir, path))
	if err != nil {
		return err
	}
	defer file.Close()

	return gob.NewEncoder(file).Encode(cacheEntry{Rows: rows, CreatedAt: time.Now()})
}

// loadCache returns cached rows only while the source file is older than the
// cache entry.
func loadCache(dir, path string) ([]models.Row, error) {
	file, err := os.Open(cacheFilename(dir, path))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var entry cacheEntry
	if err := gob.NewDecoder(file).Decode(&entry); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.ModTime().Before(entry.CreatedAt) {
		return nil, fmt.Errorf("cache is stale")
	}
	if len(entry.Rows) == 0 {
		return nil, ErrEmptyDataset
	}
	return entry.Rows, nil
}
