package capture

import (
	"os"
	"path/filepath"
	"time"
)

// Prune deletes capture artifacts in dir older than retentionDays and
// returns the removed paths. retentionDays <= 0 keeps everything. Files
// that are not capture artifacts are never touched.
func Prune(dir string, retentionDays int, now time.Time) ([]string, error) {
	if dir == "" || retentionDays <= 0 {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	cutoff := now.AddDate(0, 0, -retentionDays)
	var removed []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, _, err := ParseArtifactPath(entry.Name()); err != nil {
			continue
		}
		fullPath := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(fullPath); err == nil {
			removed = append(removed, fullPath)
		}
	}
	return removed, nil
}
