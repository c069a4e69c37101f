package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// ArtifactPrefix starts every capture artifact file name
	ArtifactPrefix = "tsharkout_"
	// ArtifactExt is the capture artifact extension
	ArtifactExt = ".pcap"

	artifactTimeLayout = "2006-0102-150405"
)

// ArtifactPath returns <dir>/tsharkout_<iface>_<YYYY-MMDD-HHMMSS>.pcap for a
// capture started at t (local time, second resolution).
func ArtifactPath(dir, iface string, t time.Time) string {
	name := ArtifactPrefix + iface + "_" + t.Local().Format(artifactTimeLayout) + ArtifactExt
	return filepath.Join(dir, name)
}

// ParseArtifactPath recovers the interface and creation time from an
// artifact path produced by ArtifactPath.
func ParseArtifactPath(path string) (string, time.Time, error) {
	base := filepath.Base(path)
	if !strings.HasPrefix(base, ArtifactPrefix) || !strings.HasSuffix(base, ArtifactExt) {
		return "", time.Time{}, fmt.Errorf("not a capture artifact: %s", base)
	}
	rest := strings.TrimSuffix(strings.TrimPrefix(base, ArtifactPrefix), ArtifactExt)

	// the timestamp has no underscore, so the last one separates it from the interface
	i := strings.LastIndex(rest, "_")
	if i <= 0 {
		return "", time.Time{}, fmt.Errorf("not a capture artifact: %s", base)
	}
	iface, stamp := rest[:i], rest[i+1:]
	t, err := time.ParseInLocation(artifactTimeLayout, stamp, time.Local)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("bad artifact timestamp in %s: %w", base, err)
	}
	return iface, t, nil
}

// precreateArtifact creates the empty artifact so it is owned by the invoking
// user rather than by the elevated capture program.
func precreateArtifact(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create capture artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to create capture artifact: %w", err)
	}
	return chownToInvoker(path)
}
