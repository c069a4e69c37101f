package collect_logs

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"EnigmaNetz/Enigma-Netmon/internal/metadata"
	"EnigmaNetz/Enigma-Netmon/internal/version"
)

// Sources lists what goes into a support bundle. Empty fields are skipped.
type Sources struct {
	// LogFile is the active log; rotated siblings next to it are included too
	LogFile string
	// CaptureDir holds capture artifacts, added under captures/
	CaptureDir string
	// ConfigFile is the configuration in use
	ConfigFile string
	// CounterSource is copied as counters.txt
	CounterSource string
	Host          metadata.Host
}

// CollectLogs creates a zip archive with logs, captures, config, counters,
// version, and system info for diagnostics. Missing sources are skipped.
// zipName is the output file name (e.g., "netmon-logs-YYYYMMDD-HHMMSS.zip").
func CollectLogs(zipName string, src Sources) error {
	zipFile, err := os.Create(zipName)
	if err != nil {
		return fmt.Errorf("failed to create zip: %w", err)
	}
	defer zipFile.Close()

	zipWriter := zip.NewWriter(zipFile)

	if src.LogFile != "" {
		for _, path := range logFiles(src.LogFile) {
			_ = addFileToZip(zipWriter, path, filepath.Join("logs", filepath.Base(path)))
		}
	}

	if src.CaptureDir != "" {
		_ = addDirToZip(zipWriter, src.CaptureDir, "captures")
	}

	if src.ConfigFile != "" {
		_ = addFileToZip(zipWriter, src.ConfigFile, filepath.Base(src.ConfigFile))
	}

	if src.CounterSource != "" {
		_ = addFileToZip(zipWriter, src.CounterSource, "counters.txt")
	}

	_ = addStringToZip(zipWriter, "version.txt", version.Version+"\n")
	_ = addStringToZip(zipWriter, "system-info.txt", getSystemInfo(src.Host))

	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("failed to finish zip: %w", err)
	}
	return nil
}

// logFiles returns the log file and its rotated backups (name-<timestamp>.ext).
func logFiles(logFile string) []string {
	ext := filepath.Ext(logFile)
	prefix := strings.TrimSuffix(logFile, ext)
	matches, _ := filepath.Glob(prefix + "-*" + ext)
	if _, err := os.Stat(logFile); err == nil {
		matches = append([]string{logFile}, matches...)
	}
	return matches
}

func addFileToZip(zipWriter *zip.Writer, filename, name string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	w, err := zipWriter.Create(filepath.ToSlash(name))
	if err != nil {
		return err
	}
	_, err = io.Copy(w, file)
	return err
}

func addStringToZip(zipWriter *zip.Writer, filename, content string) error {
	w, err := zipWriter.Create(filename)
	if err != nil {
		return err
	}
	_, err = w.Write([]byte(content))
	return err
}

func addDirToZip(zipWriter *zip.Writer, dir, prefix string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		return addFileToZip(zipWriter, path, filepath.Join(prefix, rel))
	})
}

func getSystemInfo(host metadata.Host) string {
	var b strings.Builder
	b.WriteString(host.String())
	fmt.Fprintf(&b, "go_version=%s\n", runtime.Version())
	fmt.Fprintf(&b, "num_cpu=%d\n", runtime.NumCPU())
	fmt.Fprintf(&b, "gomaxprocs=%d\n", runtime.GOMAXPROCS(0))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	fmt.Fprintf(&b, "memory=Alloc=%d TotalAlloc=%d Sys=%d NumGC=%d\n", m.Alloc, m.TotalAlloc, m.Sys, m.NumGC)

	if runtime.GOOS == "linux" || runtime.GOOS == "darwin" {
		if out, err := exec.Command("uname", "-r").Output(); err == nil {
			fmt.Fprintf(&b, "kernel=%s\n", strings.TrimSpace(string(out)))
		}
	}
	return b.String()
}
