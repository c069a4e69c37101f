package collect_logs

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EnigmaNetz/Enigma-Netmon/internal/metadata"
)

func readZip(t *testing.T, path string) map[string]string {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	files := map[string]string{}
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		files[f.Name] = string(data)
	}
	return files
}

func TestCollectLogs_CreatesZipWithExpectedFiles(t *testing.T) {
	dir := t.TempDir()

	logDir := filepath.Join(dir, "logs")
	require.NoError(t, os.MkdirAll(logDir, 0755))
	logFile := filepath.Join(logDir, "netmon.log")
	require.NoError(t, os.WriteFile(logFile, []byte("logdata"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(logDir, "netmon-2024-03-07T14-05-09.000.log"), []byte("old"), 0644))

	capDir := filepath.Join(dir, "PCAPS")
	require.NoError(t, os.MkdirAll(capDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(capDir, "tsharkout_eth0_2024-0307-140509.pcap"), []byte("pcapdata"), 0644))

	cfgFile := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(cfgFile, []byte(`{"monitor": {}}`), 0644))

	counterFile := filepath.Join(dir, "dev")
	require.NoError(t, os.WriteFile(counterFile, []byte("eth0: 1 2 3 4 5 6 7 8 9 10 11 12 13 14 15 16\n"), 0644))

	zipName := filepath.Join(dir, "bundle.zip")
	err := CollectLogs(zipName, Sources{
		LogFile:       logFile,
		CaptureDir:    capDir,
		ConfigFile:    cfgFile,
		CounterSource: counterFile,
		Host:          metadata.Host{Hostname: "box", SessionID: "abc"},
	})
	require.NoError(t, err)

	files := readZip(t, zipName)
	assert.Equal(t, "logdata", files["logs/netmon.log"])
	assert.Equal(t, "old", files["logs/netmon-2024-03-07T14-05-09.000.log"])
	assert.Equal(t, "pcapdata", files["captures/tsharkout_eth0_2024-0307-140509.pcap"])
	assert.Contains(t, files["config.json"], "monitor")
	assert.True(t, strings.HasPrefix(files["counters.txt"], "eth0:"))
	assert.NotEmpty(t, files["version.txt"])
	assert.Contains(t, files["system-info.txt"], "hostname=box")
	assert.Contains(t, files["system-info.txt"], "go_version=")
}

func TestCollectLogs_MissingSourcesAreHandled(t *testing.T) {
	dir := t.TempDir()
	zipName := filepath.Join(dir, "bundle.zip")

	err := CollectLogs(zipName, Sources{
		LogFile:    filepath.Join(dir, "nope.log"),
		CaptureDir: filepath.Join(dir, "nope"),
		ConfigFile: filepath.Join(dir, "nope.json"),
	})
	require.NoError(t, err)

	files := readZip(t, zipName)
	assert.Len(t, files, 2)
	assert.Contains(t, files, "version.txt")
	assert.Contains(t, files, "system-info.txt")
}

func TestCollectLogs_BadDestination(t *testing.T) {
	err := CollectLogs(filepath.Join(t.TempDir(), "missing", "bundle.zip"), Sources{})
	assert.Error(t, err)
}
