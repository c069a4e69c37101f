package summary

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EnigmaNetz/Enigma-Netmon/internal/runner"
)

type scriptedRunner struct {
	mu      sync.Mutex
	results map[string]runner.Result
	errs    map[string]error
	calls   []string
}

// key identifies a call by program base name plus first argument.
func (r *scriptedRunner) Run(ctx context.Context, name string, args ...string) (runner.Result, error) {
	key := filepath.Base(name) + " " + args[0]
	r.mu.Lock()
	r.calls = append(r.calls, key)
	r.mu.Unlock()
	return r.results[key], r.errs[key]
}

type recordingPrinter struct {
	titles []string
	blocks [][]string
}

func (p *recordingPrinter) Block(title string, lines []string) {
	p.titles = append(p.titles, title)
	p.blocks = append(p.blocks, lines)
}

const capinfosOut = `File name:           PCAPS/tsharkout_eth0_2024-0307-140509.pcap
Number of packets:   1205
Capture duration:    4.001 seconds
`

const ethConv = `================================================================================
Ethernet Conversations
Filter:<No Filter>
                                               |       <-      | |       ->      | |     Total     |    Relative    |   Duration   |
00:11:22:33:44:55    <-> 66:77:88:99:aa:bb          12       960     3       180
================================================================================
`

const ipConv = `================================================================================
IPv4 Conversations
Filter:<No Filter>
10.0.0.1 <-> 10.0.0.2  600 60000 600 60000 1200 120000 0.000 4.000
10.0.0.1 <-> 10.0.0.3  2 120 3 180 5 300 0.100 0.200
================================================================================
`

func testOptions() Options {
	return Options{
		TsharkPath:   "/usr/sbin/tshark",
		CapinfosPath: "/usr/sbin/capinfos",
		Categories:   []string{"eth", "ip"},
		Filter:       DefaultFilter(),
	}
}

func TestSummarize_Success(t *testing.T) {
	r := &scriptedRunner{results: map[string]runner.Result{
		"capinfos -cuyxm":   {Stdout: []byte(capinfosOut)},
		"tshark -zconv,eth": {Stdout: []byte(ethConv)},
		"tshark -zconv,ip":  {Stdout: []byte(ipConv)},
	}}
	p := &recordingPrinter{}
	s := NewWithDeps(testOptions(), r, p)

	err := s.Summarize(context.Background(), "PCAPS/tsharkout_eth0_2024-0307-140509.pcap")
	require.NoError(t, err)
	assert.Equal(t, []string{"capinfos -cuyxm", "tshark -zconv,eth", "tshark -zconv,ip"}, r.calls)

	require.Len(t, p.blocks, 1)
	assert.Equal(t, "capture summary tsharkout_eth0_2024-0307-140509.pcap", p.titles[0])
	out := strings.Join(p.blocks[0], "\n")

	assert.Contains(t, out, "    Number of packets:   1205")
	assert.Contains(t, out, "10.0.0.1 <-> 10.0.0.2")
	assert.NotContains(t, out, "10.0.0.1 <-> 10.0.0.3", "low traffic conversation is hidden")
	assert.NotContains(t, out, "00:11:22:33:44:55", "mac rows are hidden")
	assert.NotContains(t, out, "No Filter")
	assert.Contains(t, out, "IPv4 Conversations")
}

func TestSummarize_PartialFailure(t *testing.T) {
	r := &scriptedRunner{
		results: map[string]runner.Result{
			"capinfos -cuyxm":   {ExitCode: 2, Stdout: []byte("File name: x\n")},
			"tshark -zconv,eth": {Stdout: []byte(ethConv)},
			"tshark -zconv,ip":  {ExitCode: -1},
		},
		errs: map[string]error{"tshark -zconv,ip": errors.New("exec: not found")},
	}
	p := &recordingPrinter{}
	s := NewWithDeps(testOptions(), r, p)

	err := s.Summarize(context.Background(), "a.pcap")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSummarizationFailed))

	var sfe *SummarizationFailedError
	require.True(t, errors.As(err, &sfe))
	assert.Equal(t, "capinfos", sfe.Step)
	assert.Equal(t, 2, sfe.ExitCode)

	// every step still ran and partial output was printed
	assert.Len(t, r.calls, 3)
	require.Len(t, p.blocks, 1)
	out := strings.Join(p.blocks[0], "\n")
	assert.Contains(t, out, "WARNING: capinfos returned non-zero status: 2")
	assert.Contains(t, out, "    File name: x")
	assert.Contains(t, out, "WARNING: tshark -zconv,ip returned non-zero status: -1")
	assert.Contains(t, out, "Ethernet Conversations")
}

func TestCapinfo_IndentsOutput(t *testing.T) {
	r := &scriptedRunner{results: map[string]runner.Result{
		"capinfos -cuyxm": {Stdout: []byte("  a  \nb\n")},
	}}
	lines, err := NewWithDeps(testOptions(), r, nil).Capinfo(context.Background(), "a.pcap")
	require.NoError(t, err)
	assert.Equal(t, []string{"    a", "    b"}, lines)
}

func TestSummarize_LocalStats(t *testing.T) {
	path := writeTestPcap(t, 30)
	r := &scriptedRunner{results: map[string]runner.Result{}}
	p := &recordingPrinter{}
	opts := testOptions()
	opts.Categories = nil
	opts.LocalStats = true

	require.NoError(t, NewWithDeps(opts, r, p).Summarize(context.Background(), path))
	out := strings.Join(p.blocks[0], "\n")
	assert.Contains(t, out, "local stats: 31 packets")
	assert.Contains(t, out, "10.1.1.1 -> 10.2.2.2")
}

func TestSummarize_LocalStatsFailure(t *testing.T) {
	r := &scriptedRunner{results: map[string]runner.Result{}}
	opts := testOptions()
	opts.Categories = nil
	opts.LocalStats = true

	err := NewWithDeps(opts, r, nil).Summarize(context.Background(), filepath.Join(t.TempDir(), "missing.pcap"))
	var sfe *SummarizationFailedError
	require.True(t, errors.As(err, &sfe))
	assert.Equal(t, "local stats", sfe.Step)
}

type hangingRunner struct {
	calls int32
}

func (r *hangingRunner) Run(ctx context.Context, name string, args ...string) (runner.Result, error) {
	atomic.AddInt32(&r.calls, 1)
	<-ctx.Done()
	return runner.Result{ExitCode: -1, TimedOut: true}, ctx.Err()
}

func TestSummarize_ProgramTimeout(t *testing.T) {
	r := &hangingRunner{}
	p := &recordingPrinter{}
	opts := testOptions()
	opts.Timeout = 30 * time.Millisecond

	start := time.Now()
	err := NewWithDeps(opts, r, p).Summarize(context.Background(), "a.pcap")
	assert.Less(t, time.Since(start), 2*time.Second)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	// each program gets its own limit, so every step still runs
	assert.Equal(t, int32(3), atomic.LoadInt32(&r.calls))
	require.Len(t, p.blocks, 1)
	assert.Contains(t, strings.Join(p.blocks[0], "\n"), "WARNING: capinfos returned non-zero status: -1")
}
