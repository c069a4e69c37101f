// Package monitor runs the sampling loop: read counters, classify deltas,
// report, and dispatch captures for anomalous interfaces.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"EnigmaNetz/Enigma-Netmon/config"
	"EnigmaNetz/Enigma-Netmon/internal/capture"
	"EnigmaNetz/Enigma-Netmon/internal/counters"
	"EnigmaNetz/Enigma-Netmon/internal/delta"
	"EnigmaNetz/Enigma-Netmon/internal/logger"
	"EnigmaNetz/Enigma-Netmon/internal/metrics"
)

// ErrTooManyReadFailures is returned by Run when the counter source keeps failing.
var ErrTooManyReadFailures = errors.New("counter source failed too many times in a row")

// CounterSource produces counter snapshots.
type CounterSource interface {
	Read() (counters.Snapshot, error)
}

// Capturer runs one capture session.
type Capturer interface {
	Capture(ctx context.Context, iface string, duration time.Duration) (capture.Result, error)
}

// Reporter prints the per-tick report and out-of-band blocks.
type Reporter interface {
	Tick(results ...delta.Result)
	Block(title string, lines []string)
}

// State of the loop.
type State int

const (
	// Priming waits for the first successful reading.
	Priming State = iota
	// Steady classifies every reading against the previous one.
	Steady
)

func (s State) String() string {
	if s == Steady {
		return "steady"
	}
	return "priming"
}

// Options configure the loop.
type Options struct {
	Interval                   time.Duration
	CaptureDuration            time.Duration
	Classify                   delta.Options
	MaxConsecutiveReadFailures int
	ExcludeInterfaces          []string
	// OutputDir and RetentionDays drive artifact pruning; RetentionDays 0 disables it.
	OutputDir     string
	RetentionDays int
}

// OptionsFromConfig builds loop options from the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Interval:        cfg.Interval(),
		CaptureDuration: cfg.CaptureDuration(),
		Classify: delta.Options{
			Threshold:     cfg.Monitor.Threshold,
			ReportMinimum: cfg.Monitor.ReportMinimum,
		},
		MaxConsecutiveReadFailures: cfg.Monitor.MaxConsecutiveReadFailures,
		ExcludeInterfaces:          cfg.Monitor.ExcludeInterfaces,
		OutputDir:                  cfg.Capture.OutputDir,
		RetentionDays:              cfg.Capture.RetentionDays,
	}
}

// Monitor owns the previous snapshot and the in-flight capture goroutines.
// Tick and Run must not be called concurrently.
type Monitor struct {
	opts     Options
	source   CounterSource
	capturer Capturer
	reporter Reporter
	log      *logger.Logger
	now      func() time.Time

	state    State
	prev     counters.Snapshot
	failures int

	wg sync.WaitGroup
}

// New creates a Monitor in the Priming state.
func New(opts Options, source CounterSource, capturer Capturer, reporter Reporter) *Monitor {
	return &Monitor{
		opts:     opts,
		source:   source,
		capturer: capturer,
		reporter: reporter,
		log:      logger.GetLogger(),
		now:      time.Now,
	}
}

// State returns the current loop state.
func (m *Monitor) State() State { return m.state }

// Wait blocks until every dispatched capture has returned.
func (m *Monitor) Wait() { m.wg.Wait() }

// Tick performs one sampling step. Captures are dispatched on ctx and run in
// the background. The only error returned is ErrTooManyReadFailures.
func (m *Monitor) Tick(ctx context.Context) error {
	snap, err := m.source.Read()
	if err != nil {
		m.failures++
		metrics.ReadFailuresTotal.Inc()
		m.log.Warn("[monitor] counter read failed (%d in a row), keeping previous reading: %v", m.failures, err)
		if limit := m.opts.MaxConsecutiveReadFailures; limit > 0 && m.failures >= limit {
			return fmt.Errorf("%w: %d consecutive failures, last: %v", ErrTooManyReadFailures, m.failures, err)
		}
		return nil
	}
	m.failures = 0
	snap = snap.Without(m.opts.ExcludeInterfaces...)

	if m.state == Priming {
		m.prev = snap
		m.state = Steady
		m.log.Info("[monitor] primed with %d interfaces", snap.Len())
		m.prune()
		return nil
	}

	results := make([]delta.Result, 0, len(delta.Directions))
	var missingErr error
	for _, dir := range delta.Directions {
		res, err := delta.Classify(m.prev, snap, dir, m.opts.Classify)
		if err != nil {
			missingErr = err
		}
		results = append(results, res)
	}
	for _, iface := range delta.MissingInterfaces(missingErr) {
		metrics.MissingBaselinesTotal.WithLabelValues(iface).Inc()
		m.log.Warn("[monitor] no previous reading for %s, skipping it this tick", iface)
	}

	m.reporter.Tick(results...)
	m.record(results)

	var sets [][]string
	for _, res := range results {
		sets = append(sets, res.Anomalous)
	}
	for _, iface := range delta.Union(sets...) {
		m.dispatch(ctx, iface)
	}

	m.prev = snap
	m.prune()
	return nil
}

func (m *Monitor) record(results []delta.Result) {
	metrics.TicksTotal.Inc()
	for _, res := range results {
		for _, line := range res.Report {
			metrics.IntervalDelta.WithLabelValues(line.Interface, line.Field.Name()).Set(float64(line.Delta))
		}
		for _, r := range res.Resets {
			metrics.CounterResetsTotal.WithLabelValues(r.Interface, r.Field.Name()).Inc()
			m.log.Info("[monitor] counter %s on %s went from %d to %d, treating as reset", r.Field, r.Interface, r.Previous, r.Current)
		}
		for _, iface := range res.Anomalous {
			metrics.AnomaliesTotal.WithLabelValues(iface, string(res.Direction)).Inc()
		}
	}
}

// dispatch starts a capture goroutine for iface.
func (m *Monitor) dispatch(ctx context.Context, iface string) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		metrics.CapturesInFlight.Inc()
		defer metrics.CapturesInFlight.Dec()

		start := time.Now()
		res, err := m.capturer.Capture(ctx, iface, m.opts.CaptureDuration)
		var failed *capture.CaptureFailedError
		switch {
		case err == nil:
			metrics.CapturesTotal.WithLabelValues(iface, metrics.OutcomeSuccess).Inc()
			metrics.CaptureDurationSeconds.Observe(time.Since(start).Seconds())
			m.log.Info("[monitor] capture on %s saved to %s", iface, res.Job.Artifact)
		case errors.Is(err, capture.ErrCaptureInFlight):
			metrics.CapturesTotal.WithLabelValues(iface, metrics.OutcomeSuppressed).Inc()
			m.log.Info("[monitor] capture on %s still running, not starting another", iface)
		case errors.As(err, &failed) && failed.TimedOut:
			metrics.CapturesTotal.WithLabelValues(iface, metrics.OutcomeTimeout).Inc()
			m.log.Warn("[monitor] capture on %s timed out: %v", iface, err)
			m.reportFailure(iface, failed)
		default:
			metrics.CapturesTotal.WithLabelValues(iface, metrics.OutcomeFailed).Inc()
			m.log.Warn("[monitor] capture on %s failed: %v", iface, err)
			if failed != nil && !errors.Is(err, context.Canceled) {
				m.reportFailure(iface, failed)
			}
		}
	}()
}

// reportFailure puts a failed capture into the operator report.
func (m *Monitor) reportFailure(iface string, failed *capture.CaptureFailedError) {
	var lines []string
	if failed.TimedOut {
		lines = append(lines, fmt.Sprintf("WARNING: tshark on %s timed out and was stopped", iface))
	} else {
		lines = append(lines, fmt.Sprintf("WARNING: tshark returned non-zero status: %d", failed.ExitCode))
	}
	if failed.Stderr != "" {
		lines = append(lines, failed.Stderr)
	}
	m.reporter.Block("capture "+iface+" failed", lines)
}

func (m *Monitor) prune() {
	removed, err := capture.Prune(m.opts.OutputDir, m.opts.RetentionDays, m.now())
	if err != nil {
		m.log.Warn("[monitor] artifact cleanup failed: %v", err)
		return
	}
	for _, path := range removed {
		m.log.Info("[monitor] deleted expired artifact %s", path)
	}
}

// Run samples on a fixed cadence until ctx is canceled, SIGINT/SIGTERM is
// received, or the counter source fails MaxConsecutiveReadFailures times in a
// row. On the way out in-flight captures are canceled and awaited.
// If disableSignals is true, signal handling is skipped (for tests).
func (m *Monitor) Run(ctx context.Context, disableSignals ...bool) error {
	if m.opts.Interval <= 0 {
		return fmt.Errorf("sampling interval must be positive, got %v", m.opts.Interval)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		m.log.Info("[monitor] waiting for in-flight captures to finish...")
		m.wg.Wait()
		m.log.Info("[monitor] shutdown complete")
	}()

	var sigCh chan os.Signal
	if len(disableSignals) == 0 || !disableSignals[0] {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
	}

	m.log.Info("[monitor] sampling every %v, threshold %d", m.opts.Interval, m.opts.Classify.Threshold)

	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	for {
		if err := m.Tick(runCtx); err != nil {
			return err
		}
		select {
		case <-runCtx.Done():
			m.log.Info("[monitor] context canceled, shutting down")
			return nil
		case sig := <-sigCh:
			m.log.Info("[monitor] received signal %v, shutting down", sig)
			return nil
		case <-ticker.C:
		}
	}
}
