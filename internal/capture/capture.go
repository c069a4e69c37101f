// Package capture runs bounded, elevated packet captures on an interface and
// hands the resulting artifact to a summarizer.
package capture

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"EnigmaNetz/Enigma-Netmon/internal/logger"
	"EnigmaNetz/Enigma-Netmon/internal/runner"
)

// Summarizer post-processes a finished capture artifact.
type Summarizer interface {
	Summarize(ctx context.Context, artifact string) error
}

// Orchestrator runs capture sessions. It is safe for concurrent use; at most
// one capture per interface is in flight at any time.
type Orchestrator struct {
	opts       Options
	runner     runner.Runner
	summarizer Summarizer
	log        *logger.Logger
	now        func() time.Time

	mu       sync.Mutex
	inFlight map[string]*Job
}

// NewOrchestrator creates an Orchestrator executing real programs.
// summarizer may be nil.
func NewOrchestrator(opts Options, summarizer Summarizer) *Orchestrator {
	return NewOrchestratorWithDeps(opts, runner.Exec{}, summarizer, time.Now)
}

// NewOrchestratorWithDeps is used by tests.
func NewOrchestratorWithDeps(opts Options, r runner.Runner, summarizer Summarizer, now func() time.Time) *Orchestrator {
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		opts:       opts,
		runner:     r,
		summarizer: summarizer,
		log:        logger.GetLogger(),
		now:        now,
		inFlight:   make(map[string]*Job),
	}
}

// InFlight returns the interfaces with a running capture.
func (o *Orchestrator) InFlight() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, 0, len(o.inFlight))
	for iface := range o.inFlight {
		out = append(out, iface)
	}
	return out
}

func (o *Orchestrator) acquire(job *Job) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.inFlight[job.Interface]; busy {
		return false
	}
	o.inFlight[job.Interface] = job
	return true
}

func (o *Orchestrator) release(iface string) {
	o.mu.Lock()
	delete(o.inFlight, iface)
	o.mu.Unlock()
}

// Capture records up to duration of traffic on iface into a new artifact and
// then summarizes it. The interface slot is held only while the capture
// program runs. A capture that exits non-zero, times out, or is canceled
// returns a *CaptureFailedError and is not summarized. Summary failures are
// logged and reported in Result.SummaryErr only.
func (o *Orchestrator) Capture(ctx context.Context, iface string, duration time.Duration) (Result, error) {
	if err := ValidateInterfaceName(iface); err != nil {
		return Result{}, err
	}
	if duration <= 0 {
		return Result{}, fmt.Errorf("capture duration must be positive, got %v", duration)
	}

	job := &Job{
		ID:               uuid.New().String(),
		Interface:        iface,
		Started:          o.now(),
		Duration:         duration,
		MaxPackets:       o.opts.MaxPackets,
		MaxFileSizeBytes: o.opts.MaxFileSizeBytes,
	}
	if !o.acquire(job) {
		return Result{}, fmt.Errorf("%w: %s", ErrCaptureInFlight, iface)
	}
	held := true
	defer func() {
		if held {
			o.release(iface)
		}
	}()

	if err := os.MkdirAll(o.opts.OutputDir, 0755); err != nil {
		return Result{Job: *job}, fmt.Errorf("failed to create output directory: %w", err)
	}
	job.Artifact = ArtifactPath(o.opts.OutputDir, iface, job.Started)
	if err := precreateArtifact(job.Artifact); err != nil {
		return Result{Job: *job}, err
	}

	name, args := o.command(job)
	o.log.Info("[capture] job %s: capturing on %s for %v into %s", job.ID, iface, duration, job.Artifact)
	o.log.Debug("[capture] running %s %v", name, args)

	runCtx, cancel := context.WithTimeout(ctx, duration+o.opts.Grace)
	defer cancel()
	res, err := o.runner.Run(runCtx, name, args...)
	cancel()

	// the interface is free for a new capture while this artifact is summarized
	o.release(iface)
	held = false

	result := Result{Job: *job, Finished: o.now()}
	if info, statErr := os.Stat(job.Artifact); statErr == nil {
		result.ArtifactSize = info.Size()
	}

	if err != nil || res.ExitCode != 0 {
		failure := &CaptureFailedError{
			Interface: iface,
			Artifact:  job.Artifact,
			ExitCode:  res.ExitCode,
			TimedOut:  res.TimedOut || errors.Is(err, context.DeadlineExceeded),
			Stderr:    strings.TrimSpace(string(res.Stderr)),
			Err:       err,
		}
		if failure.TimedOut {
			failure.ExitCode = -1
		}
		o.log.Warn("[capture] job %s: %v", job.ID, failure)
		if failure.Stderr != "" {
			o.log.Debug("[capture] job %s stderr: %s", job.ID, failure.Stderr)
		}
		return result, failure
	}

	o.log.Info("[capture] job %s: completed, artifact size %d bytes", job.ID, result.ArtifactSize)

	if o.summarizer != nil {
		if err := o.summarizer.Summarize(ctx, job.Artifact); err != nil {
			o.log.Warn("[capture] job %s: summary incomplete: %v", job.ID, err)
			result.SummaryErr = err
		}
	}
	return result, nil
}

// command builds the capture program invocation for job.
func (o *Orchestrator) command(job *Job) (string, []string) {
	seconds := int(math.Ceil(job.Duration.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	args := []string{
		"-qn",
		"-i" + job.Interface,
	}
	if job.MaxPackets > 0 {
		args = append(args, "-c"+strconv.Itoa(job.MaxPackets))
	}
	args = append(args, "-aduration:"+strconv.Itoa(seconds))
	if job.MaxFileSizeBytes > 0 {
		kb := (job.MaxFileSizeBytes + 1023) / 1024
		args = append(args, "-afilesize:"+strconv.FormatInt(kb, 10))
	}
	args = append(args, "-w"+job.Artifact)

	if o.opts.UseSudo {
		return o.opts.SudoPath, append([]string{o.opts.TsharkPath}, args...)
	}
	return o.opts.TsharkPath, args
}
