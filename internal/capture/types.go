package capture

import (
	"errors"
	"fmt"
	"time"

	"EnigmaNetz/Enigma-Netmon/config"
)

// Options defines the bounds and programs used for every capture session
type Options struct {
	// OutputDir is the directory where capture artifacts are written
	OutputDir string

	// MaxPackets stops the capture after this many packets
	MaxPackets int

	// MaxFileSizeBytes stops the capture once the artifact reaches this size.
	// The capture program takes kilobytes; the value is rounded up.
	MaxFileSizeBytes int64

	// Grace is added to the requested duration to form the hard timeout
	Grace time.Duration

	// UseSudo prefixes the capture program with SudoPath
	UseSudo  bool
	SudoPath string

	// TsharkPath is the capture program
	TsharkPath string
}

// OptionsFromConfig builds capture options from the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		OutputDir:        cfg.Capture.OutputDir,
		MaxPackets:       cfg.Capture.MaxPackets,
		MaxFileSizeBytes: cfg.Capture.MaxFileSizeBytes,
		Grace:            cfg.CaptureGrace(),
		UseSudo:          cfg.Capture.UseSudo,
		SudoPath:         cfg.Capture.SudoPath,
		TsharkPath:       cfg.Capture.TsharkPath,
	}
}

// Job describes one capture session
type Job struct {
	ID               string
	Interface        string
	Started          time.Time
	Duration         time.Duration
	MaxPackets       int
	MaxFileSizeBytes int64
	Artifact         string
}

// Result contains information about a completed capture
type Result struct {
	Job Job

	// Finished is when the capture program exited
	Finished time.Time

	// ArtifactSize is the size of the artifact after the capture, in bytes
	ArtifactSize int64

	// SummaryErr is set when the summary of a successful capture failed
	SummaryErr error
}

var (
	// ErrCaptureFailed means the capture program failed or was killed.
	ErrCaptureFailed = errors.New("capture failed")
	// ErrCaptureInFlight means a capture for the same interface is still running.
	ErrCaptureInFlight = errors.New("capture already in flight")
	// ErrInvalidInterface means the interface name is unsafe to pass to the capture program.
	ErrInvalidInterface = errors.New("invalid interface name")
)

// CaptureFailedError reports a capture that did not complete normally.
type CaptureFailedError struct {
	Interface string
	Artifact  string
	// ExitCode of the capture program, -1 when it did not exit on its own.
	ExitCode int
	TimedOut bool
	Stderr   string
	Err      error
}

func (e *CaptureFailedError) Error() string {
	switch {
	case e.TimedOut:
		return fmt.Sprintf("%s on %s: timed out", ErrCaptureFailed, e.Interface)
	case e.Err != nil:
		return fmt.Sprintf("%s on %s: %v", ErrCaptureFailed, e.Interface, e.Err)
	default:
		return fmt.Sprintf("%s on %s: exit status %d", ErrCaptureFailed, e.Interface, e.ExitCode)
	}
}

func (e *CaptureFailedError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrCaptureFailed}
	}
	return []error{ErrCaptureFailed, e.Err}
}
