// Package summary prints an operator summary of a capture artifact using the
// capture toolkit's info and conversation statistics programs.
package summary

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"EnigmaNetz/Enigma-Netmon/config"
	"EnigmaNetz/Enigma-Netmon/internal/logger"
	"EnigmaNetz/Enigma-Netmon/internal/runner"
)

// ErrSummarizationFailed means at least one summary program failed.
var ErrSummarizationFailed = errors.New("summarization failed")

// SummarizationFailedError reports one failed summary step.
type SummarizationFailedError struct {
	Artifact string
	Step     string
	ExitCode int
	Err      error
}

func (e *SummarizationFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s on %s: %v", ErrSummarizationFailed, e.Step, e.Artifact, e.Err)
	}
	return fmt.Sprintf("%s: %s on %s: exit status %d", ErrSummarizationFailed, e.Step, e.Artifact, e.ExitCode)
}

func (e *SummarizationFailedError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSummarizationFailed}
	}
	return []error{ErrSummarizationFailed, e.Err}
}

// Printer receives one finished summary block.
type Printer interface {
	Block(title string, lines []string)
}

// Options selects the programs and sections of a summary.
type Options struct {
	TsharkPath   string
	CapinfosPath string
	Categories   []string
	LocalStats   bool
	Filter       Filter
	// Timeout bounds each program run; 0 means only ctx bounds it
	Timeout time.Duration
}

// OptionsFromConfig builds summary options from the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		TsharkPath:   cfg.Capture.TsharkPath,
		CapinfosPath: cfg.Capture.CapinfosPath,
		Categories:   cfg.Summary.Categories,
		LocalStats:   cfg.Summary.LocalStats,
		Filter:       Filter{LowTrafficFrames: cfg.Summary.LowTrafficFrames},
		Timeout:      cfg.SummaryTimeout(),
	}
}

// Summarizer implements capture.Summarizer.
type Summarizer struct {
	opts    Options
	runner  runner.Runner
	printer Printer
	log     *logger.Logger
}

// New creates a Summarizer executing real programs.
func New(opts Options, printer Printer) *Summarizer {
	return NewWithDeps(opts, runner.Exec{}, printer)
}

// NewWithDeps is used by tests.
func NewWithDeps(opts Options, r runner.Runner, printer Printer) *Summarizer {
	return &Summarizer{opts: opts, runner: r, printer: printer, log: logger.GetLogger()}
}

// Capinfo returns the artifact info report, each line indented by four spaces.
// Output is returned even when the program fails.
func (s *Summarizer) Capinfo(ctx context.Context, artifact string) ([]string, error) {
	res, err := s.run(ctx, s.opts.CapinfosPath, "-cuyxm", artifact)

	var lines []string
	var failure error
	if err != nil || res.ExitCode != 0 {
		failure = &SummarizationFailedError{Artifact: artifact, Step: "capinfos", ExitCode: res.ExitCode, Err: err}
		lines = append(lines, fmt.Sprintf("     WARNING: capinfos returned non-zero status: %d", res.ExitCode))
		s.log.Warn("[summary] %v", failure)
	}
	for _, line := range splitLines(res.Stdout) {
		lines = append(lines, "    "+strings.TrimSpace(line))
	}
	return lines, failure
}

// Conversations returns the conversation table for category with ignorable
// lines removed and the rest trimmed.
func (s *Summarizer) Conversations(ctx context.Context, artifact, category string) ([]string, error) {
	res, err := s.run(ctx, s.opts.TsharkPath, "-zconv,"+category, "-nqr", artifact)

	var lines []string
	var failure error
	if err != nil || res.ExitCode != 0 {
		failure = &SummarizationFailedError{Artifact: artifact, Step: "conversations " + category, ExitCode: res.ExitCode, Err: err}
		lines = append(lines, fmt.Sprintf("WARNING: tshark -zconv,%s returned non-zero status: %d", category, res.ExitCode))
		s.log.Warn("[summary] %v", failure)
	}
	for _, line := range splitLines(res.Stdout) {
		if s.opts.Filter.Ignorable(line) {
			continue
		}
		lines = append(lines, strings.TrimSpace(line))
	}
	return lines, failure
}

// Summarize prints the info report, every configured conversation table and,
// when enabled, in-process packet statistics for artifact as one block. All
// sections are attempted; failures are joined into the returned error.
func (s *Summarizer) Summarize(ctx context.Context, artifact string) error {
	var errs []error
	var lines []string

	info, err := s.Capinfo(ctx, artifact)
	lines = append(lines, info...)
	if err != nil {
		errs = append(errs, err)
	}

	for _, category := range s.opts.Categories {
		conv, err := s.Conversations(ctx, artifact, category)
		lines = append(lines, conv...)
		if err != nil {
			errs = append(errs, err)
		}
	}

	if s.opts.LocalStats {
		stats, err := NewPcapParser(artifact).ProcessFile()
		if err != nil {
			failure := &SummarizationFailedError{Artifact: artifact, Step: "local stats", ExitCode: -1, Err: err}
			s.log.Warn("[summary] %v", failure)
			errs = append(errs, failure)
		} else {
			lines = append(lines, stats.Lines()...)
		}
	}

	if s.printer != nil {
		s.printer.Block("capture summary "+filepath.Base(artifact), lines)
	}
	return errors.Join(errs...)
}

// run executes one summary program under the configured time limit.
func (s *Summarizer) run(ctx context.Context, name string, args ...string) (runner.Result, error) {
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}
	return s.runner.Run(ctx, name, args...)
}

func splitLines(out []byte) []string {
	text := strings.TrimRight(string(out), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
