// Package report writes the operator-facing tick and capture summary output.
package report

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"EnigmaNetz/Enigma-Netmon/internal/delta"
)

// StampLayout formats report timestamps.
const StampLayout = "2006-0102-15:04:05"

var banner = strings.Repeat("=", 64)

// Printer serializes report output. Each call writes one complete block so
// output from concurrent captures never interleaves.
type Printer struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, now: time.Now}
}

// Tick prints the banner and the per-direction report of one sampling tick.
func (p *Printer) Tick(results ...delta.Result) {
	var b strings.Builder
	b.WriteString("\n" + banner + "\n")
	fmt.Fprintf(&b, "=== %s\n", p.now().Format(StampLayout))
	for _, res := range results {
		fmt.Fprintf(&b, "\n== %s\n", res.Direction)
		for _, line := range res.Report {
			b.WriteString(line.String() + "\n")
		}
		for _, r := range res.Resets {
			fmt.Fprintf(&b, "%4s %13s : %20d - %20d = reset\n", r.Interface, r.Field.Name(), r.Current, r.Previous)
		}
	}
	p.write(b.String())
}

// Block prints a titled, timestamped section.
func (p *Printer) Block(title string, lines []string) {
	var b strings.Builder
	fmt.Fprintf(&b, "\n=== %s %s\n", p.now().Format(StampLayout), title)
	for _, line := range lines {
		b.WriteString(line + "\n")
	}
	p.write(b.String())
}

func (p *Printer) write(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = io.WriteString(p.w, s)
}
