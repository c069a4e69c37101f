// Package delta diffs two counter snapshots and flags interfaces whose
// per-interval change crosses an anomaly threshold.
package delta

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"EnigmaNetz/Enigma-Netmon/internal/counters"
)

// Direction selects the counters considered for diffing.
type Direction string

const (
	Receive  Direction = "rx"
	Transmit Direction = "tx"
)

// Directions lists both directions in report order.
var Directions = []Direction{Receive, Transmit}

// Matches reports whether a counter field belongs to this direction
// (case-insensitive substring match on the field name).
func (d Direction) Matches(f counters.Field) bool {
	return strings.Contains(strings.ToLower(f.Name()), strings.ToLower(string(d)))
}

func (d Direction) String() string { return strings.ToUpper(string(d)) }

const (
	// DefaultThreshold is the per-field delta above which an interface is anomalous.
	DefaultThreshold uint64 = 1000000
	// DefaultReportMinimum is the smallest delta that gets a report line.
	DefaultReportMinimum uint64 = 10
)

// Options tune classification.
type Options struct {
	Threshold     uint64
	ReportMinimum uint64
}

// DefaultOptions returns the stock thresholds.
func DefaultOptions() Options {
	return Options{Threshold: DefaultThreshold, ReportMinimum: DefaultReportMinimum}
}

// ErrMissingBaseline means an interface has no counters in the previous snapshot.
var ErrMissingBaseline = errors.New("missing baseline")

// MissingBaselineError names the interface that could not be diffed.
type MissingBaselineError struct {
	Interface string
}

func (e *MissingBaselineError) Error() string {
	return fmt.Sprintf("%s for interface %s", ErrMissingBaseline, e.Interface)
}

func (e *MissingBaselineError) Unwrap() error { return ErrMissingBaseline }

// Line is one per-field delta that met the report minimum.
type Line struct {
	Interface string
	Field     counters.Field
	Current   uint64
	Previous  uint64
	Delta     uint64
}

// String renders the line in the operator report layout.
func (l Line) String() string {
	return fmt.Sprintf("%4s %13s : %20d - %20d = %d", l.Interface, l.Field.Name(), l.Current, l.Previous, l.Delta)
}

// Reset records a counter that went backwards between samples.
type Reset struct {
	Interface string
	Field     counters.Field
	Current   uint64
	Previous  uint64
}

// Result is the outcome of one classification.
type Result struct {
	Direction Direction
	Report    []Line
	Anomalous []string
	Resets    []Reset
}

// IsAnomalous reports whether iface was flagged.
func (r Result) IsAnomalous(iface string) bool {
	i := sort.SearchStrings(r.Anomalous, iface)
	return i < len(r.Anomalous) && r.Anomalous[i] == iface
}

// Classify diffs curr against prev for one direction. Interfaces are
// visited in name order. An interface absent from prev is left out of the
// result and reported through a *MissingBaselineError; all such errors are
// joined into the returned error while the remaining interfaces are still
// classified. A counter that decreased is treated as a reset: it is listed
// in Resets and never counts towards an anomaly.
func Classify(prev, curr counters.Snapshot, dir Direction, opts Options) (Result, error) {
	res := Result{Direction: dir}
	var errs []error

	var fields []counters.Field
	for _, f := range counters.Fields() {
		if dir.Matches(f) {
			fields = append(fields, f)
		}
	}

	for _, iface := range curr.Interfaces() {
		before, ok := prev.Get(iface)
		if !ok {
			errs = append(errs, &MissingBaselineError{Interface: iface})
			continue
		}
		after, _ := curr.Get(iface)

		anomalous := false
		for _, f := range fields {
			c, p := after.Get(f), before.Get(f)
			if c < p {
				res.Resets = append(res.Resets, Reset{Interface: iface, Field: f, Current: c, Previous: p})
				continue
			}
			d := c - p
			if d >= opts.ReportMinimum {
				res.Report = append(res.Report, Line{Interface: iface, Field: f, Current: c, Previous: p, Delta: d})
			}
			if d > opts.Threshold {
				anomalous = true
			}
		}
		if anomalous {
			res.Anomalous = append(res.Anomalous, iface)
		}
	}

	return res, errors.Join(errs...)
}

// Union merges anomaly sets into one sorted, de-duplicated list.
func Union(sets ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, set := range sets {
		for _, iface := range set {
			if !seen[iface] {
				seen[iface] = true
				out = append(out, iface)
			}
		}
	}
	sort.Strings(out)
	return out
}

// MissingInterfaces extracts the interface names from an error returned by Classify.
func MissingInterfaces(err error) []string {
	if err == nil {
		return nil
	}
	var out []string
	var walk func(error)
	walk = func(e error) {
		if mb, ok := e.(*MissingBaselineError); ok {
			out = append(out, mb.Interface)
			return
		}
		if j, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range j.Unwrap() {
				walk(inner)
			}
		}
	}
	walk(err)
	return out
}
