// Package counters reads cumulative per-interface traffic counters from a
// /proc/net/dev style source into immutable snapshots.
package counters

import (
	"errors"
	"fmt"
	"sort"
)

// Field identifies one of the sixteen counters of an interface line.
type Field int

// Fields in source column order.
const (
	RxBytes Field = iota
	RxPackets
	RxErrors
	RxDropped
	RxFifo
	RxFrame
	RxCompressed
	RxMulticast
	TxBytes
	TxPackets
	TxErrors
	TxDropped
	TxFifo
	TxCollisions
	TxCarrier
	TxCompressed

	NumFields
)

var fieldNames = [NumFields]string{
	"rxbytes", "rxpkts", "rxerrs", "rxdrop", "rxfifo", "rxframe", "rxcompressed", "rxmulticast",
	"txbytes", "txpackets", "txerrs", "txdrop", "txfifo", "txcolls", "txcarrier", "txcompressed",
}

// Name is the short field name used in reports and for direction matching.
func (f Field) Name() string {
	if f < 0 || f >= NumFields {
		return fmt.Sprintf("field%d", int(f))
	}
	return fieldNames[f]
}

func (f Field) String() string { return f.Name() }

// Fields returns all counter fields in column order.
func Fields() []Field {
	out := make([]Field, NumFields)
	for i := range out {
		out[i] = Field(i)
	}
	return out
}

// Counters is the fixed record of one interface line.
type Counters [NumFields]uint64

// Get returns the value of a field.
func (c Counters) Get(f Field) uint64 { return c[f] }

var (
	// ErrSourceUnavailable means the counter source could not be opened or read.
	ErrSourceUnavailable = errors.New("counter source unavailable")
	// ErrMalformedRecord means a line did not have the interface record shape.
	ErrMalformedRecord = errors.New("malformed counter record")
)

// SourceUnavailableError reports a counter source that could not be read.
type SourceUnavailableError struct {
	Path string
	Err  error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrSourceUnavailable, e.Path, e.Err)
}

func (e *SourceUnavailableError) Unwrap() []error { return []error{ErrSourceUnavailable, e.Err} }

// MalformedRecordError reports a line that could not be parsed.
type MalformedRecordError struct {
	Line   int
	Text   string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("%s at line %d (%s): %q", ErrMalformedRecord, e.Line, e.Reason, e.Text)
}

func (e *MalformedRecordError) Unwrap() error { return ErrMalformedRecord }

// Snapshot is one full reading of all interface counters. It is never
// modified after construction.
type Snapshot struct {
	ifaces map[string]Counters
}

// NewSnapshot builds a snapshot from a map. The map is copied.
func NewSnapshot(values map[string]Counters) Snapshot {
	m := make(map[string]Counters, len(values))
	for k, v := range values {
		m[k] = v
	}
	return Snapshot{ifaces: m}
}

// Get returns the counters of an interface.
func (s Snapshot) Get(iface string) (Counters, bool) {
	c, ok := s.ifaces[iface]
	return c, ok
}

// Has reports whether the interface is present.
func (s Snapshot) Has(iface string) bool {
	_, ok := s.ifaces[iface]
	return ok
}

// Len is the number of interfaces in the snapshot.
func (s Snapshot) Len() int { return len(s.ifaces) }

// Interfaces returns the interface names sorted.
func (s Snapshot) Interfaces() []string {
	names := make([]string, 0, len(s.ifaces))
	for name := range s.ifaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Without returns a copy of the snapshot lacking the named interfaces.
func (s Snapshot) Without(names ...string) Snapshot {
	if len(names) == 0 {
		return s
	}
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	m := make(map[string]Counters, len(s.ifaces))
	for k, v := range s.ifaces {
		if !drop[k] {
			m[k] = v
		}
	}
	return Snapshot{ifaces: m}
}
