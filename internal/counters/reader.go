package counters

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"EnigmaNetz/Enigma-Netmon/internal/logger"
)

// DefaultSource is the Linux per-interface counter file.
const DefaultSource = "/proc/net/dev"

// RecordKind tags a parsed source line.
type RecordKind int

const (
	// KindInterface is a well-formed interface counter line.
	KindInterface RecordKind = iota
	// KindHeader is a column header or blank line.
	KindHeader
	// KindMalformed is a line that looked like a record but did not parse.
	KindMalformed
)

// Record is the parse result of one source line.
type Record struct {
	Kind      RecordKind
	Interface string
	Counters  Counters
	Err       *MalformedRecordError
}

// ParseLine parses one source line. lineNo is only used in error reports.
// Lines without a colon are headers; a line with a colon must carry an
// interface name followed by exactly sixteen unsigned integers.
func ParseLine(lineNo int, line string) Record {
	text := strings.TrimSpace(line)
	if text == "" {
		return Record{Kind: KindHeader}
	}
	name, rest, found := strings.Cut(text, ":")
	if !found {
		return Record{Kind: KindHeader}
	}

	malformed := func(reason string) Record {
		return Record{Kind: KindMalformed, Err: &MalformedRecordError{Line: lineNo, Text: text, Reason: reason}}
	}

	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, " \t|") {
		return malformed("bad interface name")
	}

	cols := strings.Fields(rest)
	if len(cols) != int(NumFields) {
		return malformed("expected 16 counters, got " + strconv.Itoa(len(cols)))
	}

	var c Counters
	for i, col := range cols {
		v, err := strconv.ParseUint(col, 10, 64)
		if err != nil {
			return malformed("column " + Field(i).Name() + " is not an unsigned integer")
		}
		c[i] = v
	}
	return Record{Kind: KindInterface, Interface: name, Counters: c}
}

// Parse builds a snapshot from a counter source. Malformed lines are skipped
// and returned so the caller can report them; err is only set when the
// stream itself fails.
func Parse(r io.Reader) (Snapshot, []*MalformedRecordError, error) {
	ifaces := make(map[string]Counters)
	var malformed []*MalformedRecordError

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		rec := ParseLine(lineNo, scanner.Text())
		switch rec.Kind {
		case KindInterface:
			ifaces[rec.Interface] = rec.Counters
		case KindMalformed:
			malformed = append(malformed, rec.Err)
		}
	}
	if err := scanner.Err(); err != nil {
		return Snapshot{}, malformed, err
	}
	return Snapshot{ifaces: ifaces}, malformed, nil
}

// Reader reads snapshots from a counter file.
type Reader struct {
	path string
	log  *logger.Logger
}

// NewReader creates a Reader for path. An empty path selects DefaultSource.
func NewReader(path string) *Reader {
	if path == "" {
		path = DefaultSource
	}
	return &Reader{path: path, log: logger.GetLogger()}
}

// Path returns the counter source path.
func (r *Reader) Path() string { return r.path }

// Read returns the current snapshot. A source that cannot be opened or read
// yields a *SourceUnavailableError; malformed lines are logged and skipped.
func (r *Reader) Read() (Snapshot, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return Snapshot{}, &SourceUnavailableError{Path: r.path, Err: err}
	}
	defer f.Close()

	snap, malformed, err := Parse(f)
	if err != nil {
		return Snapshot{}, &SourceUnavailableError{Path: r.path, Err: err}
	}
	for _, m := range malformed {
		r.log.Warn("[counters] skipping record: %v", m)
	}
	return snap, nil
}
