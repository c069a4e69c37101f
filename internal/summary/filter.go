package summary

import (
	"regexp"
	"strconv"
)

// DefaultLowTrafficFrames hides IP conversations with at most this many frames.
const DefaultLowTrafficFrames = 25

var (
	macConversationRow = regexp.MustCompile(`^..:..:..:..:..:..    .-. ..:..:..:..:..:..          .`)
	noFilterHeader     = regexp.MustCompile(`^Filter:.No Filter.`)
	ipConversationRow  = regexp.MustCompile(`^` +
		`(\d+\.\d+\.\d+\.\d+)\s+<->\s+` +
		`(\d+\.\d+\.\d+\.\d+)\s+` +
		`(\d+)\s+(\d+)\s+` +
		`(\d+)\s+(\d+)\s+` +
		`(\d+)\s+(\d+)\s+` +
		`(\S+)\s+(\S+)\s*$`)
)

// ConversationRecord is one row of an IP conversation table.
type ConversationRecord struct {
	Source      string
	Destination string
	RxFrames    uint64
	RxBytes     uint64
	TxFrames    uint64
	TxBytes     uint64
	TotalFrames uint64
	TotalBytes  uint64
	RelStart    string
	Duration    string
}

// ParseConversation parses an IP conversation row. ok is false for any other line.
func ParseConversation(line string) (ConversationRecord, bool) {
	m := ipConversationRow.FindStringSubmatch(line)
	if m == nil {
		return ConversationRecord{}, false
	}
	var nums [6]uint64
	for i := range nums {
		v, err := strconv.ParseUint(m[3+i], 10, 64)
		if err != nil {
			return ConversationRecord{}, false
		}
		nums[i] = v
	}
	return ConversationRecord{
		Source:      m[1],
		Destination: m[2],
		RxFrames:    nums[0],
		RxBytes:     nums[1],
		TxFrames:    nums[2],
		TxBytes:     nums[3],
		TotalFrames: nums[4],
		TotalBytes:  nums[5],
		RelStart:    m[9],
		Duration:    m[10],
	}, true
}

// Filter decides which conversation table lines are noise.
type Filter struct {
	// LowTrafficFrames is inclusive: a conversation with exactly this many frames is hidden.
	LowTrafficFrames uint64
}

// DefaultFilter returns the stock filter.
func DefaultFilter() Filter {
	return Filter{LowTrafficFrames: DefaultLowTrafficFrames}
}

// Ignorable reports whether line should be left out of a summary.
func (f Filter) Ignorable(line string) bool {
	if macConversationRow.MatchString(line) {
		return true
	}
	if rec, ok := ParseConversation(line); ok && rec.TotalFrames <= f.LowTrafficFrames {
		return true
	}
	return noFilterHeader.MatchString(line)
}
