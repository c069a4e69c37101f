package summary

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// topTalkers is how many IPv4 conversations are listed in the local stats.
const topTalkers = 5

// PacketStats holds statistics about a capture artifact
type PacketStats struct {
	TotalPackets   uint64
	TotalBytes     uint64 // original length on the wire
	CapturedBytes  uint64 // bytes stored after snaplen truncation
	ProtocolCounts map[string]uint64
	// Talkers counts packets per IPv4 "src -> dst" pair
	Talkers map[string]uint64
}

// Lines renders the stats as indented summary lines.
func (s PacketStats) Lines() []string {
	lines := []string{fmt.Sprintf("    local stats: %d packets, %d bytes (%d captured)", s.TotalPackets, s.TotalBytes, s.CapturedBytes)}

	protos := make([]string, 0, len(s.ProtocolCounts))
	for p := range s.ProtocolCounts {
		protos = append(protos, p)
	}
	sort.Strings(protos)
	for _, p := range protos {
		lines = append(lines, fmt.Sprintf("    %-16s %d", p, s.ProtocolCounts[p]))
	}

	for _, pair := range s.TopTalkers(topTalkers) {
		lines = append(lines, fmt.Sprintf("    %-40s %d", pair, s.Talkers[pair]))
	}
	return lines
}

// TopTalkers returns up to n IPv4 pairs with the most packets, busiest first.
func (s PacketStats) TopTalkers(n int) []string {
	pairs := make([]string, 0, len(s.Talkers))
	for p := range s.Talkers {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		a, b := s.Talkers[pairs[i]], s.Talkers[pairs[j]]
		if a != b {
			return a > b
		}
		return pairs[i] < pairs[j]
	})
	if len(pairs) > n {
		pairs = pairs[:n]
	}
	return pairs
}

// PcapParser computes packet statistics of a capture artifact in process
type PcapParser struct {
	filePath string
}

// NewPcapParser creates a new PcapParser instance
func NewPcapParser(filePath string) *PcapParser {
	return &PcapParser{
		filePath: filePath,
	}
}

// ProcessFile reads a pcap or pcapng file and returns packet statistics.
// An empty artifact (capture saw no traffic) yields zero stats.
func (p *PcapParser) ProcessFile() (*PacketStats, error) {
	handle, err := os.Open(p.filePath)
	if err != nil {
		return nil, fmt.Errorf("error opening pcap file: %w", err)
	}
	defer handle.Close()

	stats := &PacketStats{
		ProtocolCounts: make(map[string]uint64),
		Talkers:        make(map[string]uint64),
	}

	if info, err := handle.Stat(); err == nil && info.Size() == 0 {
		return stats, nil
	}

	// Try pcapng format first
	var packetSource *gopacket.PacketSource
	ngReader, err := pcapgo.NewNgReader(handle, pcapgo.DefaultNgReaderOptions)
	if err == nil {
		packetSource = gopacket.NewPacketSource(ngReader, ngReader.LinkType())
	} else {
		if _, err := handle.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("error resetting file position: %w", err)
		}
		reader, err := pcapgo.NewReader(handle)
		if err != nil {
			return nil, fmt.Errorf("error creating pcap reader: %w", err)
		}
		packetSource = gopacket.NewPacketSource(reader, reader.LinkType())
	}

	for packet := range packetSource.Packets() {
		stats.TotalPackets++
		stats.TotalBytes += uint64(packet.Metadata().Length)
		stats.CapturedBytes += uint64(len(packet.Data()))

		for _, layer := range packet.Layers() {
			stats.ProtocolCounts[layer.LayerType().String()]++
		}
		if ip, ok := packet.Layer(layers.LayerTypeIPv4).(*layers.IPv4); ok {
			stats.Talkers[ip.SrcIP.String()+" -> "+ip.DstIP.String()]++
		}
	}

	return stats, nil
}
