package summary

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestPcap writes n UDP packets 10.1.1.1 -> 10.2.2.2 and one 10.3.3.3 -> 10.2.2.2.
func writeTestPcap(t *testing.T, n int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tsharkout_eth0_2024-0307-140509.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65535, layers.LinkTypeEthernet))

	write := func(src string) {
		eth := &layers.Ethernet{
			SrcMAC:       net.HardwareAddr{0, 1, 2, 3, 4, 5},
			DstMAC:       net.HardwareAddr{6, 7, 8, 9, 10, 11},
			EthernetType: layers.EthernetTypeIPv4,
		}
		ip := &layers.IPv4{
			Version:  4,
			TTL:      64,
			Protocol: layers.IPProtocolUDP,
			SrcIP:    net.ParseIP(src).To4(),
			DstIP:    net.ParseIP("10.2.2.2").To4(),
		}
		udp := &layers.UDP{SrcPort: 5353, DstPort: 53}
		require.NoError(t, udp.SetNetworkLayerForChecksum(ip))

		buf := gopacket.NewSerializeBuffer()
		opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
		require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload([]byte("netmon"))))
		data := buf.Bytes()
		ci := gopacket.CaptureInfo{Timestamp: time.Unix(1700000000, 0), CaptureLength: len(data), Length: len(data)}
		require.NoError(t, w.WritePacket(ci, data))
	}
	for i := 0; i < n; i++ {
		write("10.1.1.1")
	}
	if n > 0 {
		write("10.3.3.3")
	}
	return path
}

func TestPcapParser_ProcessFile(t *testing.T) {
	path := writeTestPcap(t, 30)

	stats, err := NewPcapParser(path).ProcessFile()
	require.NoError(t, err)

	assert.Equal(t, uint64(31), stats.TotalPackets)
	assert.NotZero(t, stats.TotalBytes)
	assert.Equal(t, stats.TotalBytes, stats.CapturedBytes)
	for _, proto := range []string{"Ethernet", "IPv4", "UDP"} {
		assert.Equal(t, uint64(31), stats.ProtocolCounts[proto], proto)
	}
	assert.Equal(t, []string{"10.1.1.1 -> 10.2.2.2", "10.3.3.3 -> 10.2.2.2"}, stats.TopTalkers(5))
	assert.Equal(t, []string{"10.1.1.1 -> 10.2.2.2"}, stats.TopTalkers(1))
	assert.Equal(t, uint64(30), stats.Talkers["10.1.1.1 -> 10.2.2.2"])
}

func TestPcapParser_EmptyArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.pcap")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	stats, err := NewPcapParser(path).ProcessFile()
	require.NoError(t, err)
	assert.Zero(t, stats.TotalPackets)
}

func TestPcapParser_Errors(t *testing.T) {
	_, err := NewPcapParser("nonexistent.pcap").ProcessFile()
	assert.Error(t, err)

	garbage := filepath.Join(t.TempDir(), "garbage.pcap")
	require.NoError(t, os.WriteFile(garbage, []byte("this is not a capture file"), 0644))
	_, err = NewPcapParser(garbage).ProcessFile()
	assert.Error(t, err)
}

func TestPacketStats_Lines(t *testing.T) {
	stats := PacketStats{
		TotalPackets:   100,
		TotalBytes:     1500,
		CapturedBytes:  900,
		ProtocolCounts: map[string]uint64{"UDP": 40, "TCP": 60},
		Talkers:        map[string]uint64{"a -> b": 3},
	}
	lines := stats.Lines()
	require.Len(t, lines, 4)
	assert.Equal(t, "    local stats: 100 packets, 1500 bytes (900 captured)", lines[0])
	assert.Contains(t, lines[1], "TCP")
	assert.Contains(t, lines[2], "UDP")
	assert.Contains(t, lines[3], "a -> b")
}

func TestPcapParser_TruncatedPackets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snaplen.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)
	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(64, layers.LinkTypeEthernet))

	data := make([]byte, 64)
	for i := 0; i < 3; i++ {
		ci := gopacket.CaptureInfo{Timestamp: time.Unix(1700000000, 0), CaptureLength: len(data), Length: 1514}
		require.NoError(t, w.WritePacket(ci, data))
	}
	require.NoError(t, f.Close())

	stats, err := NewPcapParser(path).ProcessFile()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), stats.TotalPackets)
	assert.Equal(t, uint64(3*1514), stats.TotalBytes)
	assert.Equal(t, uint64(3*64), stats.CapturedBytes)
}
