// Package metadata describes the host a monitoring session runs on.
package metadata

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"os/exec"
	"runtime"
	"sort"
	"strings"

	"github.com/google/uuid"

	"EnigmaNetz/Enigma-Netmon/internal/version"
)

// maxHostIPs limits the number of addresses listed in the session banner.
const maxHostIPs = 10

// Host identifies one monitoring session and the machine it runs on.
type Host struct {
	SessionID string
	MachineID string
	Hostname  string
	Version   string
	OSName    string
	OSVersion string
	Arch      string
	HostIPs   []string
}

// Collect gathers host information and assigns a fresh session id.
func Collect() Host {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return Host{
		SessionID: uuid.New().String(),
		MachineID: generateMachineID(),
		Hostname:  hostname,
		Version:   version.Version,
		OSName:    runtime.GOOS,
		OSVersion: getOSVersion(),
		Arch:      runtime.GOARCH,
		HostIPs:   getHostIPAddresses(),
	}
}

// Fields returns the host information as sorted key/value pairs.
func (h Host) Fields() map[string]string {
	m := map[string]string{
		"session_id":     h.SessionID,
		"machine_id":     h.MachineID,
		"hostname":       h.Hostname,
		"netmon_version": h.Version,
		"os_name":        h.OSName,
		"os_version":     h.OSVersion,
		"architecture":   h.Arch,
	}
	if len(h.HostIPs) > 0 {
		m["host_ips"] = strings.Join(h.HostIPs, ",")
	}
	return m
}

// String renders one "key=value" per line in key order.
func (h Host) String() string {
	fields := h.Fields()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, fields[k])
	}
	return b.String()
}

// getHostIPAddresses returns private IPv4 addresses of up, non-loopback interfaces.
func getHostIPAddresses() []string {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil
	}

	var ips []string
	seen := make(map[string]bool)

	for _, iface := range interfaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, _ := iface.Addrs()
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip := ipnet.IP.To4()
			if ip == nil || !ip.IsPrivate() || seen[ip.String()] {
				continue
			}
			seen[ip.String()] = true
			ips = append(ips, ip.String())
			if len(ips) >= maxHostIPs {
				return ips
			}
		}
	}
	return ips
}

// generateMachineID creates SHA256 hash of primary MAC address
func generateMachineID() string {
	macAddr := getPrimaryMACAddress()
	if macAddr == "" {
		macAddr = "unknown-device"
	}
	hash := sha256.Sum256([]byte(macAddr))
	return hex.EncodeToString(hash[:])
}

// getPrimaryMACAddress gets the MAC address of the primary network interface
func getPrimaryMACAddress() string {
	interfaces, err := net.Interfaces()
	if err != nil {
		return ""
	}

	sort.Slice(interfaces, func(i, j int) bool {
		return interfaces[i].Name < interfaces[j].Name
	})

	// Prefer physical ethernet, then wifi, then any other
	for _, priority := range []string{"eth", "en", "wlan", "wl"} {
		for _, iface := range interfaces {
			if strings.HasPrefix(iface.Name, priority) &&
				iface.Flags&net.FlagLoopback == 0 &&
				len(iface.HardwareAddr) > 0 {
				return iface.HardwareAddr.String()
			}
		}
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagLoopback == 0 && len(iface.HardwareAddr) > 0 {
			return iface.HardwareAddr.String()
		}
	}

	return ""
}

// getOSVersion attempts to get OS version information
func getOSVersion() string {
	switch runtime.GOOS {
	case "linux":
		return readOSRelease("/etc/os-release")
	case "darwin":
		output, err := exec.Command("sw_vers", "-productVersion").Output()
		if err != nil {
			return "macOS"
		}
		return "macOS " + strings.TrimSpace(string(output))
	default:
		return runtime.GOOS
	}
}

// readOSRelease extracts NAME and VERSION from an os-release file.
func readOSRelease(path string) string {
	file, err := os.Open(path)
	if err != nil {
		return "Linux"
	}
	defer file.Close()

	var name, ver string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "NAME=") {
			name = strings.Trim(strings.TrimPrefix(line, "NAME="), "\"")
		} else if strings.HasPrefix(line, "VERSION=") {
			ver = strings.Trim(strings.TrimPrefix(line, "VERSION="), "\"")
		}
	}

	switch {
	case name != "" && ver != "":
		return name + " " + ver
	case name != "":
		return name
	}
	return "Linux"
}
