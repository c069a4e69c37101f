//go:build unix

package capture

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

// chownToInvoker hands path back to the user that ran us through sudo.
// It does nothing unless we are root and SUDO_UID/SUDO_GID are set.
func chownToInvoker(path string) error {
	if unix.Geteuid() != 0 {
		return nil
	}
	uid, err := strconv.Atoi(os.Getenv("SUDO_UID"))
	if err != nil {
		return nil
	}
	gid, err := strconv.Atoi(os.Getenv("SUDO_GID"))
	if err != nil {
		return nil
	}
	if err := unix.Chown(path, uid, gid); err != nil {
		return fmt.Errorf("failed to chown %s to %d:%d: %w", path, uid, gid, err)
	}
	return nil
}
