package capture

import (
	"fmt"
	"regexp"
)

const maxInterfaceNameLen = 255

var validInterfaceName = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// ValidateInterfaceName rejects names that could be interpreted by a shell
// or as a path when handed to the capture program.
func ValidateInterfaceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: interface name cannot be empty", ErrInvalidInterface)
	}
	if len(name) > maxInterfaceNameLen {
		return fmt.Errorf("%w: interface name too long: %d characters", ErrInvalidInterface, len(name))
	}
	if name == "." || name == ".." || !validInterfaceName.MatchString(name) {
		return fmt.Errorf("%w: interface name contains invalid characters: %q", ErrInvalidInterface, name)
	}
	return nil
}
