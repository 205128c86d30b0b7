package filesession

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ParsePermissions converts a symbolic octal string such as "0644" or "4755"
// into an os.FileMode, including the setuid, setgid and sticky bits.
func ParsePermissions(s string) (os.FileMode, error) {
	bits, err := parseOctal(s, 0o7777)
	if err != nil {
		return 0, fmt.Errorf("invalid permissions %q: %w", s, err)
	}

	mode := os.FileMode(bits & 0o777)
	if bits&0o1000 != 0 {
		mode |= os.ModeSticky
	}
	if bits&0o2000 != 0 {
		mode |= os.ModeSetgid
	}
	if bits&0o4000 != 0 {
		mode |= os.ModeSetuid
	}
	return mode, nil
}

// ParseUmask converts a symbolic octal umask such as "022" or "0077".
func ParseUmask(s string) (int, error) {
	bits, err := parseOctal(s, 0o777)
	if err != nil {
		return 0, fmt.Errorf("invalid umask %q: %w", s, err)
	}
	return int(bits), nil
}

func parseOctal(s string, max uint64) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0o")
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, err
	}
	if v > max {
		return 0, fmt.Errorf("value %o out of range", v)
	}
	return v, nil
}
