// Package permissions parses the octal file modes used in configuration
package permissions

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Modes for files romfmt writes. Backups and workspace documents hold game
// data only, so they stay readable by the group.
const (
	DefaultFilePerms = 0o644
	DefaultDirPerms  = 0o755
	BackupFilePerms  = 0o444
)

// ParseOctalString parses "644", "0644" or "0o644". Empty input yields def.
func ParseOctalString(s string, def os.FileMode) (os.FileMode, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}

	digits := strings.TrimPrefix(strings.TrimPrefix(s, "0o"), "0")
	if digits == "" {
		return 0, nil
	}

	val, err := strconv.ParseUint(digits, 8, 32)
	if err != nil {
		return def, fmt.Errorf("invalid permission string %q: %w", s, err)
	}
	if val > 0o777 {
		return def, fmt.Errorf("permission %q has bits outside 0777", s)
	}

	return os.FileMode(val), nil
}

// FormatOctal formats a mode the way ParseOctalString reads it
func FormatOctal(mode os.FileMode) string {
	return fmt.Sprintf("0%o", mode.Perm())
}

// DirFor derives a directory mode from a file mode by adding search bits
// wherever read is granted
func DirFor(mode os.FileMode) os.FileMode {
	perm := mode.Perm()
	return perm | (perm&0o444)>>2
}
