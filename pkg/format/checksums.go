// Package format implements the container header, the data-section checksum
// and the error taxonomy shared by every asset type.
//
// Checksums are CRC-32 (IEEE) over the data section only, never the header, so
// header metadata can be regenerated without invalidating a verified payload.
// Documents carry them in prefixed form: "crc32:1a2b3c4d".
package format

import (
	"fmt"
	"hash/crc32"
	"strconv"
	"strings"
)

const checksumPrefix = "crc32:"

// Compute returns the CRC-32 of data
func Compute(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// Verify reports whether data hashes to expected
func Verify(data []byte, expected uint32) bool {
	return Compute(data) == expected
}

// VerifyError is Verify returning an IntegrityError on mismatch
func VerifyError(data []byte, expected uint32) error {
	if actual := Compute(data); actual != expected {
		return &IntegrityError{Expected: expected, Actual: actual}
	}
	return nil
}

// FormatChecksum renders a checksum with its algorithm prefix
func FormatChecksum(sum uint32) string {
	return fmt.Sprintf("%s%08x", checksumPrefix, sum)
}

// ParseChecksum parses a checksum string that may or may not have a prefix
func ParseChecksum(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ":") {
		parts := strings.SplitN(s, ":", 2)
		if parts[0] != strings.TrimSuffix(checksumPrefix, ":") {
			return 0, fmt.Errorf("unknown checksum algorithm: %s", parts[0])
		}
		s = parts[1]
	}
	if len(s) != 8 {
		return 0, fmt.Errorf("invalid checksum format: %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid checksum format: %q: %w", s, err)
	}
	return uint32(v), nil
}
