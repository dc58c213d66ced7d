package format

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Format errors 📦
	ErrBadMagic           = errors.New("❌ bad container magic")
	ErrUnsupportedVersion = errors.New("❌ unsupported container version")
	ErrUnknownType        = errors.New("❌ unknown asset type")
	ErrTruncatedData      = errors.New("❌ truncated data")
	ErrOffsetOutOfBounds  = errors.New("❌ offset out of bounds")
	ErrSizeMismatch       = errors.New("❌ data size mismatch")
	ErrBadFlags           = errors.New("❌ reserved flags set")
	ErrInvalidCode        = errors.New("❌ invalid text code")
	ErrUnterminatedString = errors.New("❌ unterminated string")

	// Integrity errors 🔒
	ErrChecksumMismatch = errors.New("❌ checksum mismatch")

	// Validation errors 📋
	ErrValidation        = errors.New("❌ validation failed")
	ErrDanglingReference = errors.New("❌ dangling reference")

	// ROM errors 💾
	ErrOutOfBounds = errors.New("❌ ROM range out of bounds")
)

// FormatError reports a malformed container or data section
type FormatError struct {
	Kind   error
	Detail string
}

func (e *FormatError) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *FormatError) Unwrap() error {
	return e.Kind
}

// Formatf builds a FormatError of the given kind
func Formatf(kind error, format string, args ...interface{}) *FormatError {
	return &FormatError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// IntegrityError reports a checksum mismatch over a data section
type IntegrityError struct {
	Expected uint32
	Actual   uint32
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", ErrChecksumMismatch, FormatChecksum(e.Expected), FormatChecksum(e.Actual))
}

func (e *IntegrityError) Unwrap() error {
	return ErrChecksumMismatch
}

// BoundsError reports a ROM range that runs past the end of the image
type BoundsError struct {
	Offset uint64
	Size   uint64
	Length uint64
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("%s: offset 0x%X + size %d exceeds ROM length %d", ErrOutOfBounds, e.Offset, e.Size, e.Length)
}

func (e *BoundsError) Unwrap() error {
	return ErrOutOfBounds
}

// CheckBounds returns a BoundsError unless offset+size fits in length
func CheckBounds(offset, size, length uint64) error {
	if offset > length || size > length-offset {
		return &BoundsError{Offset: offset, Size: size, Length: length}
	}
	return nil
}

// Pass identifies which validator pass produced a violation
type Pass int

const (
	PassFormat Pass = iota
	PassRange
	PassReference
)

func (p Pass) String() string {
	switch p {
	case PassFormat:
		return "format"
	case PassRange:
		return "range"
	case PassReference:
		return "reference"
	default:
		return "unknown"
	}
}

// Violation is one failed constraint on one field
type Violation struct {
	Pass       Pass
	Record     string // e.g. "monster[3]"; empty for container-level checks
	Field      string
	Value      int64
	Constraint string
}

func (v Violation) String() string {
	name := v.Field
	if v.Record != "" {
		name = v.Record + "." + v.Field
	}
	return fmt.Sprintf("%s: %s = %d (want %s)", v.Pass, name, v.Value, v.Constraint)
}

// ValidationError carries every violation found across all passes
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 1 {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Violations[0])
	}
	lines := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		lines = append(lines, "  "+v.String())
	}
	return fmt.Sprintf("%s: %d violations\n%s", ErrValidation, len(e.Violations), strings.Join(lines, "\n"))
}

// Is matches ErrValidation always and ErrDanglingReference when any
// cross-reference violation is present
func (e *ValidationError) Is(target error) bool {
	switch target {
	case ErrValidation:
		return true
	case ErrDanglingReference:
		return len(e.ByPass(PassReference)) > 0
	}
	return false
}

// ByPass returns the violations produced by one pass
func (e *ValidationError) ByPass(p Pass) []Violation {
	var out []Violation
	for _, v := range e.Violations {
		if v.Pass == p {
			out = append(out, v)
		}
	}
	return out
}

// Find returns the first violation on the named field, if any
func (e *ValidationError) Find(field string) (Violation, bool) {
	for _, v := range e.Violations {
		if v.Field == field {
			return v, true
		}
	}
	return Violation{}, false
}
