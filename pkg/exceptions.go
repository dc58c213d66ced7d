package pkg

import (
	"errors"

	"github.com/dwforge/romfmt/pkg/format"
)

// Process exit codes
const (
	ExitOK         = 0
	ExitError      = 1
	ExitFormat     = 2
	ExitIntegrity  = 3
	ExitValidation = 4
	ExitBounds     = 5
)

// ExitCode maps an error to the exit code for its category
func ExitCode(err error) int {
	var (
		fe *format.FormatError
		ie *format.IntegrityError
		ve *format.ValidationError
		be *format.BoundsError
	)
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &ie):
		return ExitIntegrity
	case errors.As(err, &ve):
		return ExitValidation
	case errors.As(err, &be):
		return ExitBounds
	case errors.As(err, &fe):
		return ExitFormat
	default:
		return ExitError
	}
}
