package pipeline

import (
	"errors"
	"fmt"

	"github.com/dwforge/romfmt/pkg/format"
)

// Stage names a pipeline stage
type Stage string

const (
	StageExtract   Stage = "extract"
	StageTransform Stage = "transform"
	StagePackage   Stage = "package"
	StageReinsert  Stage = "reinsert"
)

// StageError records which stage aborted and why. The underlying error is
// one of the format package's error types and stays reachable through
// errors.Is and errors.As.
type StageError struct {
	Stage Stage
	Type  format.AssetType
	Err   error
}

func (e *StageError) Error() string {
	if e.Type.Valid() {
		return fmt.Sprintf("%s %s: %v", e.Stage, e.Type, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func abort(stage Stage, t format.AssetType, err error) error {
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Type: t, Err: err}
}

// ErrNoLocation is returned for asset types missing from the offset table
var ErrNoLocation = errors.New("❌ no ROM location configured")
