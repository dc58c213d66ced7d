// Package operations holds the reversible byte transforms applied to ROM
// backups before they are written to disk.
package operations

import (
	"fmt"
	"io"
	"sync"
)

// Operation identifiers. Values are stable because they are recorded in
// backup manifests.
const (
	OP_NONE  = 0x00
	OP_GZIP  = 0x10
	OP_BZIP2 = 0x13
)

// Operation is a single reversible transform
type Operation interface {
	// ID returns the operation identifier (e.g., OP_GZIP)
	ID() uint8

	// Name returns the lower-case name used in configuration
	Name() string

	// Extension is appended to backup file names
	Extension() string

	Apply(input []byte) ([]byte, error)
	ApplyStream(input io.Reader, output io.Writer) error
	Reverse(input []byte) ([]byte, error)
	ReverseStream(input io.Reader, output io.Writer) error
}

// BaseOperation provides the identifying half of an Operation
type BaseOperation struct {
	OpID   uint8
	OpName string
	OpExt  string
}

func (o *BaseOperation) ID() uint8 {
	return o.OpID
}

func (o *BaseOperation) Name() string {
	return o.OpName
}

func (o *BaseOperation) Extension() string {
	return o.OpExt
}

var (
	registryMu sync.RWMutex
	registry   = make(map[uint8]Operation)
)

// Register registers an operation implementation
func Register(op Operation) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[op.ID()] = op
}

// Get retrieves an operation by ID
func Get(id uint8) (Operation, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	op, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("unknown operation: 0x%02x", id)
	}
	return op, nil
}

// Lookup retrieves an operation by name
func Lookup(name string) (Operation, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	for _, op := range registry {
		if op.Name() == name {
			return op, nil
		}
	}
	return nil, fmt.Errorf("unknown operation: %q", name)
}
