package operations

import (
	"fmt"
	"strings"
)

// ParseChain parses "raw", "gzip", "bzip2" or a pipe-separated list such as
// "bzip2|gzip" into operation IDs in execution order. Names must already be
// registered, which means importing the compress package.
func ParseChain(s string) ([]uint8, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "raw" {
		return nil, nil
	}

	var ids []uint8
	for _, part := range strings.Split(s, "|") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		op, err := Lookup(part)
		if err != nil {
			return nil, err
		}
		ids = append(ids, op.ID())
	}
	return ids, nil
}

// ChainString renders a chain the way ParseChain reads it
func ChainString(ids []uint8) string {
	if len(ids) == 0 {
		return "raw"
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		op, err := Get(id)
		if err != nil {
			names = append(names, fmt.Sprintf("0x%02x", id))
			continue
		}
		names = append(names, op.Name())
	}
	return strings.Join(names, "|")
}

// ChainExtension is the file suffix for data run through the chain, e.g. ".bz2.gz"
func ChainExtension(ids []uint8) string {
	var b strings.Builder
	for _, id := range ids {
		if op, err := Get(id); err == nil {
			b.WriteString(op.Extension())
		}
	}
	return b.String()
}

// ApplyChain applies a chain of operations to data
func ApplyChain(data []byte, ids []uint8) ([]byte, error) {
	current := data

	for _, id := range ids {
		op, err := Get(id)
		if err != nil {
			return nil, err
		}

		result, err := op.Apply(current)
		if err != nil {
			return nil, fmt.Errorf("applying %s: %w", op.Name(), err)
		}

		current = result
	}

	return current, nil
}

// ReverseChain undoes ApplyChain
func ReverseChain(data []byte, ids []uint8) ([]byte, error) {
	current := data

	for i := len(ids) - 1; i >= 0; i-- {
		op, err := Get(ids[i])
		if err != nil {
			return nil, err
		}

		result, err := op.Reverse(current)
		if err != nil {
			return nil, fmt.Errorf("reversing %s: %w", op.Name(), err)
		}

		current = result
	}

	return current, nil
}

// ParseExtension recovers a chain from a suffix written by ChainExtension
func ParseExtension(ext string) ([]uint8, error) {
	var ids []uint8
	for _, part := range strings.Split(strings.TrimPrefix(ext, "."), ".") {
		if part == "" {
			continue
		}
		op, err := lookupExtension("." + part)
		if err != nil {
			return nil, err
		}
		ids = append(ids, op.ID())
	}
	return ids, nil
}

func lookupExtension(ext string) (Operation, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	for _, op := range registry {
		if op.Extension() == ext {
			return op, nil
		}
	}
	return nil, fmt.Errorf("no operation writes %q files", ext)
}
