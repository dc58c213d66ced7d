package logging

import (
	"bytes"
	"io"
	"sync"
)

// PrefixWriter writes each complete line to the underlying writer with a
// prefix. Partial lines are held until their newline arrives.
type PrefixWriter struct {
	prefix []byte
	writer io.Writer

	mu     sync.Mutex
	buffer bytes.Buffer
}

// NewPrefixWriter creates a new PrefixWriter.
func NewPrefixWriter(prefix string, w io.Writer) *PrefixWriter {
	return &PrefixWriter{
		prefix: []byte(prefix),
		writer: w,
	}
}

func (pw *PrefixWriter) Write(p []byte) (int, error) {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	pw.buffer.Write(p)

	for {
		data := pw.buffer.Bytes()
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}

		line := make([]byte, 0, len(pw.prefix)+i+1)
		line = append(line, pw.prefix...)
		line = append(line, data[:i+1]...)
		pw.buffer.Next(i + 1)

		if _, err := pw.writer.Write(line); err != nil {
			return 0, err
		}
	}

	return len(p), nil
}
