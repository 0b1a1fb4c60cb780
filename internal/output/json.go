package output

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"
)

func encodeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// JSONLWriter streams records as newline-delimited JSON. It is safe for
// concurrent use and flushes after every record so a killed run still leaves
// a readable file.
type JSONLWriter struct {
	mu     sync.Mutex
	w      *bufio.Writer
	closer io.Closer
	err    error
}

// NewJSONLWriter creates a JSONL writer. If w is an io.Closer it is closed
// by Close.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	jw := &JSONLWriter{w: bufio.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		jw.closer = c
	}
	return jw
}

// Write writes a single record as one JSON line.
func (w *JSONLWriter) Write(data any) error {
	line, err := json.Marshal(data)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	if _, err := w.w.Write(line); err != nil {
		w.err = err
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		w.err = err
		return err
	}
	if err := w.w.Flush(); err != nil {
		w.err = err
		return err
	}
	return nil
}

// Err returns the first write error, if any.
func (w *JSONLWriter) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Close flushes the buffer and closes the underlying writer.
func (w *JSONLWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	flushErr := w.w.Flush()
	if w.closer != nil {
		if err := w.closer.Close(); err != nil {
			return err
		}
	}
	return flushErr
}
