package record

import (
	"errors"
	"io"
	"sync"
)

// Writer errors.
var (
	// ErrWriterClosed is returned when writing to a closed writer.
	ErrWriterClosed = errors.New("writer is closed")
)

// WriteError wraps errors that occur during write operations.
type WriteError struct {
	Op  string // Operation that failed (e.g., "marshal", "write")
	Err error  // Underlying error
}

func (e *WriteError) Error() string {
	return "record: " + e.Op + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Writer emits JSONL records to an underlying io.Writer.
//
// Writer is safe for concurrent use. Writes are serialized with a mutex so
// each record lands as one complete line with no interleaved output.
type Writer struct {
	w      io.Writer
	mu     sync.Mutex
	count  int64
	closed bool
}

// NewWriter creates a JSONL writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write marshals v and appends it as a single line.
func (w *Writer) Write(v any) error {
	b, err := MarshalLine(v)
	if err != nil {
		return &WriteError{Op: "marshal", Err: err}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}

	b = append(b, '\n')
	if err := writeAll(w.w, b); err != nil {
		return &WriteError{Op: "write", Err: err}
	}
	w.count++
	return nil
}

// Count reports the number of records written so far.
func (w *Writer) Count() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Close marks the writer as closed.
//
// If the underlying writer implements io.Closer, it is NOT closed. The
// caller owns the underlying writer.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

// writeAll writes all bytes to w, handling short writes.
//
// io.Writer.Write may return n < len(p) with a nil error; a short write
// would silently truncate a JSONL line and corrupt the artifact.
func writeAll(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		p = p[n:]
	}
	return nil
}
