package record

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// DefaultMaxLineBytes bounds a single JSONL line.
const DefaultMaxLineBytes = 1 << 20

// Reader is a pull-based, single-pass JSONL decoder.
//
// Reader is finite and non-restartable: once Next returns io.EOF the stream
// is exhausted. Blank lines terminate the stream.
type Reader struct {
	r            *bufio.Reader
	maxLineBytes int
}

// NewReader creates a JSONL reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r), maxLineBytes: DefaultMaxLineBytes}
}

// SetMaxLineBytes overrides the per-line byte bound. n <= 0 restores the
// default.
func (r *Reader) SetMaxLineBytes(n int) {
	if n <= 0 {
		r.maxLineBytes = DefaultMaxLineBytes
		return
	}
	r.maxLineBytes = n
}

// Next decodes the next line into v. Returns io.EOF when the stream ends.
func (r *Reader) Next(v any) error {
	line, err := r.NextRaw()
	if err != nil {
		return err
	}
	return json.Unmarshal(line, v)
}

// NextRaw returns the next non-empty line without decoding it.
func (r *Reader) NextRaw() ([]byte, error) {
	line, err := readLineLimited(r.r, r.maxLineBytes)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(line)) == 0 {
		return nil, io.EOF
	}
	return line, nil
}

// ReadAllLocations drains the stream into a Location slice.
func ReadAllLocations(r io.Reader) ([]Location, error) {
	d := NewReader(r)
	var out []Location
	for {
		var loc Location
		err := d.Next(&loc)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, loc)
	}
}

func readLineLimited(r *bufio.Reader, maxBytes int) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxLineBytes
	}

	var out []byte
	for {
		frag, err := r.ReadSlice('\n')
		out = append(out, frag...)
		if len(out) > maxBytes {
			return nil, errors.New("jsonl line exceeds max bytes")
		}
		if err == nil {
			return bytes.TrimSuffix(out, []byte("\n")), nil
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) {
			if len(out) == 0 {
				return nil, io.EOF
			}
			return out, nil
		}
		return nil, err
	}
}
