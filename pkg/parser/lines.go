package parser

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// maxLineBytes bounds a single input line. Longer lines are truncated rather
// than failing the pass; sensor logs should never come close.
const maxLineBytes = 1 << 20

// lineIter is a pull-based, finite, single-pass iterator over input lines.
//
// It is non-restartable: once Next reports done it stays done.
type lineIter struct {
	r    *bufio.Reader
	num  int
	done bool
}

func newLineIter(r io.Reader) *lineIter {
	return &lineIter{r: bufio.NewReader(r)}
}

// Next returns the next line (without terminator) and its 1-based number.
// ok is false when the input is exhausted.
func (it *lineIter) Next() (line []byte, num int, ok bool, err error) {
	if it.done {
		return nil, 0, false, nil
	}

	var out []byte
	for {
		frag, rerr := it.r.ReadSlice('\n')
		out = append(out, frag...)
		if len(out) > maxLineBytes {
			out = out[:maxLineBytes]
			// Skip the remainder of the oversized line.
			for rerr == nil || errors.Is(rerr, bufio.ErrBufferFull) {
				if len(frag) > 0 && frag[len(frag)-1] == '\n' {
					break
				}
				frag, rerr = it.r.ReadSlice('\n')
			}
			break
		}
		if rerr == nil {
			break
		}
		if errors.Is(rerr, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(rerr, io.EOF) {
			it.done = true
			if len(out) == 0 {
				return nil, 0, false, nil
			}
			break
		}
		return nil, 0, false, rerr
	}

	it.num++
	out = bytes.TrimRight(out, "\r\n")
	return out, it.num, true, nil
}
