package parser

import (
	"context"
	"io"
	"strings"

	"github.com/3leaps/navconv/pkg/record"
)

// Generic is the last-resort line parser: every non-blank line becomes a
// record tagging the line number and raw text. It never fails on content.
type Generic struct{}

func (p *Generic) Parse(ctx context.Context, r io.Reader, w *record.Writer) (Stats, error) {
	var stats Stats
	it := newLineIter(r)

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		line, num, ok, err := it.Next()
		if err != nil {
			return stats, err
		}
		if !ok {
			return stats, nil
		}
		s := strings.TrimSpace(string(line))
		if s == "" {
			continue
		}
		stats.Lines++

		rec := &record.Intermediate{
			Type: record.TypeUnknown,
			Line: record.Int(num),
			Raw:  s,
		}
		if err := w.Write(rec); err != nil {
			return stats, err
		}
		stats.Records++
	}
}
