package transform

import (
	"bufio"
	"context"
	"errors"
	"io"
	"iter"
	"strings"

	"github.com/vvka-141/vload/pkg/vload"
)

// maxLineSize bounds a single input line.
const maxLineSize = 64 * 1024 * 1024

// TSVSource reads rows from separator-delimited text, one row per line.
// Fields are passed through as strings; null substitution is left to the
// value mapper, so an input of `\N` only loads as NULL if it is a null value.
type TSVSource struct {
	r   io.Reader
	sep string
}

// NewTSVSource creates a row source reading r. An empty sep means tab.
func NewTSVSource(r io.Reader, sep string) *TSVSource {
	if sep == "" {
		sep = vload.DefaultColumnSeparator
	}
	return &TSVSource{r: r, sep: sep}
}

// Rows yields one row per line. A trailing CR is dropped and a final line
// without newline is still a row.
func (s *TSVSource) Rows(ctx context.Context) iter.Seq2[[]any, error] {
	return func(yield func([]any, error) bool) {
		scanner := bufio.NewScanner(s.r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

		for scanner.Scan() {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			line := strings.TrimSuffix(scanner.Text(), "\r")
			fields := strings.Split(line, s.sep)
			row := make([]any, len(fields))
			for i, f := range fields {
				row[i] = f
			}
			if !yield(row, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
			yield(nil, err)
		}
	}
}

var _ vload.RowSource = (*TSVSource)(nil)
