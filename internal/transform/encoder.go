package transform

import (
	"fmt"
	"io"
	"strings"

	"github.com/vvka-141/vload/pkg/vload"
)

// RowEncoder writes rows as separator-delimited, newline-terminated lines.
// Backslash, the separator, CR and LF inside a field are prefixed with a
// backslash, which both Vertica and PostgreSQL text COPY read as a literal
// character.
type RowEncoder struct {
	w       io.Writer
	sep     string
	mapper  vload.ValueMapper
	width   int
	escaper *strings.Replacer
	buf     strings.Builder
}

// NewRowEncoder creates an encoder for rows of width fields.
func NewRowEncoder(w io.Writer, sep string, width int, mapper vload.ValueMapper) *RowEncoder {
	return &RowEncoder{
		w:      w,
		sep:    sep,
		mapper: mapper,
		width:  width,
		escaper: strings.NewReplacer(
			`\`, `\\`,
			sep, `\`+sep,
			"\r", "\\\r",
			"\n", "\\\n",
		),
	}
}

// Encode writes one row and returns the number of bytes written.
func (e *RowEncoder) Encode(row []any) (int, error) {
	if len(row) != e.width {
		return 0, fmt.Errorf("row has %d fields, expected %d: %w", len(row), e.width, vload.ErrInvalidConfig)
	}

	e.buf.Reset()
	for i, v := range row {
		if i > 0 {
			e.buf.WriteString(e.sep)
		}
		s, err := e.mapper.MapValue(v)
		if err != nil {
			return 0, fmt.Errorf("field %d: %w", i, err)
		}
		e.buf.WriteString(e.escaper.Replace(s))
	}
	e.buf.WriteByte('\n')

	return io.WriteString(e.w, e.buf.String())
}
