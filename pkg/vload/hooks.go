package vload

import (
	"context"
	"iter"
)

// RowSource produces the rows of one load. The sequence is lazy, finite and
// not restartable: Rows is called once per load.
type RowSource interface {
	Rows(ctx context.Context) iter.Seq2[[]any, error]
}

// RowSourceFunc adapts a function to RowSource.
type RowSourceFunc func(ctx context.Context) iter.Seq2[[]any, error]

// Rows calls f(ctx).
func (f RowSourceFunc) Rows(ctx context.Context) iter.Seq2[[]any, error] {
	return f(ctx)
}

// SliceSource is a RowSource over in-memory rows.
type SliceSource [][]any

// Rows yields the rows in order.
func (s SliceSource) Rows(ctx context.Context) iter.Seq2[[]any, error] {
	return func(yield func([]any, error) bool) {
		for _, row := range s {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}

// ValueMapper renders one field of a row as staged text.
type ValueMapper interface {
	MapValue(v any) (string, error)
}

// ValueMapperFunc adapts a function to ValueMapper.
type ValueMapperFunc func(v any) (string, error)

// MapValue calls f(v).
func (f ValueMapperFunc) MapValue(v any) (string, error) {
	return f(v)
}

// CopyHook runs caller-defined statements around the COPY, inside the load's
// transaction (e.g. TRUNCATE before, ANALYZE_STATISTICS after).
type CopyHook interface {
	Run(ctx context.Context, s Session) error
}

// CopyHookFunc adapts a function to CopyHook.
type CopyHookFunc func(ctx context.Context, s Session) error

// Run calls f(ctx, s).
func (f CopyHookFunc) Run(ctx context.Context, s Session) error {
	return f(ctx, s)
}

// TableCreator creates the target table when the first COPY finds it missing.
type TableCreator interface {
	CreateTable(ctx context.Context, s Session, table string, columns []Column) error
}

// TableCreatorFunc adapts a function to TableCreator.
type TableCreatorFunc func(ctx context.Context, s Session, table string, columns []Column) error

// CreateTable calls f.
func (f TableCreatorFunc) CreateTable(ctx context.Context, s Session, table string, columns []Column) error {
	return f(ctx, s, table, columns)
}
