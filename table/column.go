// Package table is this module's columnar record-batch library: it plays
// the role spec.md section 6 assigns to an external "columnar library"
// collaborator (schemas, typed arrays, typed builders, record-batch
// construction, table/batch conversion, chunk combination). See DESIGN.md
// for why it is implemented here against the standard library rather than
// imported — no Arrow-equivalent columnar array library exists anywhere in
// the retrieved example corpus.
package table

import "github.com/tableshuffle/shuffle/types"

// Numeric is the closed set of Go types backing the six raw numeric column
// types in spec.md section 3.
type Numeric interface {
	float64 | float32 | int64 | int32 | uint64 | uint32
}

// Column is one typed array of row values, all belonging to the same
// RecordBatch. Every concrete Column type below corresponds to exactly one
// tag in types.Tag; internal/codec's dispatch switches are written against
// these concrete types.
type Column interface {
	// ColumnType returns this column's logical type.
	ColumnType() types.ColumnType
	// NumRows returns the number of values (or, for NullColumn, logical
	// nulls) this column holds.
	NumRows() int
}

// NumericColumn backs the six raw fixed-width numeric column types.
type NumericColumn[T Numeric] struct {
	Tag    types.Tag
	Values []T
}

// ColumnType returns this column's logical type.
func (c *NumericColumn[T]) ColumnType() types.ColumnType { return types.Numeric(c.Tag) }

// NumRows returns the number of values in this column.
func (c *NumericColumn[T]) NumRows() int { return len(c.Values) }

// Concrete aliases used throughout internal/codec's type-dispatch switches,
// and by callers constructing RecordBatches directly.
type (
	Float64Column = NumericColumn[float64]
	Float32Column = NumericColumn[float32]
	Int64Column   = NumericColumn[int64]
	Int32Column   = NumericColumn[int32]
	Uint64Column  = NumericColumn[uint64]
	Uint32Column  = NumericColumn[uint32]
)

// ListColumn backs large-list<P> columns, where P is one of the six numeric
// types. Each row holds its own slice of P values (spec.md section 3: list
// offsets are reconstructed by the builder, never transmitted).
type ListColumn[T Numeric] struct {
	ElemTag types.Tag
	Lists   [][]T
}

// ColumnType returns this column's logical type.
func (c *ListColumn[T]) ColumnType() types.ColumnType { return types.NewLargeList(c.ElemTag) }

// NumRows returns the number of list-valued rows in this column.
func (c *ListColumn[T]) NumRows() int { return len(c.Lists) }

// Concrete list-column aliases, one per supported element type.
type (
	Float64ListColumn = ListColumn[float64]
	Float32ListColumn = ListColumn[float32]
	Int64ListColumn   = ListColumn[int64]
	Int32ListColumn   = ListColumn[int32]
	Uint64ListColumn  = ListColumn[uint64]
	Uint32ListColumn  = ListColumn[uint32]
)

// StringColumn backs large-utf8 columns.
type StringColumn struct {
	Values []string
}

// ColumnType returns this column's logical type.
func (c *StringColumn) ColumnType() types.ColumnType { return types.NewLargeUTF8() }

// NumRows returns the number of strings in this column.
func (c *StringColumn) NumRows() int { return len(c.Values) }

// NullColumn backs the dedicated null column type. It carries no data, only
// a row count (spec.md section 4.1: "null columns produce no bytes").
type NullColumn struct {
	Count int
}

// ColumnType returns this column's logical type.
func (c *NullColumn) ColumnType() types.ColumnType { return types.NewNull() }

// NumRows returns the number of (null) rows in this column.
func (c *NullColumn) NumRows() int { return c.Count }
