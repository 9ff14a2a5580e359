package table

import (
	"fmt"

	"github.com/tableshuffle/shuffle/types"
)

// Builder is the typed-builder abstraction spec.md sections 4.1/4.2
// describe: something that accumulates values for one column and, once
// full, Flushes them into an immutable Column. internal/codec's
// deserialize_selected_rows and select_rows (and Table.CombineChunks) build
// one Builder per column via NewBuilders/NewBuilder, append to it, then
// flush; serialize_selected_rows reads columns directly and uses no Builder.
type Builder interface {
	// ColumnType returns the logical type this builder accumulates.
	ColumnType() types.ColumnType
	// Flush finalizes accumulated values into a fresh Column.
	Flush() Column
}

// NumericBuilder accumulates one of the six raw numeric column types.
type NumericBuilder[T Numeric] struct {
	tag    types.Tag
	values []T
}

// NewNumericBuilder creates a NumericBuilder pre-sized for capacity rows.
func NewNumericBuilder[T Numeric](tag types.Tag, capacity int) *NumericBuilder[T] {
	return &NumericBuilder[T]{tag: tag, values: make([]T, 0, capacity)}
}

// Append adds a single value.
func (b *NumericBuilder[T]) Append(v T) { b.values = append(b.values, v) }

// AppendValues adds a slice of values in order.
func (b *NumericBuilder[T]) AppendValues(vs []T) { b.values = append(b.values, vs...) }

// ColumnType returns this builder's logical type.
func (b *NumericBuilder[T]) ColumnType() types.ColumnType { return types.Numeric(b.tag) }

// Flush finalizes the accumulated numeric values into a NumericColumn.
func (b *NumericBuilder[T]) Flush() Column {
	return &NumericColumn[T]{Tag: b.tag, Values: b.values}
}

// ListBuilder accumulates a large-list<P> column, one []T slice per row.
type ListBuilder[T Numeric] struct {
	elemTag types.Tag
	lists   [][]T
}

// NewListBuilder creates a ListBuilder pre-sized for capacity rows.
func NewListBuilder[T Numeric](elemTag types.Tag, capacity int) *ListBuilder[T] {
	return &ListBuilder[T]{elemTag: elemTag, lists: make([][]T, 0, capacity)}
}

// Append adds one row's list value.
func (b *ListBuilder[T]) Append(list []T) { b.lists = append(b.lists, list) }

// ColumnType returns this builder's logical type.
func (b *ListBuilder[T]) ColumnType() types.ColumnType { return types.NewLargeList(b.elemTag) }

// Flush finalizes the accumulated lists into a ListColumn.
func (b *ListBuilder[T]) Flush() Column {
	return &ListColumn[T]{ElemTag: b.elemTag, Lists: b.lists}
}

// StringBuilder accumulates a large-utf8 column.
type StringBuilder struct {
	values []string
}

// NewStringBuilder creates a StringBuilder pre-sized for capacity rows.
func NewStringBuilder(capacity int) *StringBuilder {
	return &StringBuilder{values: make([]string, 0, capacity)}
}

// Append adds a single string value.
func (b *StringBuilder) Append(v string) { b.values = append(b.values, v) }

// ColumnType returns this builder's logical type.
func (b *StringBuilder) ColumnType() types.ColumnType { return types.NewLargeUTF8() }

// Flush finalizes the accumulated strings into a StringColumn.
func (b *StringBuilder) Flush() Column { return &StringColumn{Values: b.values} }

// NullBuilder accumulates a null column; it only ever counts rows.
type NullBuilder struct {
	count int
}

// NewNullBuilder creates a NullBuilder.
func NewNullBuilder() *NullBuilder { return &NullBuilder{} }

// AppendNulls records n additional null rows.
func (b *NullBuilder) AppendNulls(n int) { b.count += n }

// ColumnType returns this builder's logical type.
func (b *NullBuilder) ColumnType() types.ColumnType { return types.NewNull() }

// Flush finalizes the accumulated count into a NullColumn.
func (b *NullBuilder) Flush() Column { return &NullColumn{Count: b.count} }

// NewBuilder is the one site, per spec.md section 4.1's dispatch-rule
// requirement, that switches on a column's logical type to construct the
// matching typed Builder, pre-sized for capacity rows. A type outside the
// closed set in types.Validate is a fatal programmer error: it panics,
// rather than returning an error, because schemas are agreed upon (via the
// Schema Barrier) before this ever runs.
func NewBuilder(t types.ColumnType, capacity int) Builder {
	switch t.Tag {
	case types.Float64:
		return NewNumericBuilder[float64](types.Float64, capacity)
	case types.Float32:
		return NewNumericBuilder[float32](types.Float32, capacity)
	case types.Int64:
		return NewNumericBuilder[int64](types.Int64, capacity)
	case types.Int32:
		return NewNumericBuilder[int32](types.Int32, capacity)
	case types.Uint64:
		return NewNumericBuilder[uint64](types.Uint64, capacity)
	case types.Uint32:
		return NewNumericBuilder[uint32](types.Uint32, capacity)
	case types.LargeUTF8:
		return NewStringBuilder(capacity)
	case types.Null:
		return NewNullBuilder()
	case types.LargeList:
		switch t.Elem {
		case types.Float64:
			return NewListBuilder[float64](types.Float64, capacity)
		case types.Float32:
			return NewListBuilder[float32](types.Float32, capacity)
		case types.Int64:
			return NewListBuilder[int64](types.Int64, capacity)
		case types.Int32:
			return NewListBuilder[int32](types.Int32, capacity)
		case types.Uint64:
			return NewListBuilder[uint64](types.Uint64, capacity)
		case types.Uint32:
			return NewListBuilder[uint32](types.Uint32, capacity)
		default:
			panic(fmt.Errorf("table: unsupported large-list element type %s", t.Elem))
		}
	default:
		panic(fmt.Errorf("table: unsupported column type %s", t))
	}
}
