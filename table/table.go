package table

import (
	"fmt"

	"github.com/tableshuffle/shuffle/schema"
)

// RecordBatch is a fixed-length chunk of a columnar table: an ordered
// sequence of Columns, all of identical row count, bound to a Schema
// (spec.md section 3).
type RecordBatch struct {
	Schema  *schema.Schema
	Columns []Column
}

// NewRecordBatch builds a RecordBatch from a Schema and columns already in
// schema order. It panics if the column count or any column's row count or
// type disagree with schema — a caller-side programming error, since this
// module never receives columns from an untrusted source without going
// through the Codec or a Builder first.
func NewRecordBatch(s *schema.Schema, columns []Column) *RecordBatch {
	if len(columns) != s.NumFields() {
		panic(fmt.Errorf("table: record batch has %d columns, schema has %d fields", len(columns), s.NumFields()))
	}
	var numRows = -1
	for i, col := range columns {
		field := s.Field(i)
		if !col.ColumnType().Equals(field.Type) {
			panic(fmt.Errorf("table: column %d (%s) has type %s, schema expects %s", i, field.Name, col.ColumnType(), field.Type))
		}
		if numRows == -1 {
			numRows = col.NumRows()
		} else if col.NumRows() != numRows {
			panic(fmt.Errorf("table: column %d (%s) has %d rows, expected %d", i, field.Name, col.NumRows(), numRows))
		}
	}
	return &RecordBatch{Schema: s, Columns: columns}
}

// NumRows returns the row count shared by every column in the batch (zero
// for a batch with no columns, which cannot happen for a batch bound to a
// non-empty Schema).
func (b *RecordBatch) NumRows() int {
	if len(b.Columns) == 0 {
		return 0
	}
	return b.Columns[0].NumRows()
}

// Builders is a set of per-column Builders, one per field of a Schema, in
// schema order — the "record-batch builder" collaborator spec.md sections
// 4.1/4.2/6 refer to.
type Builders struct {
	Schema   *schema.Schema
	Builders []Builder
}

// NewBuilders constructs a Builders pre-sized for capacity rows per column.
func NewBuilders(s *schema.Schema, capacity int) *Builders {
	bs := make([]Builder, s.NumFields())
	for i := 0; i < s.NumFields(); i++ {
		bs[i] = NewBuilder(s.Field(i).Type, capacity)
	}
	return &Builders{Schema: s, Builders: bs}
}

// Flush finalizes every column builder into a RecordBatch.
func (bs *Builders) Flush() *RecordBatch {
	columns := make([]Column, len(bs.Builders))
	for i, b := range bs.Builders {
		columns[i] = b.Flush()
	}
	return &RecordBatch{Schema: bs.Schema, Columns: columns}
}

// Table is an ordered collection of RecordBatches sharing one Schema — the
// unit callers pass into and receive out of ShuffleVertexTable and
// ShuffleEdgeTable (spec.md section 6).
type Table struct {
	Schema  *schema.Schema
	Batches []*RecordBatch
}

// NewTable wraps a slice of same-schema RecordBatches into a Table.
func NewTable(s *schema.Schema, batches []*RecordBatch) *Table {
	return &Table{Schema: s, Batches: batches}
}

// NewEmptyTable builds a zero-batch Table bound to s. Spec.md section 4.5's
// note "we need an empty table for non-existing labels" (carried from
// original_source's ShufflePropertyVertexTable/ShufflePropertyEdgeTable) is
// satisfied by this: an empty table is still schema-bearing.
func NewEmptyTable(s *schema.Schema) *Table {
	return &Table{Schema: s, Batches: nil}
}

// NumRows returns the total row count across every batch in the table.
func (t *Table) NumRows() int {
	n := 0
	for _, b := range t.Batches {
		n += b.NumRows()
	}
	return n
}

// CombineChunks concatenates every batch's columns into a single RecordBatch,
// mirroring the columnar library's Table::CombineChunks the Vertex/Edge
// Routers call after the shuffle returns (spec.md section 4.5/4.6). An empty
// table combines into a zero-row batch with the same schema.
func (t *Table) CombineChunks() *RecordBatch {
	builders := NewBuilders(t.Schema, t.NumRows())
	for _, batch := range t.Batches {
		for i, b := range builders.Builders {
			appendColumn(b, batch.Columns[i])
		}
	}
	return builders.Flush()
}

// appendColumn appends every value of src onto dst. It is the same
// type-dispatch idiom internal/codec's select-rows path uses, specialized
// to "select every row" rather than an explicit offset list.
func appendColumn(dst Builder, src Column) {
	switch d := dst.(type) {
	case *NumericBuilder[float64]:
		d.AppendValues(src.(*NumericColumn[float64]).Values)
	case *NumericBuilder[float32]:
		d.AppendValues(src.(*NumericColumn[float32]).Values)
	case *NumericBuilder[int64]:
		d.AppendValues(src.(*NumericColumn[int64]).Values)
	case *NumericBuilder[int32]:
		d.AppendValues(src.(*NumericColumn[int32]).Values)
	case *NumericBuilder[uint64]:
		d.AppendValues(src.(*NumericColumn[uint64]).Values)
	case *NumericBuilder[uint32]:
		d.AppendValues(src.(*NumericColumn[uint32]).Values)
	case *StringBuilder:
		for _, v := range src.(*StringColumn).Values {
			d.Append(v)
		}
	case *NullBuilder:
		d.AppendNulls(src.(*NullColumn).Count)
	case *ListBuilder[float64]:
		for _, v := range src.(*ListColumn[float64]).Lists {
			d.Append(v)
		}
	case *ListBuilder[float32]:
		for _, v := range src.(*ListColumn[float32]).Lists {
			d.Append(v)
		}
	case *ListBuilder[int64]:
		for _, v := range src.(*ListColumn[int64]).Lists {
			d.Append(v)
		}
	case *ListBuilder[int32]:
		for _, v := range src.(*ListColumn[int32]).Lists {
			d.Append(v)
		}
	case *ListBuilder[uint64]:
		for _, v := range src.(*ListColumn[uint64]).Lists {
			d.Append(v)
		}
	case *ListBuilder[uint32]:
		for _, v := range src.(*ListColumn[uint32]).Lists {
			d.Append(v)
		}
	default:
		panic(fmt.Errorf("table: unsupported builder type %T", dst))
	}
}
