// Package codec is the type-dispatched columnar codec spec.md section 4.1
// describes: it packs selected row subsets of a RecordBatch into a byte
// stream and reconstructs them on the far side using typed builders. It is
// a direct generalization of SerializeSelectedItems / DeserializeSelected
// Items / SelectItems in original_source's table_shuffler_beta.h, adapted
// from Arrow arrays/builders to this module's table package.
package codec

import (
	"encoding/binary"
	"fmt"
	"io"

	tserrors "github.com/tableshuffle/shuffle/errors"
	"github.com/tableshuffle/shuffle/schema"
	"github.com/tableshuffle/shuffle/table"
)

// SerializeSelectedRows writes |offsets| as a 64-bit signed count, then, for
// each column in schema order, the values at the given offsets using that
// column's type encoding (spec.md section 4.1, section 3).
func SerializeSelectedRows(w io.Writer, batch *table.RecordBatch, offsets []int64) error {
	if err := writeInt64(w, int64(len(offsets))); err != nil {
		return tserrors.ArrowError{Cause: fmt.Errorf("writing row count: %w", err)}
	}
	for _, col := range batch.Columns {
		if err := serializeColumn(w, col, offsets); err != nil {
			return tserrors.ArrowError{Cause: err}
		}
	}
	return nil
}

// DeserializeSelectedRows reads a 64-bit row count n, constructs fresh typed
// builders from schema sized for n, consumes n values per column using that
// column's type encoding, and flushes the builders into a RecordBatch
// (spec.md section 4.1).
func DeserializeSelectedRows(r io.Reader, s *schema.Schema) (*table.RecordBatch, error) {
	rowNum, err := readInt64(r)
	if err != nil {
		return nil, tserrors.ArrowError{Cause: fmt.Errorf("reading row count: %w", err)}
	}
	builders := table.NewBuilders(s, int(rowNum))
	for _, b := range builders.Builders {
		if err := deserializeColumn(r, b, rowNum); err != nil {
			return nil, tserrors.ArrowError{Cause: err}
		}
	}
	return builders.Flush(), nil
}

// SelectRows is the in-process variant (spec.md section 4.2): it iterates
// columns, appends selected values to fresh typed builders sized for
// len(offsets), and flushes — without ever going through the wire encoding.
// This is what the Row Selector and the Shuffle Engine's local-slice
// short-circuit both call (spec.md section 4.2, section 4.4).
func SelectRows(batchIn *table.RecordBatch, offsets []int64) *table.RecordBatch {
	builders := table.NewBuilders(batchIn.Schema, len(offsets))
	for i, b := range builders.Builders {
		selectColumn(b, batchIn.Columns[i], offsets)
	}
	return builders.Flush()
}

func writeInt64(w io.Writer, v int64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	_, err := w.Write(buf[:])
	return err
}

func readInt64(r io.Reader) (int64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(buf[:])), nil
}

// serializeColumn is the first of this package's three total-dispatch
// switches over the closed column-type set (spec.md section 4.1's dispatch
// rule: "all three operations share the same total function on logical
// type"). A type outside the set is a fatal programmer error — it panics,
// because schemas are agreed upon by the Schema Barrier before this runs.
func serializeColumn(w io.Writer, col table.Column, offsets []int64) error {
	switch c := col.(type) {
	case *table.Float64Column:
		return serializeNumeric(w, c.Values, offsets)
	case *table.Float32Column:
		return serializeNumeric(w, c.Values, offsets)
	case *table.Int64Column:
		return serializeNumeric(w, c.Values, offsets)
	case *table.Int32Column:
		return serializeNumeric(w, c.Values, offsets)
	case *table.Uint64Column:
		return serializeNumeric(w, c.Values, offsets)
	case *table.Uint32Column:
		return serializeNumeric(w, c.Values, offsets)
	case *table.StringColumn:
		return serializeStrings(w, c.Values, offsets)
	case *table.NullColumn:
		return nil // null columns produce no bytes (spec.md section 4.1)
	case *table.Float64ListColumn:
		return serializeLists(w, c.Lists, offsets)
	case *table.Float32ListColumn:
		return serializeLists(w, c.Lists, offsets)
	case *table.Int64ListColumn:
		return serializeLists(w, c.Lists, offsets)
	case *table.Int32ListColumn:
		return serializeLists(w, c.Lists, offsets)
	case *table.Uint64ListColumn:
		return serializeLists(w, c.Lists, offsets)
	case *table.Uint32ListColumn:
		return serializeLists(w, c.Lists, offsets)
	default:
		panic(fmt.Errorf("codec: unsupported column type %s", col.ColumnType()))
	}
}

func serializeNumeric[T table.Numeric](w io.Writer, values []T, offsets []int64) error {
	for _, idx := range offsets {
		if err := binary.Write(w, binary.LittleEndian, values[idx]); err != nil {
			return err
		}
	}
	return nil
}

func serializeStrings(w io.Writer, values []string, offsets []int64) error {
	for _, idx := range offsets {
		v := values[idx]
		if err := writeInt64(w, int64(len(v))); err != nil {
			return err
		}
		if _, err := io.WriteString(w, v); err != nil {
			return err
		}
	}
	return nil
}

func serializeLists[T table.Numeric](w io.Writer, lists [][]T, offsets []int64) error {
	for _, idx := range offsets {
		list := lists[idx]
		if err := writeInt64(w, int64(len(list))); err != nil {
			return err
		}
		for _, v := range list {
			if err := binary.Write(w, binary.LittleEndian, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// deserializeColumn is the receiver-side counterpart of serializeColumn.
func deserializeColumn(r io.Reader, b table.Builder, n int64) error {
	switch bld := b.(type) {
	case *table.NumericBuilder[float64]:
		return deserializeNumeric(r, bld, n)
	case *table.NumericBuilder[float32]:
		return deserializeNumeric(r, bld, n)
	case *table.NumericBuilder[int64]:
		return deserializeNumeric(r, bld, n)
	case *table.NumericBuilder[int32]:
		return deserializeNumeric(r, bld, n)
	case *table.NumericBuilder[uint64]:
		return deserializeNumeric(r, bld, n)
	case *table.NumericBuilder[uint32]:
		return deserializeNumeric(r, bld, n)
	case *table.StringBuilder:
		return deserializeStrings(r, bld, n)
	case *table.NullBuilder:
		bld.AppendNulls(int(n))
		return nil
	case *table.ListBuilder[float64]:
		return deserializeLists(r, bld, n)
	case *table.ListBuilder[float32]:
		return deserializeLists(r, bld, n)
	case *table.ListBuilder[int64]:
		return deserializeLists(r, bld, n)
	case *table.ListBuilder[int32]:
		return deserializeLists(r, bld, n)
	case *table.ListBuilder[uint64]:
		return deserializeLists(r, bld, n)
	case *table.ListBuilder[uint32]:
		return deserializeLists(r, bld, n)
	default:
		panic(fmt.Errorf("codec: unsupported builder type %T", b))
	}
}

func deserializeNumeric[T table.Numeric](r io.Reader, b *table.NumericBuilder[T], n int64) error {
	for i := int64(0); i < n; i++ {
		var v T
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return err
		}
		b.Append(v)
	}
	return nil
}

func deserializeStrings(r io.Reader, b *table.StringBuilder, n int64) error {
	for i := int64(0); i < n; i++ {
		length, err := readInt64(r)
		if err != nil {
			return err
		}
		buf := make([]byte, length)
		if _, err := io.ReadFull(r, buf); err != nil {
			return err
		}
		b.Append(string(buf))
	}
	return nil
}

func deserializeLists[T table.Numeric](r io.Reader, b *table.ListBuilder[T], n int64) error {
	for i := int64(0); i < n; i++ {
		length, err := readInt64(r)
		if err != nil {
			return err
		}
		list := make([]T, length)
		for j := int64(0); j < length; j++ {
			if err := binary.Read(r, binary.LittleEndian, &list[j]); err != nil {
				return err
			}
		}
		b.Append(list)
	}
	return nil
}

// selectColumn is select_rows's per-column dispatch: it appends selected
// values directly into a fresh Builder without ever touching the wire
// encoding (spec.md section 4.2).
func selectColumn(dst table.Builder, src table.Column, offsets []int64) {
	switch d := dst.(type) {
	case *table.NumericBuilder[float64]:
		selectNumeric(d, src.(*table.Float64Column).Values, offsets)
	case *table.NumericBuilder[float32]:
		selectNumeric(d, src.(*table.Float32Column).Values, offsets)
	case *table.NumericBuilder[int64]:
		selectNumeric(d, src.(*table.Int64Column).Values, offsets)
	case *table.NumericBuilder[int32]:
		selectNumeric(d, src.(*table.Int32Column).Values, offsets)
	case *table.NumericBuilder[uint64]:
		selectNumeric(d, src.(*table.Uint64Column).Values, offsets)
	case *table.NumericBuilder[uint32]:
		selectNumeric(d, src.(*table.Uint32Column).Values, offsets)
	case *table.StringBuilder:
		s := src.(*table.StringColumn)
		for _, idx := range offsets {
			d.Append(s.Values[idx])
		}
	case *table.NullBuilder:
		d.AppendNulls(len(offsets))
	case *table.ListBuilder[float64]:
		selectLists(d, src.(*table.Float64ListColumn).Lists, offsets)
	case *table.ListBuilder[float32]:
		selectLists(d, src.(*table.Float32ListColumn).Lists, offsets)
	case *table.ListBuilder[int64]:
		selectLists(d, src.(*table.Int64ListColumn).Lists, offsets)
	case *table.ListBuilder[int32]:
		selectLists(d, src.(*table.Int32ListColumn).Lists, offsets)
	case *table.ListBuilder[uint64]:
		selectLists(d, src.(*table.Uint64ListColumn).Lists, offsets)
	case *table.ListBuilder[uint32]:
		selectLists(d, src.(*table.Uint32ListColumn).Lists, offsets)
	default:
		panic(fmt.Errorf("codec: unsupported builder type %T", dst))
	}
}

func selectNumeric[T table.Numeric](b *table.NumericBuilder[T], values []T, offsets []int64) {
	for _, idx := range offsets {
		b.Append(values[idx])
	}
}

func selectLists[T table.Numeric](b *table.ListBuilder[T], lists [][]T, offsets []int64) {
	for _, idx := range offsets {
		b.Append(lists[idx])
	}
}
