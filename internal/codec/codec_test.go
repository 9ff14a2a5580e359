package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tableshuffle/shuffle/schema"
	"github.com/tableshuffle/shuffle/table"
	"github.com/tableshuffle/shuffle/types"
)

func numericBatch() *table.RecordBatch {
	s := schema.New(
		schema.Field{Name: "id", Type: types.Numeric(types.Int64)},
		schema.Field{Name: "weight", Type: types.Numeric(types.Float64)},
	)
	return table.NewRecordBatch(s, []table.Column{
		&table.Int64Column{Tag: types.Int64, Values: []int64{10, 20, 30}},
		&table.Float64Column{Tag: types.Float64, Values: []float64{1.5, 2.5, 3.5}},
	})
}

func allOffsets(n int) []int64 {
	o := make([]int64, n)
	for i := range o {
		o[i] = int64(i)
	}
	return o
}

// TestSerializeDeserializeRoundTripNumeric exercises invariant 1: for all
// schemas and batches with supported types, deserialize(serialize(b, all
// offsets)) == b elementwise.
func TestSerializeDeserializeRoundTripNumeric(t *testing.T) {
	batch := numericBatch()
	offsets := allOffsets(batch.NumRows())

	var buf bytes.Buffer
	require.NoError(t, SerializeSelectedRows(&buf, batch, offsets))

	got, err := DeserializeSelectedRows(&buf, batch.Schema)
	require.NoError(t, err)
	require.Equal(t, batch.Columns[0].(*table.Int64Column).Values, got.Columns[0].(*table.Int64Column).Values)
	require.Equal(t, batch.Columns[1].(*table.Float64Column).Values, got.Columns[1].(*table.Float64Column).Values)
}

// TestSelectRowsMatchesSerializeRoundTrip exercises invariant 2: for all
// offset lists, select_rows and serialize-then-deserialize agree.
func TestSelectRowsMatchesSerializeRoundTrip(t *testing.T) {
	batch := numericBatch()
	offsets := []int64{2, 0}

	selected := SelectRows(batch, offsets)

	var buf bytes.Buffer
	require.NoError(t, SerializeSelectedRows(&buf, batch, offsets))
	deserialized, err := DeserializeSelectedRows(&buf, batch.Schema)
	require.NoError(t, err)

	require.Equal(t, selected.Columns[0].(*table.Int64Column).Values, deserialized.Columns[0].(*table.Int64Column).Values)
	require.Equal(t, selected.Columns[1].(*table.Float64Column).Values, deserialized.Columns[1].(*table.Float64Column).Values)
	require.Equal(t, []int64{30, 10}, selected.Columns[0].(*table.Int64Column).Values)
}

func TestStringColumnRoundTrip(t *testing.T) {
	s := schema.New(schema.Field{Name: "name", Type: types.NewLargeUTF8()})
	batch := table.NewRecordBatch(s, []table.Column{
		&table.StringColumn{Values: []string{"alice", "bob", ""}},
	})
	offsets := allOffsets(batch.NumRows())

	var buf bytes.Buffer
	require.NoError(t, SerializeSelectedRows(&buf, batch, offsets))
	got, err := DeserializeSelectedRows(&buf, s)
	require.NoError(t, err)
	require.Equal(t, []string{"alice", "bob", ""}, got.Columns[0].(*table.StringColumn).Values)
}

func TestNullColumnRoundTrip(t *testing.T) {
	s := schema.New(schema.Field{Name: "meta", Type: types.NewNull()})
	batch := table.NewRecordBatch(s, []table.Column{&table.NullColumn{Count: 4}})
	offsets := allOffsets(batch.NumRows())

	var buf bytes.Buffer
	require.NoError(t, SerializeSelectedRows(&buf, batch, offsets))
	require.Equal(t, 8, buf.Len()) // just the row count, no per-row bytes
	got, err := DeserializeSelectedRows(&buf, s)
	require.NoError(t, err)
	require.Equal(t, 4, got.Columns[0].(*table.NullColumn).Count)
}

// TestLargeListRoundTrip is scenario S5: a large-list<i32> column round
// trips identically.
func TestLargeListRoundTrip(t *testing.T) {
	s := schema.New(schema.Field{Name: "tags", Type: types.NewLargeList(types.Int32)})
	batch := table.NewRecordBatch(s, []table.Column{
		&table.Int32ListColumn{ElemTag: types.Int32, Lists: [][]int32{{7, 8, 9}, {}, {1}}},
	})
	offsets := allOffsets(batch.NumRows())

	var buf bytes.Buffer
	require.NoError(t, SerializeSelectedRows(&buf, batch, offsets))
	got, err := DeserializeSelectedRows(&buf, s)
	require.NoError(t, err)
	require.Equal(t, [][]int32{{7, 8, 9}, {}, {1}}, got.Columns[0].(*table.Int32ListColumn).Lists)
}

func TestSelectRowsPreservesOrderNotInput(t *testing.T) {
	batch := numericBatch()
	selected := SelectRows(batch, []int64{1, 1, 0})
	require.Equal(t, []int64{20, 20, 10}, selected.Columns[0].(*table.Int64Column).Values)
}

func TestFatalOnUnsupportedColumnType(t *testing.T) {
	require.Panics(t, func() {
		var buf bytes.Buffer
		serializeColumn(&buf, unsupportedColumn{}, []int64{0})
	})
}

type unsupportedColumn struct{}

func (unsupportedColumn) ColumnType() types.ColumnType { return types.ColumnType{Tag: types.Tag(99)} }
func (unsupportedColumn) NumRows() int                 { return 0 }
