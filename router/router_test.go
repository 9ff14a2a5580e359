package router

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tableshuffle/shuffle/comm"
	tserrors "github.com/tableshuffle/shuffle/errors"
	"github.com/tableshuffle/shuffle/schema"
	"github.com/tableshuffle/shuffle/table"
	"github.com/tableshuffle/shuffle/types"
)

func vertexSchema() *schema.Schema {
	return schema.New(
		schema.Field{Name: "id", Type: types.Numeric(types.Int64)},
		schema.Field{Name: "label", Type: types.NewLargeUTF8()},
	)
}

func vertexTable(ids []int64, labels []string) *table.Table {
	s := vertexSchema()
	batch := table.NewRecordBatch(s, []table.Column{
		&table.Int64Column{Tag: types.Int64, Values: ids},
		&table.StringColumn{Values: labels},
	})
	return table.NewTable(s, []*table.RecordBatch{batch})
}

func idsAndLabels(t *table.Table) ([]int64, []string) {
	if len(t.Batches) == 0 {
		return nil, nil
	}
	b := t.Batches[0]
	ids := append([]int64{}, b.Columns[0].(*table.Int64Column).Values...)
	labels := append([]string{}, b.Columns[1].(*table.StringColumn).Values...)
	return ids, labels
}

var evenOdd = PartitionerFunc(func(key int64) int { return int(key % 2) })

// TestShuffleVertexTableSingleWorkerIdentity is scenario S1.
func TestShuffleVertexTableSingleWorkerIdentity(t *testing.T) {
	cluster := comm.NewLocalCluster(1)
	in := vertexTable([]int64{10, 20}, []string{"a", "b"})
	allToZero := PartitionerFunc(func(int64) int { return 0 })

	out, err := ShuffleVertexTable(context.Background(), cluster[0], allToZero, 1, in)
	require.NoError(t, err)
	ids, labels := idsAndLabels(out)
	require.Equal(t, []int64{10, 20}, ids)
	require.Equal(t, []string{"a", "b"}, labels)
}

// TestShuffleVertexTableTwoWorkerSplit is scenario S2.
func TestShuffleVertexTableTwoWorkerSplit(t *testing.T) {
	cluster := comm.NewLocalCluster(2)
	in0 := vertexTable([]int64{1, 2}, []string{"a", "b"})
	in1 := vertexTable([]int64{3}, []string{"c"})

	var wg sync.WaitGroup
	outs := make([]*table.Table, 2)
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		outs[0], errs[0] = ShuffleVertexTable(context.Background(), cluster[0], evenOdd, 2, in0)
	}()
	go func() {
		defer wg.Done()
		outs[1], errs[1] = ShuffleVertexTable(context.Background(), cluster[1], evenOdd, 2, in1)
	}()
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	ids0, labels0 := idsAndLabels(outs[0])
	ids1, labels1 := idsAndLabels(outs[1])
	require.Equal(t, []int64{2}, ids0)
	require.Equal(t, []string{"b"}, labels0)

	require.ElementsMatch(t, []int64{1, 3}, ids1)
	require.ElementsMatch(t, []string{"a", "c"}, labels1)
}

// TestShuffleVertexTableRetainsEmptyOutputSchema is scenario S4.
func TestShuffleVertexTableRetainsEmptyOutputSchema(t *testing.T) {
	cluster := comm.NewLocalCluster(1)
	in := vertexTable(nil, nil)
	anyPartition := PartitionerFunc(func(int64) int { return 0 })

	out, err := ShuffleVertexTable(context.Background(), cluster[0], anyPartition, 1, in)
	require.NoError(t, err)
	require.Equal(t, 0, out.NumRows())
	require.True(t, out.Schema.Equals(vertexSchema()))
}

func edgeSchema() *schema.Schema {
	return schema.New(
		schema.Field{Name: "src", Type: types.Numeric(types.Int64)},
		schema.Field{Name: "dst", Type: types.Numeric(types.Int64)},
	)
}

func edgeTable(src, dst []int64) *table.Table {
	s := edgeSchema()
	batch := table.NewRecordBatch(s, []table.Column{
		&table.Int64Column{Tag: types.Int64, Values: src},
		&table.Int64Column{Tag: types.Int64, Values: dst},
	})
	return table.NewTable(s, []*table.RecordBatch{batch})
}

// TestShuffleEdgeTableDuplicatesAcrossEndpoints is scenario S3: one edge
// (src=0x0_00001, dst=0x1_00002) lands once on worker 0 and once on worker 1.
func TestShuffleEdgeTableDuplicatesAcrossEndpoints(t *testing.T) {
	cluster := comm.NewLocalCluster(2)
	parser := NewHighBitsIDParser(32)

	src := int64(0x0_00000001)
	dst := int64(0x1_00000002)
	in0 := edgeTable([]int64{src}, []int64{dst})
	in1 := edgeTable(nil, nil)

	var wg sync.WaitGroup
	outs := make([]*table.Table, 2)
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		outs[0], errs[0] = ShuffleEdgeTable(context.Background(), cluster[0], parser, 0, 1, 2, in0)
	}()
	go func() {
		defer wg.Done()
		outs[1], errs[1] = ShuffleEdgeTable(context.Background(), cluster[1], parser, 0, 1, 2, in1)
	}()
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.Equal(t, 1, outs[0].NumRows())
	require.Equal(t, 1, outs[1].NumRows())
	require.Equal(t, src, outs[0].Batches[0].Columns[0].(*table.Int64Column).Values[0])
	require.Equal(t, src, outs[1].Batches[0].Columns[0].(*table.Int64Column).Values[0])
}

// TestShuffleVertexTableSchemaMismatchReturnsInvalidOperation is scenario S6.
func TestShuffleVertexTableSchemaMismatchReturnsInvalidOperation(t *testing.T) {
	cluster := comm.NewLocalCluster(2)
	s0 := schema.New(schema.Field{Name: "id", Type: types.Numeric(types.Int64)})
	s1 := schema.New(schema.Field{Name: "id", Type: types.Numeric(types.Int32)})
	in0 := table.NewTable(s0, []*table.RecordBatch{table.NewRecordBatch(s0, []table.Column{&table.Int64Column{Tag: types.Int64, Values: []int64{1}}})})
	in1 := table.NewTable(s1, []*table.RecordBatch{table.NewRecordBatch(s1, []table.Column{&table.Int32Column{Tag: types.Int32, Values: []int32{1}}})})

	anyPartition := PartitionerFunc(func(int64) int { return 0 })

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = ShuffleVertexTable(context.Background(), cluster[0], anyPartition, 2, in0)
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = ShuffleVertexTable(context.Background(), cluster[1], anyPartition, 2, in1)
	}()
	wg.Wait()

	for _, err := range errs {
		require.Error(t, err)
		require.True(t, tserrors.IsInvalidOperationError(err))
	}
}

func TestHashPartitionerStaysWithinRange(t *testing.T) {
	p := NewHashPartitioner(4)
	for _, key := range []int64{0, 1, 2, -1, 1 << 40, 123456789} {
		frag := p.PartitionOf(key)
		require.GreaterOrEqual(t, frag, 0)
		require.Less(t, frag, 4)
	}
}

func TestHashPartitionerIsDeterministic(t *testing.T) {
	p := NewHashPartitioner(8)
	require.Equal(t, p.PartitionOf(42), p.PartitionOf(42))
}
