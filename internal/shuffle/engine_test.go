package shuffle

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tableshuffle/shuffle/comm"
	"github.com/tableshuffle/shuffle/schema"
	"github.com/tableshuffle/shuffle/table"
	"github.com/tableshuffle/shuffle/types"
)

func idSchema() *schema.Schema {
	return schema.New(schema.Field{Name: "id", Type: types.Numeric(types.Int64)})
}

func idBatch(ids ...int64) *table.RecordBatch {
	return table.NewRecordBatch(idSchema(), []table.Column{
		&table.Int64Column{Tag: types.Int64, Values: ids},
	})
}

// TestRunSingleWorkerIdentity is scenario S1: a lone worker's shuffle
// returns its input unchanged.
func TestRunSingleWorkerIdentity(t *testing.T) {
	cluster := comm.NewLocalCluster(1)
	batch := idBatch(10, 20)
	offsets := Offsets{{{0, 1}}}

	received, err := Run(context.Background(), cluster[0], idSchema(), []*table.RecordBatch{batch}, offsets, 1)
	require.NoError(t, err)
	require.Len(t, received, 1)
	require.Equal(t, []int64{10, 20}, received[0].Columns[0].(*table.Int64Column).Values)
}

// TestRunTwoWorkerSplit is scenario S2's mechanics at the engine level:
// even ids go to fragment 0, odd ids go to fragment 1.
func TestRunTwoWorkerSplit(t *testing.T) {
	cluster := comm.NewLocalCluster(2)

	batch0 := idBatch(1, 2) // worker 0: 1->frag1, 2->frag0
	batch1 := idBatch(3)    // worker 1: 3->frag1

	offsets0 := Offsets{{
		{1}, // fragment 0 gets row index 1 (id=2)
		{0}, // fragment 1 gets row index 0 (id=1)
	}}
	offsets1 := Offsets{{
		{},  // fragment 0 gets nothing
		{0}, // fragment 1 gets row index 0 (id=3)
	}}

	var wg sync.WaitGroup
	results := make([][]*table.RecordBatch, 2)
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		results[0], errs[0] = Run(context.Background(), cluster[0], idSchema(), []*table.RecordBatch{batch0}, offsets0, 2)
	}()
	go func() {
		defer wg.Done()
		results[1], errs[1] = Run(context.Background(), cluster[1], idSchema(), []*table.RecordBatch{batch1}, offsets1, 2)
	}()
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	idsOf := func(batches []*table.RecordBatch) []int64 {
		var ids []int64
		for _, b := range batches {
			ids = append(ids, b.Columns[0].(*table.Int64Column).Values...)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		return ids
	}
	require.Equal(t, []int64{2}, idsOf(results[0]))
	require.Equal(t, []int64{1, 3}, idsOf(results[1]))
}

// TestRunRetainsEmptySelfSlice is scenario S4: a worker whose self-slice is
// empty for every input batch still gets a (zero-row) batch back.
func TestRunRetainsEmptySelfSlice(t *testing.T) {
	cluster := comm.NewLocalCluster(1)
	batch := idBatch()
	offsets := Offsets{{{}}}

	received, err := Run(context.Background(), cluster[0], idSchema(), []*table.RecordBatch{batch}, offsets, 1)
	require.NoError(t, err)
	require.Len(t, received, 1)
	require.Equal(t, 0, received[0].NumRows())
}

func TestThreadBudgetFloorsAtThree(t *testing.T) {
	require.GreaterOrEqual(t, ThreadBudget(1000000), 3)
}
