// Package router implements the Vertex Router and Edge Router (spec.md
// sections 4.5/4.6): the two public collective operations graph-load
// clients call. Each scans its local batches to build the Shuffle Engine's
// offset tensor, invokes the engine, then drops empty batches and combines
// the remainder. Grounded on original_source's ShufflePropertyVertexTable /
// ShufflePropertyEdgeTable and on the teacher's atomic-claim scan-worker
// idiom already reused in internal/shuffle.
package router

import (
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"sync/atomic"

	xxhash "github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/tableshuffle/shuffle/comm"
	"github.com/tableshuffle/shuffle/internal/barrier"
	"github.com/tableshuffle/shuffle/internal/shuffle"
	"github.com/tableshuffle/shuffle/logging"
	"github.com/tableshuffle/shuffle/table"
)

// Partitioner assigns a vertex key to a destination fragment. It must be a
// pure function of the key with no per-row state (spec.md section 6).
type Partitioner interface {
	PartitionOf(key int64) int
}

// IDParser extracts the owning fragment's id from a global vertex
// identifier's high bits (spec.md section 6, GLOSSARY "Global id").
type IDParser interface {
	FragmentOf(gid int64) int
}

// HighBitsIDParser is the reusable IDParser named in this module's
// supplemented-features notes: it treats the bits of a global id above its
// low Shift bits (gid >> Shift) as the owning fragment; with Shift = 32 that
// is the high 32 bits, matching scenario S3.
type HighBitsIDParser struct {
	Shift uint
}

// NewHighBitsIDParser builds a HighBitsIDParser extracting the fragment id
// from the bits of a global vertex id above its low shift bits.
func NewHighBitsIDParser(shift uint) *HighBitsIDParser {
	return &HighBitsIDParser{Shift: shift}
}

// FragmentOf returns the fragment encoded in gid above its low Shift bits.
func (p *HighBitsIDParser) FragmentOf(gid int64) int {
	return int(uint64(gid) >> p.Shift)
}

// HashPartitioner is a ready-to-use Partitioner distributing keys roughly
// evenly across fragments by hashing them, rather than requiring every
// caller to write their own modulo-on-key logic. Grounded on the teacher's
// xxhash-based partition assignment in its partition tree.
type HashPartitioner struct {
	FragmentNum int
}

// NewHashPartitioner builds a HashPartitioner targeting fragmentNum
// fragments.
func NewHashPartitioner(fragmentNum int) *HashPartitioner {
	return &HashPartitioner{FragmentNum: fragmentNum}
}

// PartitionOf hashes key with xxhash and reduces it modulo FragmentNum.
func (p *HashPartitioner) PartitionOf(key int64) int {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(key))
	h := xxhash.Sum64(buf[:])
	return int(h % uint64(p.FragmentNum))
}

// PartitionerFunc adapts a plain function to the Partitioner interface.
type PartitionerFunc func(key int64) int

// PartitionOf calls f.
func (f PartitionerFunc) PartitionOf(key int64) int { return f(key) }

// IDParserFunc adapts a plain function to the IDParser interface.
type IDParserFunc func(gid int64) int

// FragmentOf calls f.
func (f IDParserFunc) FragmentOf(gid int64) int { return f(gid) }

// columnValueAsInt64 reads the row'th value of one of the six numeric
// column types as an int64 — the representation both Partitioner and
// IDParser operate on.
func columnValueAsInt64(col table.Column, row int) int64 {
	switch c := col.(type) {
	case *table.Float64Column:
		return int64(c.Values[row])
	case *table.Float32Column:
		return int64(c.Values[row])
	case *table.Int64Column:
		return c.Values[row]
	case *table.Int32Column:
		return int64(c.Values[row])
	case *table.Uint64Column:
		return int64(c.Values[row])
	case *table.Uint32Column:
		return int64(c.Values[row])
	default:
		panic(fmt.Errorf("router: column type %s cannot be read as a routing key", col.ColumnType()))
	}
}

// scanBatches spawns up to T scan workers that claim input-batch indices via
// an atomic counter (spec.md section 4.5/4.6), invoking assign for every row
// of every claimed batch to populate the offset tensor.
func scanBatches(ctx context.Context, batches []*table.RecordBatch, fragNum int, localWorkers int, assign func(batch *table.RecordBatch, row int, offsets [][]int64)) shuffle.Offsets {
	offsets := make(shuffle.Offsets, len(batches))
	for i := range offsets {
		offsets[i] = make([][]int64, fragNum)
	}

	T := shuffle.ThreadBudget(localWorkers)
	var claimed atomic.Int64
	g, _ := errgroup.WithContext(ctx)
	for w := 0; w < T; w++ {
		g.Go(func() error {
			for {
				idx := claimed.Add(1) - 1
				if idx >= int64(len(batches)) {
					return nil
				}
				batch := batches[idx]
				for row := 0; row < batch.NumRows(); row++ {
					assign(batch, row, offsets[idx])
				}
			}
		})
	}
	_ = g.Wait() // assign never errors; the group only coordinates claiming.
	return offsets
}

// dropEmptyAndCombine filters out zero-row batches and combines the rest
// into a single RecordBatch, the final step of both routers (spec.md
// section 4.5/4.6).
func dropEmptyAndCombine(received []*table.RecordBatch) *table.RecordBatch {
	var schemaRef = received[0].Schema
	nonEmpty := make([]*table.RecordBatch, 0, len(received))
	for _, b := range received {
		if b.NumRows() > 0 {
			nonEmpty = append(nonEmpty, b)
			schemaRef = b.Schema
		}
	}
	combined := table.NewTable(schemaRef, nonEmpty)
	return combined.CombineChunks()
}

// ShuffleVertexTable is spec.md section 6's shuffle_vertex_table: the key
// column is column 0; partitioner.PartitionOf(key) names the owning
// fragment. It returns a freshly-built table holding exactly the vertex
// rows assigned to the local fragment.
func ShuffleVertexTable(ctx context.Context, c comm.Comm, partitioner Partitioner, localWorkers int, tableIn *table.Table) (*table.Table, error) {
	log.Printf("[%s] worker %d: shuffling vertex table with %d local batches", logging.LogLevelToString(logging.InfoLevel), c.WorkerID(), len(tableIn.Batches))
	if err := barrier.SchemaConsistent(ctx, c, tableIn.Schema); err != nil {
		return nil, err
	}

	offsets := scanBatches(ctx, tableIn.Batches, c.FragmentNum(), localWorkers, func(batch *table.RecordBatch, row int, offsets [][]int64) {
		key := columnValueAsInt64(batch.Columns[0], row)
		frag := partitioner.PartitionOf(key)
		offsets[frag] = append(offsets[frag], int64(row))
	})

	received, err := shuffle.Run(ctx, c, tableIn.Schema, tableIn.Batches, offsets, localWorkers)
	if err != nil {
		return nil, err
	}
	if len(received) == 0 {
		return table.NewEmptyTable(tableIn.Schema), nil
	}
	combined := dropEmptyAndCombine(received)
	return table.NewTable(tableIn.Schema, []*table.RecordBatch{combined}), nil
}

// ShuffleEdgeTable is spec.md section 6's shuffle_edge_table: srcColID and
// dstColID name the two endpoint columns; idParser.FragmentOf resolves each
// endpoint's owning fragment. A row is added to both endpoints' offset
// lists when they differ, replicating the edge to both owners (spec.md
// section 4.6).
func ShuffleEdgeTable(ctx context.Context, c comm.Comm, idParser IDParser, srcColID, dstColID int, localWorkers int, tableIn *table.Table) (*table.Table, error) {
	log.Printf("[%s] worker %d: shuffling edge table with %d local batches", logging.LogLevelToString(logging.InfoLevel), c.WorkerID(), len(tableIn.Batches))
	if err := barrier.SchemaConsistent(ctx, c, tableIn.Schema); err != nil {
		return nil, err
	}

	offsets := scanBatches(ctx, tableIn.Batches, c.FragmentNum(), localWorkers, func(batch *table.RecordBatch, row int, offsets [][]int64) {
		srcGid := columnValueAsInt64(batch.Columns[srcColID], row)
		dstGid := columnValueAsInt64(batch.Columns[dstColID], row)
		srcFrag := idParser.FragmentOf(srcGid)
		dstFrag := idParser.FragmentOf(dstGid)
		offsets[srcFrag] = append(offsets[srcFrag], int64(row))
		if dstFrag != srcFrag {
			offsets[dstFrag] = append(offsets[dstFrag], int64(row))
		}
	})

	received, err := shuffle.Run(ctx, c, tableIn.Schema, tableIn.Batches, offsets, localWorkers)
	if err != nil {
		return nil, err
	}
	if len(received) == 0 {
		return table.NewEmptyTable(tableIn.Schema), nil
	}
	combined := dropEmptyAndCombine(received)
	return table.NewTable(tableIn.Schema, []*table.RecordBatch{combined}), nil
}
