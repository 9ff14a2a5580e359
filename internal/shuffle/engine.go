// Package shuffle implements the Shuffle Engine (spec.md section 4.4): the
// four-stage concurrent pipeline — serializer pool, send thread, receive
// thread, deserializer pool — that drives one all-to-all row exchange. It
// is grounded on original_source's table_shuffler_beta.h pipeline and on
// the teacher's bounded worker-pool idiom, rebuilt here on top of
// golang.org/x/sync/errgroup so any stage's failure cancels the context its
// siblings' Send/RecvAny calls use (queue Put/Get do not observe it).
package shuffle

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"runtime"
	"sync/atomic"

	uuid "github.com/gofrs/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tableshuffle/shuffle/comm"
	tserrors "github.com/tableshuffle/shuffle/errors"
	"github.com/tableshuffle/shuffle/internal/codec"
	"github.com/tableshuffle/shuffle/internal/queue"
	"github.com/tableshuffle/shuffle/logging"
	"github.com/tableshuffle/shuffle/schema"
	"github.com/tableshuffle/shuffle/table"
)

// Offsets is the offset tensor O[i][f]: for input batch i, the ordered row
// indices destined for fragment f (spec.md section 4.4's inputs).
type Offsets [][][]int64

// queueCapacity bounds the outbound/inbound queues (spec.md section 5:
// "the outbound and inbound queues are bounded").
const queueCapacity = 64

type outboundItem struct {
	dstFrag int
	buf     []byte
}

// ThreadBudget computes T = ceil(hardware_concurrency / local_workers),
// floored at 3 so send, recv, and at least one serializer and deserializer
// all exist (spec.md section 4.4/5). localWorkers <= 0 is treated as 1.
func ThreadBudget(localWorkers int) int {
	if localWorkers <= 0 {
		localWorkers = 1
	}
	hw := runtime.NumCPU()
	t := (hw + localWorkers - 1) / localWorkers
	if t < 3 {
		t = 3
	}
	return t
}

// Run drives one shuffle collective: given the shared schema, the local
// input batches, and the offset tensor assigning rows of each batch to
// fragments, it returns every received record batch — remote wire-batches
// plus the local self-slice of each input batch (spec.md section 4.4's
// output contract; self-slices are retained even when empty).
func Run(ctx context.Context, c comm.Comm, s *schema.Schema, batches []*table.RecordBatch, offsets Offsets, localWorkers int) ([]*table.RecordBatch, error) {
	runID, err := uuid.NewV4()
	if err != nil {
		return nil, tserrors.ArrowError{Cause: err}
	}
	log.Printf("[%s] worker %d: starting shuffle %s with %d local batches", logging.LogLevelToString(logging.DebugLevel), c.WorkerID(), runID, len(batches))

	T := ThreadBudget(localWorkers)
	raw := T - 2
	serializerNum := raw / 2
	if serializerNum < 1 {
		serializerNum = 1
	}
	deserializerNum := raw - serializerNum
	if deserializerNum < 1 {
		deserializerNum = 1
	}

	localBatchCount := int64(len(batches))
	totalBatchCount, err := c.AllReduceSumInt64(ctx, localBatchCount)
	if err != nil {
		return nil, tserrors.ArrowError{Cause: fmt.Errorf("all-reducing batch count: %w", err)}
	}
	numRx := totalBatchCount - localBatchCount
	if numRx < 0 {
		numRx = 0
	}

	outbound := queue.New[outboundItem](queueCapacity)
	inbound := queue.New[[]byte](queueCapacity)
	outbound.SetProducerNum(serializerNum)
	inbound.SetProducerNum(1)

	received := make([]*table.RecordBatch, numRx)
	var deserializeSlot atomic.Int64
	var claimedBatch atomic.Int64
	localFrag := c.FragmentID()
	fragNum := c.FragmentNum()

	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < serializerNum; i++ {
		g.Go(func() error {
			defer outbound.ProducerDone()
			for {
				idx := claimedBatch.Add(1) - 1
				if idx >= int64(len(batches)) {
					return nil
				}
				batch := batches[idx]
				rowOffsets := offsets[idx]
				for f := 0; f < fragNum; f++ {
					if f == localFrag {
						continue
					}
					var buf bytes.Buffer
					if err := codec.SerializeSelectedRows(&buf, batch, rowOffsets[f]); err != nil {
						return err
					}
					outbound.Put(outboundItem{dstFrag: f, buf: buf.Bytes()})
				}
			}
		})
	}

	g.Go(func() error {
		for {
			item, ok := outbound.Get()
			if !ok {
				return nil
			}
			dstWorker := c.FragToWorker(item.dstFrag)
			if err := c.Send(gctx, dstWorker, item.buf); err != nil {
				return tserrors.ArrowError{Cause: err}
			}
		}
	})

	g.Go(func() error {
		defer inbound.ProducerDone()
		for i := int64(0); i < numRx; i++ {
			_, buf, err := c.RecvAny(gctx)
			if err != nil {
				return tserrors.ArrowError{Cause: err}
			}
			inbound.Put(buf)
		}
		return nil
	})

	for i := 0; i < deserializerNum; i++ {
		g.Go(func() error {
			for {
				buf, ok := inbound.Get()
				if !ok {
					return nil
				}
				decoded, err := codec.DeserializeSelectedRows(bytes.NewReader(buf), s)
				if err != nil {
					return err
				}
				slot := deserializeSlot.Add(1) - 1
				received[slot] = decoded
			}
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, batch := range batches {
		selfSlice := codec.SelectRows(batch, offsets[i][localFrag])
		received = append(received, selfSlice)
	}

	if err := c.Barrier(ctx); err != nil {
		return nil, tserrors.ArrowError{Cause: err}
	}

	log.Printf("[%s] worker %d: shuffle %s complete, received %d batches", logging.LogLevelToString(logging.DebugLevel), c.WorkerID(), runID, len(received))
	return received, nil
}
