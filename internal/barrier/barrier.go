// Package barrier implements the Schema Barrier (spec.md section 4.3): a
// ring-wise exchange that confirms every peer's schema is byte-for-byte
// identical before any row of data moves. It is grounded directly on
// original_source's SchemaConsistent, generalized from a fixed two-peer
// handshake to an arbitrary worker count and carrying the fix noted in
// spec.md section 9's open question: a second all-reduce of the local
// agreement bit, so a mismatch is never detected only locally.
package barrier

import (
	"bytes"
	"context"
	"log"
	"sync"

	uuid "github.com/gofrs/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/tableshuffle/shuffle/comm"
	tserrors "github.com/tableshuffle/shuffle/errors"
	"github.com/tableshuffle/shuffle/internal/util"
	"github.com/tableshuffle/shuffle/logging"
	"github.com/tableshuffle/shuffle/schema"
)

// SchemaConsistent runs the Schema Barrier: every worker serializes its
// local schema, exchanges it ring-wise with every other worker, compares
// each received schema against the local one, and all-reduces both a
// serialization-failure flag and the local agreement bit. It returns nil
// only when every peer's schema matched at every pairwise comparison.
func SchemaConsistent(ctx context.Context, c comm.Comm, local *schema.Schema) error {
	runID, err := uuid.NewV4()
	if err != nil {
		return tserrors.ArrowError{Cause: err}
	}
	log.Printf("[%s] worker %d: entering schema barrier %s", logging.LogLevelToString(logging.DebugLevel), c.WorkerID(), runID)

	var buf bytes.Buffer
	serializeErr := local.Serialize(&buf)

	failFlag := int64(0)
	if serializeErr != nil {
		failFlag = 1
	}
	totalFailures, err := c.AllReduceSumInt64(ctx, failFlag)
	if err != nil {
		return tserrors.ArrowError{Cause: err}
	}
	if totalFailures > 0 {
		return tserrors.ArrowError{Cause: serializeErr}
	}

	n := c.WorkerNum()
	self := c.WorkerID()
	localBytes := buf.Bytes()

	agree := true
	var mu sync.Mutex
	var exchangeErrs *multierror.Error
	var wg sync.WaitGroup

	// Sender walks the ring ascending, receiver walks it descending, so
	// every ordered pair exchanges exactly once without two peers both
	// waiting to send to each other first (spec.md section 9). Sender and
	// receiver failures are independent of one another, so both are kept
	// rather than only the first one observed.
	wg.Add(2)
	go func() {
		defer wg.Done()
		for stride := 1; stride < n; stride++ {
			dst := (self + stride) % n
			if err := c.Send(ctx, dst, localBytes); err != nil {
				mu.Lock()
				exchangeErrs = multierror.Append(exchangeErrs, err)
				mu.Unlock()
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for stride := 1; stride < n; stride++ {
			src := ((self-stride)%n + n) % n
			peerBytes, err := c.Recv(ctx, src)
			if err != nil {
				mu.Lock()
				exchangeErrs = multierror.Append(exchangeErrs, err)
				mu.Unlock()
				return
			}
			peerSchema, err := schema.Deserialize(bytes.NewReader(peerBytes))
			if err != nil {
				mu.Lock()
				exchangeErrs = multierror.Append(exchangeErrs, err)
				mu.Unlock()
				return
			}
			if !local.Equals(peerSchema) {
				mu.Lock()
				agree = false
				mu.Unlock()
			}
		}
	}()
	wg.Wait()

	if exchangeErrs != nil {
		log.Printf("[%s] worker %d: schema barrier %s failed: %s", logging.LogLevelToString(logging.ErrorLevel), c.WorkerID(), runID, util.FormatMultiError(exchangeErrs.Errors))
		return tserrors.ArrowError{Cause: exchangeErrs.ErrorOrNil()}
	}

	if err := c.Barrier(ctx); err != nil {
		return tserrors.ArrowError{Cause: err}
	}

	globalAgree, err := c.AllReduceAndBool(ctx, agree)
	if err != nil {
		return tserrors.ArrowError{Cause: err}
	}
	if !globalAgree {
		log.Printf("[%s] worker %d: schema barrier %s detected a mismatch", logging.LogLevelToString(logging.WarnLevel), c.WorkerID(), runID)
		return tserrors.InvalidOperationError{Reason: "peer schemas are not identical"}
	}
	return nil
}
