// Package comm defines the group-communication transport contract the
// shuffle core is built on top of — worker/fragment identity and mapping,
// point-to-point send/recv, all-reduce, and barrier (spec.md section 6). It
// is deliberately an interface only: the transport itself is named an
// external collaborator, out of scope for this module. local.go supplies an
// in-process reference implementation used by this module's own tests.
package comm

import "context"

// Comm is the collaborator contract the Schema Barrier, Shuffle Engine, and
// both routers depend on. A production deployment backs this with a real
// network transport; this module never assumes one.
type Comm interface {
	// WorkerNum returns the total number of peer workers in the collective.
	WorkerNum() int
	// FragmentNum returns the total number of fragments across all workers.
	FragmentNum() int
	// WorkerID returns the local worker's zero-based id.
	WorkerID() int
	// FragmentID returns the local fragment's id.
	FragmentID() int
	// WorkerToFrag maps a worker id to the fragment id it owns.
	WorkerToFrag(workerID int) int
	// FragToWorker maps a fragment id to the worker id that owns it.
	FragToWorker(fragID int) int

	// Send delivers buf to peer dst, identified by worker id. It blocks
	// until the transport accepts the payload.
	Send(ctx context.Context, dst int, buf []byte) error
	// Recv blocks until a message has arrived from src (worker id) and
	// returns its payload.
	Recv(ctx context.Context, src int) ([]byte, error)
	// RecvAny blocks until a message has arrived from any peer and returns
	// the sender's worker id along with the payload — the "probe any
	// source" idiom the Shuffle Engine's receive thread relies on (spec.md
	// section 4.4, section 9).
	RecvAny(ctx context.Context) (src int, buf []byte, err error)

	// AllReduceSumInt64 sums v across every worker and returns the total.
	AllReduceSumInt64(ctx context.Context, v int64) (int64, error)
	// AllReduceAndBool reduces v across every worker with logical AND.
	AllReduceAndBool(ctx context.Context, v bool) (bool, error)

	// Barrier blocks until every worker has entered it.
	Barrier(ctx context.Context) error
}
