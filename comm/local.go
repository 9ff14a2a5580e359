package comm

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// inboxCapacity bounds how many unconsumed messages may sit in one worker's
// mailbox at a time. This in-process transport has no network buffer of
// its own, so Send backs off once a destination's mailbox is full —
// mirroring spec.md section 5's "outbound and inbound queues are bounded"
// at the transport layer too.
const inboxCapacity = 4096

// message is one point-to-point payload in flight, tagged with its sender.
type message struct {
	src int
	buf []byte
}

// inbox is a blocking mailbox that supports both "receive from a specific
// peer" (the Schema Barrier's ring exchange) and "receive from any peer"
// (the Shuffle Engine's receive thread, spec.md section 4.4/9) against the
// same underlying queue. Capacity is enforced with a weighted semaphore, the
// same bounded-admission idiom the teacher's coordinator uses to cap
// concurrent partition collection.
type inbox struct {
	mu     sync.Mutex
	queue  []message
	notify chan struct{}
	sem    *semaphore.Weighted
}

func newInbox() *inbox {
	return &inbox{notify: make(chan struct{}, 1), sem: semaphore.NewWeighted(inboxCapacity)}
}

func (b *inbox) push(ctx context.Context, m message) error {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	b.mu.Lock()
	b.queue = append(b.queue, m)
	b.mu.Unlock()
	select {
	case b.notify <- struct{}{}:
	default:
	}
	return nil
}

// pop removes and returns the first queued message for which match returns
// true, blocking until one arrives or ctx is cancelled.
func (b *inbox) pop(ctx context.Context, match func(message) bool) (message, error) {
	for {
		b.mu.Lock()
		for i, m := range b.queue {
			if match(m) {
				b.queue = append(b.queue[:i:i], b.queue[i+1:]...)
				b.mu.Unlock()
				b.sem.Release(1)
				return m, nil
			}
		}
		b.mu.Unlock()
		select {
		case <-b.notify:
		case <-ctx.Done():
			return message{}, ctx.Err()
		}
	}
}

// hub is the shared state every LocalComm in one in-process cluster is bound
// to: per-destination inboxes for point-to-point traffic, plus the
// rendezvous points backing AllReduce and Barrier.
type hub struct {
	workerNum   int
	fragmentNum int
	workerOfFrag []int
	fragOfWorker []int

	inboxes []*inbox

	barrier *collective[int]
	sum     *collective[int64]
	and     *collective[bool]
}

// NewLocalCluster builds n LocalComm handles sharing one in-process hub,
// with a 1:1 worker-to-fragment mapping — the typical deployment spec.md's
// GLOSSARY describes. It is this module's own reference implementation of
// the "group-communication transport" collaborator spec.md section 6 names
// as deliberately out of scope; production callers supply their own.
func NewLocalCluster(n int) []*LocalComm {
	workerOfFrag := make([]int, n)
	fragOfWorker := make([]int, n)
	inboxes := make([]*inbox, n)
	for i := 0; i < n; i++ {
		workerOfFrag[i] = i
		fragOfWorker[i] = i
		inboxes[i] = newInbox()
	}
	h := &hub{
		workerNum:    n,
		fragmentNum:  n,
		workerOfFrag: workerOfFrag,
		fragOfWorker: fragOfWorker,
		inboxes:      inboxes,
		barrier:      newCollective(n, 0, func(a, b int) int { return a + b }),
		sum:          newCollective(n, int64(0), func(a, b int64) int64 { return a + b }),
		and:          newCollective(n, true, func(a, b bool) bool { return a && b }),
	}
	comms := make([]*LocalComm, n)
	for i := 0; i < n; i++ {
		comms[i] = &LocalComm{hub: h, workerID: i}
	}
	return comms
}

// LocalComm is the in-process Comm implementation bound to one worker's
// identity within a shared hub.
type LocalComm struct {
	hub      *hub
	workerID int
}

var _ Comm = (*LocalComm)(nil)

func (c *LocalComm) WorkerNum() int   { return c.hub.workerNum }
func (c *LocalComm) FragmentNum() int { return c.hub.fragmentNum }
func (c *LocalComm) WorkerID() int    { return c.workerID }
func (c *LocalComm) FragmentID() int  { return c.hub.fragOfWorker[c.workerID] }

func (c *LocalComm) WorkerToFrag(workerID int) int { return c.hub.fragOfWorker[workerID] }
func (c *LocalComm) FragToWorker(fragID int) int   { return c.hub.workerOfFrag[fragID] }

func (c *LocalComm) Send(ctx context.Context, dst int, buf []byte) error {
	if dst < 0 || dst >= c.hub.workerNum {
		return fmt.Errorf("comm: send to out-of-range worker %d", dst)
	}
	cp := make([]byte, len(buf))
	copy(cp, buf)
	return c.hub.inboxes[dst].push(ctx, message{src: c.workerID, buf: cp})
}

func (c *LocalComm) Recv(ctx context.Context, src int) ([]byte, error) {
	m, err := c.hub.inboxes[c.workerID].pop(ctx, func(m message) bool { return m.src == src })
	if err != nil {
		return nil, err
	}
	return m.buf, nil
}

func (c *LocalComm) RecvAny(ctx context.Context) (int, []byte, error) {
	m, err := c.hub.inboxes[c.workerID].pop(ctx, func(message) bool { return true })
	if err != nil {
		return 0, nil, err
	}
	return m.src, m.buf, nil
}

func (c *LocalComm) AllReduceSumInt64(ctx context.Context, v int64) (int64, error) {
	return c.hub.sum.enter(ctx, v)
}

func (c *LocalComm) AllReduceAndBool(ctx context.Context, v bool) (bool, error) {
	return c.hub.and.enter(ctx, v)
}

func (c *LocalComm) Barrier(ctx context.Context) error {
	_, err := c.hub.barrier.enter(ctx, 1)
	return err
}

// collective is a generic, repeatable rendezvous: each of n participants
// calls enter with its local contribution; the n'th arrival combines every
// contribution and releases all n callers with the same reduced value. It
// backs AllReduceSumInt64, AllReduceAndBool, and Barrier alike.
type collective[T any] struct {
	mu      sync.Mutex
	n       int
	count   int
	zero    T
	acc     T
	combine func(a, b T) T
	ch      chan T
}

func newCollective[T any](n int, zero T, combine func(a, b T) T) *collective[T] {
	ch := make(chan T, n)
	if n == 0 {
		ch = make(chan T)
	}
	return &collective[T]{n: n, zero: zero, acc: zero, combine: combine, ch: ch}
}

func (c *collective[T]) enter(ctx context.Context, v T) (T, error) {
	c.mu.Lock()
	c.acc = c.combine(c.acc, v)
	c.count++
	if c.count == c.n {
		result := c.acc
		c.acc = c.zero
		c.count = 0
		for i := 0; i < c.n-1; i++ {
			c.ch <- result
		}
		// Later rounds wait on a fresh channel, so an early entrant of the
		// next round cannot take a result meant for this round's waiters.
		c.ch = make(chan T, c.n)
		c.mu.Unlock()
		return result, nil
	}
	ch := c.ch
	c.mu.Unlock()
	select {
	case result := <-ch:
		return result, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
