package queue

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueuePutGetOrderWithinOneProducer(t *testing.T) {
	q := New[int](4)
	q.SetProducerNum(1)
	go func() {
		for i := 0; i < 5; i++ {
			q.Put(i)
		}
		q.ProducerDone()
	}()

	var got []int
	for {
		v, ok := q.Get()
		if !ok {
			break
		}
		got = append(got, v)
	}
	require.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestQueueDrainsAfterAllProducersDone(t *testing.T) {
	q := New[int](2)
	const producers = 3
	q.SetProducerNum(producers)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			defer q.ProducerDone()
			for i := 0; i < 4; i++ {
				q.Put(p*10 + i)
			}
		}(p)
	}

	var got []int
	done := make(chan struct{})
	go func() {
		for {
			v, ok := q.Get()
			if !ok {
				close(done)
				return
			}
			got = append(got, v)
		}
	}()

	wg.Wait()
	<-done
	require.Len(t, got, producers*4)
	sort.Ints(got)
	want := make([]int, 0, producers*4)
	for p := 0; p < producers; p++ {
		for i := 0; i < 4; i++ {
			want = append(want, p*10+i)
		}
	}
	sort.Ints(want)
	require.Equal(t, want, got)
}

func TestQueueZeroProducersDrainsImmediately(t *testing.T) {
	q := New[int](1)
	q.SetProducerNum(0)
	_, ok := q.Get()
	require.False(t, ok)
}
