// Package rb provides the bounded single-producer/single-consumer ring
// buffer connecting two adjacent pipeline stages. Writes block while the
// buffer is full and reads block while it is empty, which is what gives
// the pipeline its backpressure. A closed buffer keeps serving reads
// until drained, then reports ErrClosed.
package rb

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// ErrClosed is returned when the buffer is closed: immediately on Write,
// and once the remaining items are drained on Read.
var ErrClosed = errors.New("ring buffer: buffer is closed")

// spinBudget is how many lock-free attempts a side makes before parking
// on its condition variable.
var spinBudget = runtime.NumCPU() * 32

// RingBuffer is a bounded SPSC ring buffer with blocking semantics:
// exactly one goroutine writes and exactly one reads. The capacity is
// fixed at creation and rounded up to a power of two.
//
// Both sides run lock-free as long as the buffer is neither full nor
// empty; the mutex and conditions only come into play to park and wake
// a starved side.
type RingBuffer[T any] struct {
	writePos atomic.Uint64

	_ cpu.CacheLinePad

	readPos atomic.Uint64

	_ cpu.CacheLinePad

	mask  uint64
	items []T

	_ cpu.CacheLinePad

	closed       atomic.Bool
	writerParked atomic.Bool
	readerParked atomic.Bool

	mux        sync.Mutex
	spaceFreed *sync.Cond
	itemPushed *sync.Cond
}

// NewRingBuffer returns a new ring buffer with the given capacity.
func NewRingBuffer[T any](capacity uint64) *RingBuffer[T] {
	rb := &RingBuffer[T]{}

	size := nextPow2(capacity)
	rb.mask = size - 1
	rb.items = make([]T, size)

	rb.spaceFreed = sync.NewCond(&rb.mux)
	rb.itemPushed = sync.NewCond(&rb.mux)

	return rb
}

func nextPow2(v uint64) uint64 {
	if v == 0 {
		return 1
	}

	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v |= v >> 32

	return v + 1
}

func (rb *RingBuffer[T]) tryPush(item T) bool {
	w := rb.writePos.Load()

	if w-rb.readPos.Load() == uint64(len(rb.items)) {
		return false
	}

	rb.items[w&rb.mask] = item
	rb.writePos.Add(1)

	return true
}

func (rb *RingBuffer[T]) tryPop() (T, bool) {
	var zero T

	r := rb.readPos.Load()
	if r == rb.writePos.Load() {
		return zero, false
	}

	idx := r & rb.mask
	item := rb.items[idx]
	rb.items[idx] = zero
	rb.readPos.Add(1)

	return item, true
}

// wakeReader unparks the consumer after a push.
func (rb *RingBuffer[T]) wakeReader() {
	if rb.readerParked.CompareAndSwap(true, false) {
		rb.mux.Lock()
		rb.itemPushed.Broadcast()
		rb.mux.Unlock()
	}
}

// wakeWriter unparks the producer after a pop.
func (rb *RingBuffer[T]) wakeWriter() {
	if rb.writerParked.CompareAndSwap(true, false) {
		rb.mux.Lock()
		rb.spaceFreed.Broadcast()
		rb.mux.Unlock()
	}
}

// await blocks on the condition until it is signaled or the context is
// done. The caller holds the mutex.
func (rb *RingBuffer[T]) await(ctx context.Context, cond *sync.Cond) error {
	woken := make(chan struct{})

	go func() {
		defer close(woken)
		cond.Wait()
	}()

	select {
	case <-woken:
		return nil

	case <-ctx.Done():
		cond.Broadcast()
		<-woken
		return ctx.Err()
	}
}

// Write pushes an item, blocking while the buffer is full.
// It returns ErrClosed if the buffer is closed and the context error
// if the context is cancelled while waiting.
func (rb *RingBuffer[T]) Write(ctx context.Context, item T) error {
	if rb.closed.Load() {
		return ErrClosed
	}

	for range spinBudget {
		if rb.tryPush(item) {
			rb.wakeReader()
			return nil
		}

		runtime.Gosched()
	}

	for {
		if rb.tryPush(item) {
			rb.wakeReader()
			return nil
		}

		rb.mux.Lock()
		rb.writerParked.Store(true)

		// Recheck with the parked flag visible so a concurrent pop
		// cannot slip between the last attempt and the wait
		if rb.tryPush(item) {
			rb.writerParked.Store(false)
			rb.mux.Unlock()
			rb.wakeReader()

			return nil
		}

		if rb.closed.Load() {
			rb.mux.Unlock()
			return ErrClosed
		}

		if err := rb.await(ctx, rb.spaceFreed); err != nil {
			rb.mux.Unlock()
			return err
		}

		rb.mux.Unlock()

		if rb.closed.Load() {
			return ErrClosed
		}
	}
}

// Read pops an item, blocking while the buffer is empty.
// A closed buffer is drained before ErrClosed is returned, so the
// consumer always observes every item written before the close.
func (rb *RingBuffer[T]) Read(ctx context.Context) (T, error) {
	var zero T

	for range spinBudget {
		if item, ok := rb.tryPop(); ok {
			rb.wakeWriter()
			return item, nil
		}

		runtime.Gosched()
	}

	for {
		if item, ok := rb.tryPop(); ok {
			rb.wakeWriter()
			return item, nil
		}

		rb.mux.Lock()
		rb.readerParked.Store(true)

		if item, ok := rb.tryPop(); ok {
			rb.readerParked.Store(false)
			rb.mux.Unlock()
			rb.wakeWriter()

			return item, nil
		}

		// Empty and closed: nothing left to drain
		if rb.closed.Load() {
			rb.mux.Unlock()
			return zero, ErrClosed
		}

		if err := rb.await(ctx, rb.itemPushed); err != nil {
			rb.mux.Unlock()
			return zero, err
		}

		rb.mux.Unlock()
	}
}

// Len returns the number of items in the buffer.
func (rb *RingBuffer[T]) Len() uint64 {
	return rb.writePos.Load() - rb.readPos.Load()
}

// Close closes the buffer and wakes up any blocked producer or consumer.
// It is idempotent.
func (rb *RingBuffer[T]) Close() {
	if !rb.closed.CompareAndSwap(false, true) {
		return
	}

	rb.mux.Lock()
	rb.itemPushed.Broadcast()
	rb.spaceFreed.Broadcast()
	rb.mux.Unlock()
}

// IsClosed states whether the buffer is closed.
func (rb *RingBuffer[T]) IsClosed() bool {
	return rb.closed.Load()
}
