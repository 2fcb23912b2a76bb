package rb

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_RingBuffer_Ordering(t *testing.T) {
	assert := assert.New(t)

	const totalItems = 100_000

	rb := NewRingBuffer[int](1024)

	var consumerWg sync.WaitGroup
	consumerWg.Add(1)

	received := make([]int, 0, totalItems)

	go func() {
		defer consumerWg.Done()

		for {
			item, err := rb.Read(t.Context())
			if err != nil {
				assert.ErrorIs(err, ErrClosed)
				return
			}

			received = append(received, item)
		}
	}()

	for i := range totalItems {
		assert.NoError(rb.Write(t.Context(), i))
	}

	rb.Close()
	consumerWg.Wait()

	assert.Len(received, totalItems)

	// Items must come out in exactly the order they went in
	for i, item := range received {
		if item != i {
			t.Fatalf("out of order at index %d: got %d", i, item)
		}
	}
}

func Test_RingBuffer_DrainAfterClose(t *testing.T) {
	assert := assert.New(t)

	rb := NewRingBuffer[int](16)

	for i := range 10 {
		assert.NoError(rb.Write(t.Context(), i))
	}

	rb.Close()
	assert.True(rb.IsClosed())
	assert.Equal(uint64(10), rb.Len())

	// Writes fail immediately once closed
	assert.ErrorIs(rb.Write(t.Context(), 99), ErrClosed)

	// Buffered items are still readable
	for i := range 10 {
		item, err := rb.Read(t.Context())
		assert.NoError(err)
		assert.Equal(i, item)
	}

	_, err := rb.Read(t.Context())
	assert.ErrorIs(err, ErrClosed)
}

func Test_RingBuffer_Backpressure(t *testing.T) {
	assert := assert.New(t)

	rb := NewRingBuffer[int](4)

	for i := range 4 {
		assert.NoError(rb.Write(t.Context(), i))
	}

	// The producer must block on a full buffer until the consumer reads
	writeDone := make(chan error, 1)
	go func() {
		writeDone <- rb.Write(context.Background(), 4)
	}()

	select {
	case <-writeDone:
		t.Fatal("write on a full buffer did not block")
	case <-time.After(50 * time.Millisecond):
	}

	item, err := rb.Read(t.Context())
	assert.NoError(err)
	assert.Equal(0, item)

	select {
	case err := <-writeDone:
		assert.NoError(err)
	case <-time.After(time.Second):
		t.Fatal("write did not resume after a read freed space")
	}
}

func Test_RingBuffer_ContextCancel(t *testing.T) {
	assert := assert.New(t)

	rb := NewRingBuffer[int](4)

	ctx, cancelCtx := context.WithCancel(t.Context())

	readDone := make(chan error, 1)
	go func() {
		_, err := rb.Read(ctx)
		readDone <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancelCtx()

	select {
	case err := <-readDone:
		assert.ErrorIs(err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("read did not wake up on context cancellation")
	}
}

func Test_RingBuffer_CloseWakesBlockedProducer(t *testing.T) {
	assert := assert.New(t)

	rb := NewRingBuffer[int](2)

	assert.NoError(rb.Write(t.Context(), 0))
	assert.NoError(rb.Write(t.Context(), 1))

	writeDone := make(chan error, 1)
	go func() {
		writeDone <- rb.Write(context.Background(), 2)
	}()

	time.Sleep(20 * time.Millisecond)
	rb.Close()

	select {
	case err := <-writeDone:
		assert.ErrorIs(err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("blocked producer was not woken by Close")
	}
}

func Test_nextPow2(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(uint64(1), nextPow2(0))
	assert.Equal(uint64(1), nextPow2(1))
	assert.Equal(uint64(2), nextPow2(2))
	assert.Equal(uint64(4), nextPow2(3))
	assert.Equal(uint64(1024), nextPow2(1000))
	assert.Equal(uint64(2048), nextPow2(2048))
}
