package term

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Coordinator_Join(t *testing.T) {
	assert := assert.New(t)

	coord := NewCoordinator()
	assert.Equal(0, coord.Participants())
	assert.Equal(0, coord.Remaining())

	h1 := coord.Join()
	h2 := coord.Join()

	assert.Equal(2, coord.Participants())
	assert.Equal(2, coord.Remaining())
	assert.False(h1.Completed())
	assert.False(h2.Completed())

	_, decided := coord.StopPoint()
	assert.False(decided)
}

func Test_Coordinator_HighestWins(t *testing.T) {
	assert := assert.New(t)

	coord := NewCoordinator()
	h1 := coord.Join()
	h2 := coord.Join()
	h3 := coord.Join()

	// One of three completing does not end the run
	assert.False(h1.Complete(1000))
	assert.Equal(uint64(1000), coord.Highest())
	assert.Equal(2, coord.Remaining())

	_, decided := coord.StopPoint()
	assert.False(decided)

	// A lower position must not lower the agreed point
	assert.False(h2.Complete(500))
	assert.Equal(uint64(1000), coord.Highest())

	last := h3.Complete(2500)
	assert.True(last)

	stop, decided := coord.StopPoint()
	assert.True(decided)
	assert.Equal(uint64(2500), stop)
}

func Test_Coordinator_LastCompleterDecides(t *testing.T) {
	assert := assert.New(t)

	coord := NewCoordinator()

	handles := make([]*Handle, 5)
	for i := range handles {
		handles[i] = coord.Join()
	}

	decisions := 0
	for i, h := range handles {
		if h.Complete(uint64(100 * (i + 1))) {
			decisions++
		}
	}

	// Exactly one completion observes the decision
	assert.Equal(1, decisions)
	assert.Equal(0, coord.Remaining())

	stop, decided := coord.StopPoint()
	assert.True(decided)
	assert.Equal(uint64(500), stop)
}

func Test_Handle_CompleteIdempotent(t *testing.T) {
	assert := assert.New(t)

	coord := NewCoordinator()
	h1 := coord.Join()
	h2 := coord.Join()

	assert.False(h1.Complete(100))
	assert.Equal(1, coord.Remaining())

	// Completing again must not decrement remaining or raise highest
	assert.False(h1.Complete(9999))
	assert.Equal(1, coord.Remaining())
	assert.Equal(uint64(100), coord.Highest())

	assert.True(h2.Complete(50))
}

func Test_Handle_TryAdopt(t *testing.T) {
	assert := assert.New(t)

	coord := NewCoordinator()
	h1 := coord.Join()
	h2 := coord.Join()

	// Nothing to adopt before the first completion
	assert.False(h2.TryAdopt(500))
	assert.False(h2.Completed())

	assert.False(h1.Complete(1000))

	// Not yet caught up with the highest recorded position
	assert.False(h2.TryAdopt(999))
	assert.False(h2.Completed())

	// Caught up: adopts, completing the run without raising highest
	assert.True(h2.TryAdopt(1000))
	assert.True(h2.Completed())

	stop, decided := coord.StopPoint()
	assert.True(decided)
	assert.Equal(uint64(1000), stop)
}

func Test_Handle_TryAdoptAfterCompleted(t *testing.T) {
	assert := assert.New(t)

	coord := NewCoordinator()
	h1 := coord.Join()
	coord.Join()

	assert.False(h1.Complete(100))
	assert.False(h1.TryAdopt(200))
	assert.Equal(1, coord.Remaining())
}

func Test_Coordinator_SingleParticipant(t *testing.T) {
	assert := assert.New(t)

	coord := NewCoordinator()
	h := coord.Join()

	assert.True(h.Complete(42))

	stop, decided := coord.StopPoint()
	assert.True(decided)
	assert.Equal(uint64(42), stop)
}

func Test_Coordinator_ConcurrentCompletions(t *testing.T) {
	assert := assert.New(t)

	const participantCount = 64

	coord := NewCoordinator()

	handles := make([]*Handle, participantCount)
	for i := range handles {
		handles[i] = coord.Join()
	}

	var decisions sync.Map
	wg := &sync.WaitGroup{}
	for i, h := range handles {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if h.Complete(uint64(i)) {
				decisions.Store(i, struct{}{})
			}
		}()
	}
	wg.Wait()

	decisionCount := 0
	decisions.Range(func(_, _ any) bool {
		decisionCount++
		return true
	})
	assert.Equal(1, decisionCount)

	stop, decided := coord.StopPoint()
	assert.True(decided)
	assert.Equal(uint64(participantCount-1), stop)
	assert.Equal(0, coord.Remaining())
}
