// Package term implements the joint-termination protocol: the consensus
// mechanism reconciling the private stopping criteria of independent
// stages into one shared stream position.
//
// Without it, each stage with its own stopping rule (elapsed time,
// packet count, content match) would stop at its own local point and
// downstream stages would receive a stream truncated inconsistently.
// Stages opt in as participants; the agreed stop point is the highest
// packet position recorded across all completions, so every participant
// processes exactly the same prefix of the stream.
package term

import "sync"

// Coordinator holds the shared joint-termination state of one pipeline
// run. A single mutex guards the bookkeeping; every critical section is
// O(1) and no caller ever blocks while holding it.
type Coordinator struct {
	mux sync.Mutex

	participants int
	remaining    int

	// highest is the highest packet position recorded by a completed
	// participant. It is non-decreasing.
	highest uint64

	// decided is set when remaining reaches 0, exactly once per run.
	decided bool
}

// NewCoordinator returns a new coordinator with no participants.
func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// Join registers a new participant and returns its handle.
// It is called at pipeline assembly, before any packet flows.
func (c *Coordinator) Join() *Handle {
	c.mux.Lock()
	defer c.mux.Unlock()

	c.participants++
	c.remaining++

	return &Handle{coordinator: c}
}

// Participants returns the number of participants.
func (c *Coordinator) Participants() int {
	c.mux.Lock()
	defer c.mux.Unlock()

	return c.participants
}

// Remaining returns the number of participants not yet completed.
func (c *Coordinator) Remaining() int {
	c.mux.Lock()
	defer c.mux.Unlock()

	return c.remaining
}

// Highest returns the highest packet position recorded so far.
func (c *Coordinator) Highest() uint64 {
	c.mux.Lock()
	defer c.mux.Unlock()

	return c.highest
}

// StopPoint returns the agreed stop position. It is only valid once
// every participant has completed; before that, ok is false.
func (c *Coordinator) StopPoint() (uint64, bool) {
	c.mux.Lock()
	defer c.mux.Unlock()

	return c.highest, c.decided
}

// Handle is the per-participant view of the protocol.
// A handle belongs to exactly one stage; Complete and TryAdopt are only
// called from that stage's goroutine, while the coordinator state they
// touch is linearized by the coordinator mutex.
type Handle struct {
	coordinator *Coordinator

	completed bool
}

// Completed states whether this participant has completed, either on
// its own criterion or by adopting the agreed stop point.
func (h *Handle) Completed() bool {
	h.coordinator.mux.Lock()
	defer h.coordinator.mux.Unlock()

	return h.completed
}

// Complete records that the participant's private stopping criterion
// fired after processing count packets. It returns true when this call
// was the last completion, making the current highest position the
// authoritative pipeline stop point; exactly one caller per run
// observes true.
//
// A participant completing again is a no-op.
func (h *Handle) Complete(count uint64) bool {
	h.coordinator.mux.Lock()
	defer h.coordinator.mux.Unlock()

	return h.complete(count)
}

func (h *Handle) complete(count uint64) bool {
	if h.completed {
		return false
	}

	if count > h.coordinator.highest {
		h.coordinator.highest = count
	}

	h.coordinator.remaining--
	h.completed = true

	if h.coordinator.remaining == 0 {
		h.coordinator.decided = true
		return true
	}

	return false
}

// TryAdopt completes the participant implicitly: once at least one
// other participant has completed and this participant's own processed
// count has reached the highest recorded position, it adopts that
// position as its own completion instead of waiting for a private
// criterion that may fire later (or never). This is what keeps every
// participant on the same stream prefix.
//
// It returns true when the adoption was the last completion.
func (h *Handle) TryAdopt(count uint64) bool {
	h.coordinator.mux.Lock()
	defer h.coordinator.mux.Unlock()

	if h.completed {
		return false
	}

	// No completion recorded yet, nothing to adopt
	if h.coordinator.remaining == h.coordinator.participants {
		return false
	}

	if count < h.coordinator.highest {
		return false
	}

	return h.complete(count)
}

// Highest returns the highest packet position recorded so far.
func (h *Handle) Highest() uint64 {
	return h.coordinator.Highest()
}

// StopPoint returns the agreed stop position, valid once every
// participant has completed.
func (h *Handle) StopPoint() (uint64, bool) {
	return h.coordinator.StopPoint()
}
