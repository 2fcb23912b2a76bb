// Package packet defines the fixed-size data unit flowing through the
// pipeline and the pool packets are recycled through. The engine treats
// the payload as opaque bytes: decoding whatever structure it carries is
// the business of the stages, never of the pipeline.
package packet

import (
	"sync"
	"time"
)

// DefaultSize is the default packet payload size in bytes.
const DefaultSize = 188

// Packet is the unit of stream data moved between stages.
// Ownership transfers exactly once per buffer hand-off: the stage holding
// a packet is its only reader and writer until it pushes it downstream,
// drops it back into the pool, or delivers it.
type Packet struct {
	data []byte

	sequenceNumber uint64
	receiveTime    time.Time
}

// Data returns the payload. Its length is the pool's packet size and
// never changes for the lifetime of the packet.
func (p *Packet) Data() []byte {
	return p.data
}

// Size returns the payload size in bytes.
func (p *Packet) Size() int {
	return len(p.data)
}

// SetSequenceNumber sets the position of the packet in the stream,
// assigned by the input stage starting from 0.
func (p *Packet) SetSequenceNumber(sequenceNumber uint64) {
	p.sequenceNumber = sequenceNumber
}

// SequenceNumber returns the position of the packet in the stream.
func (p *Packet) SequenceNumber() uint64 {
	return p.sequenceNumber
}

// SetReceiveTime sets the time the packet was acquired by the input stage.
func (p *Packet) SetReceiveTime(receiveTime time.Time) {
	p.receiveTime = receiveTime
}

// ReceiveTime returns the time the packet was acquired by the input stage.
func (p *Packet) ReceiveTime() time.Time {
	return p.receiveTime
}

// Pool recycles packets of a single fixed size.
type Pool struct {
	size int
	pool *sync.Pool
}

// NewPool returns a new pool producing packets of the given payload size.
// A non-positive size falls back to DefaultSize.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = DefaultSize
	}

	return &Pool{
		size: size,
		pool: &sync.Pool{
			New: func() any {
				return &Packet{
					data: make([]byte, size),
				}
			},
		},
	}
}

// Size returns the payload size of the packets produced by the pool.
func (pl *Pool) Size() int {
	return pl.size
}

// Get returns a packet from the pool. The payload may contain stale
// bytes from a previous use; input stages are expected to fill it.
func (pl *Pool) Get() *Packet {
	pkt := pl.pool.Get().(*Packet)
	pkt.sequenceNumber = 0
	pkt.receiveTime = time.Time{}

	return pkt
}

// Put returns a packet to the pool.
func (pl *Pool) Put(pkt *Packet) {
	if pkt != nil {
		pl.pool.Put(pkt)
	}
}
