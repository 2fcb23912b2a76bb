package ingress

import (
	"context"

	"github.com/FerroO2000/flusso/packet"
	"github.com/FerroO2000/flusso/plugin"
)

// Null is an input producing zeroed packets, optionally capped.
// Useful as a load generator and in tests.
type Null struct {
	plugin.Base

	// maxPackets caps the production; 0 means unlimited.
	maxPackets uint64
}

// NewNull returns a new null input.
func NewNull() *Null {
	return &Null{
		Base: plugin.NewBase(plugin.KindInput, "null"),
	}
}

// Configure parses the option set.
//
// Options: "packets" (uint, 0 = unlimited).
func (n *Null) Configure(opts plugin.Options) error {
	maxPackets, err := opts.Uint64("packets", 0)
	if err != nil {
		return err
	}
	n.maxPackets = maxPackets

	return nil
}

// Start acquires no resources.
func (n *Null) Start(_ context.Context) error { return nil }

// Stop releases no resources.
func (n *Null) Stop() error { return nil }

// Receive fills the packet with zeroes.
func (n *Null) Receive(ctx context.Context, pkt *packet.Packet) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	if n.maxPackets > 0 && n.PacketCount() >= n.maxPackets {
		return false, nil
	}

	clear(pkt.Data())
	n.AddPackets(1)

	return true, nil
}

// BitRate is unknown.
func (n *Null) BitRate() uint64 { return 0 }
