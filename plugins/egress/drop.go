package egress

import (
	"context"

	"github.com/FerroO2000/flusso/packet"
	"github.com/FerroO2000/flusso/plugin"
)

// Drop is an output discarding every packet. It terminates a pipeline
// run for its side effects: processing, counting, pacing.
type Drop struct {
	plugin.Base
}

// NewDrop returns a new drop output.
func NewDrop() *Drop {
	return &Drop{
		Base: plugin.NewBase(plugin.KindOutput, "drop"),
	}
}

// Configure accepts any option set.
func (d *Drop) Configure(_ plugin.Options) error { return nil }

// Start acquires no resources.
func (d *Drop) Start(_ context.Context) error { return nil }

// Stop releases no resources.
func (d *Drop) Stop() error { return nil }

// Send discards the packet.
func (d *Drop) Send(_ context.Context, _ *packet.Packet) error {
	d.AddPackets(1)

	return nil
}
