package process

import (
	"context"

	"github.com/FerroO2000/flusso/packet"
	"github.com/FerroO2000/flusso/plugin"
)

// Skip is a processor dropping the first N packets of the stream and
// keeping everything after.
type Skip struct {
	plugin.Base

	count uint64
}

// NewSkip returns a new skip processor.
func NewSkip() *Skip {
	return &Skip{
		Base: plugin.NewBase(plugin.KindProcessor, "skip"),
	}
}

// Configure parses the option set.
//
// Options: "packets" (number of leading packets to drop, default 0).
func (s *Skip) Configure(opts plugin.Options) error {
	count, err := opts.Uint64("packets", 0)
	if err != nil {
		return err
	}
	s.count = count

	return nil
}

// Start acquires no resources.
func (s *Skip) Start(_ context.Context) error { return nil }

// Stop releases no resources.
func (s *Skip) Stop() error { return nil }

// Process drops the packet while inside the leading window.
func (s *Skip) Process(_ context.Context, _ *packet.Packet) (plugin.Disposition, error) {
	if s.AddPackets(1) <= s.count {
		return plugin.DispositionDrop, nil
	}

	return plugin.DispositionKeep, nil
}
