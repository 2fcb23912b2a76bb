package process

import (
	"context"
	"fmt"
	"time"

	"github.com/FerroO2000/flusso/packet"
	"github.com/FerroO2000/flusso/plugin"
)

// Regulate is a processor pacing the stream to a fixed packet rate,
// turning a file-speed source into a real-time one. Pacing accumulates
// credit while the stage waits for packets; a gap longer than one
// second resets the schedule instead of producing a burst.
type Regulate struct {
	plugin.Base

	pps      uint64
	interval time.Duration

	next time.Time
}

// NewRegulate returns a new regulate processor.
func NewRegulate() *Regulate {
	return &Regulate{
		Base: plugin.NewBase(plugin.KindProcessor, "regulate"),
	}
}

// Configure parses the option set.
//
// Options: "pps" (packets per second, required).
func (r *Regulate) Configure(opts plugin.Options) error {
	pps, err := opts.Uint64("pps", 0)
	if err != nil {
		return err
	}
	if pps == 0 {
		return fmt.Errorf(`option "pps" is required and must be positive`)
	}

	r.pps = pps
	r.interval = time.Second / time.Duration(pps)

	return nil
}

// Start arms the schedule.
func (r *Regulate) Start(_ context.Context) error {
	r.next = time.Now()

	return nil
}

// Stop releases no resources.
func (r *Regulate) Stop() error { return nil }

// Process delays the packet until its scheduled release time.
func (r *Regulate) Process(ctx context.Context, _ *packet.Packet) (plugin.Disposition, error) {
	r.AddPackets(1)

	now := time.Now()

	if now.Sub(r.next) > time.Second {
		r.next = now
	}

	if wait := r.next.Sub(now); wait > 0 {
		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			return plugin.DispositionDrop, ctx.Err()

		case <-timer.C:
		}
	}

	r.next = r.next.Add(r.interval)

	return plugin.DispositionKeep, nil
}

// IsRealTime reports true.
func (r *Regulate) IsRealTime() bool { return true }
