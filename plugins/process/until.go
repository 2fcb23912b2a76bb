package process

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/FerroO2000/flusso/packet"
	"github.com/FerroO2000/flusso/plugin"
)

// Until is a processor bounding the run: it keeps packets until a
// packet-count, elapsed-time or byte-match criterion fires. By default
// it takes part in the termination protocol, so several until instances
// (or any other participants) end the run at one agreed stream position;
// with "local" it instead keeps dropping packets after its own
// criterion, leaving the end of the run to the source.
type Until struct {
	plugin.Base
	plugin.Joint

	maxPackets uint64
	window     time.Duration

	matchOn     bool
	matchOffset int
	matchValue  byte

	deadline time.Time

	localDone bool
}

// NewUntil returns a new until processor.
func NewUntil() *Until {
	return &Until{
		Base: plugin.NewBase(plugin.KindProcessor, "until"),
	}
}

// Configure parses the option set.
//
// Options: "packets" (keep at most N packets), "duration" (keep packets
// for a window after start), "value" with optional "offset" (stop on the
// first packet whose payload byte at the offset matches), "local" (bool,
// do not take part in the termination protocol). At least one criterion
// is required.
func (u *Until) Configure(opts plugin.Options) error {
	maxPackets, err := opts.Uint64("packets", 0)
	if err != nil {
		return err
	}
	u.maxPackets = maxPackets

	window, err := opts.Duration("duration", 0)
	if err != nil {
		return err
	}
	u.window = window

	if opts.Has("value") {
		value, err := opts.Uint64("value", 0)
		if err != nil {
			return err
		}
		if value > 0xff {
			return fmt.Errorf(`option "value": must fit one byte, got %d`, value)
		}

		offset, err := opts.Int("offset", 0)
		if err != nil {
			return err
		}
		if offset < 0 {
			return fmt.Errorf(`option "offset": must not be negative, got %d`, offset)
		}

		u.matchOn = true
		u.matchOffset = offset
		u.matchValue = byte(value)
	}

	if u.maxPackets == 0 && u.window <= 0 && !u.matchOn {
		return errors.New(`at least one of "packets", "duration" and "value" is required`)
	}

	local, err := opts.Bool("local", false)
	if err != nil {
		return err
	}
	u.SetJointTermination(!local)

	return nil
}

// Start arms the time window.
func (u *Until) Start(_ context.Context) error {
	if u.window > 0 {
		u.deadline = time.Now().Add(u.window)
	}

	return nil
}

// Stop releases no resources.
func (u *Until) Stop() error { return nil }

// Process keeps the packet and checks the stopping criteria.
// The packet firing a criterion is the last one kept.
func (u *Until) Process(_ context.Context, pkt *packet.Packet) (plugin.Disposition, error) {
	count := u.AddPackets(1)

	if u.localDone {
		return plugin.DispositionDrop, nil
	}

	fired := (u.maxPackets > 0 && count >= u.maxPackets) ||
		(u.window > 0 && !time.Now().Before(u.deadline)) ||
		u.matches(pkt.Data())

	if !fired {
		return plugin.DispositionKeep, nil
	}

	if u.UseJointTermination() {
		u.Complete(count)
	} else {
		u.localDone = true
	}

	return plugin.DispositionKeep, nil
}

func (u *Until) matches(data []byte) bool {
	return u.matchOn && u.matchOffset < len(data) && data[u.matchOffset] == u.matchValue
}
