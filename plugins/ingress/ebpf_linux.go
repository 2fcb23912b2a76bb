//go:build linux

package ingress

import (
	"context"
	"errors"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/perf"

	"github.com/FerroO2000/flusso/packet"
	"github.com/FerroO2000/flusso/plugin"
)

func registerPlatform(reg *plugin.Registry) {
	reg.RegisterInput("ebpf", func() plugin.Input { return NewEBPF() })
}

// EBPF is an input draining the samples of a pinned perf event array,
// one sample per packet. The eBPF program filling the array is loaded
// and attached by somebody else; this stage only consumes.
type EBPF struct {
	plugin.Base

	pinPath      string
	perCPUBuffer int

	events *ebpf.Map
	reader *perf.Reader
}

// NewEBPF returns a new eBPF perf input.
func NewEBPF() *EBPF {
	return &EBPF{
		Base: plugin.NewBase(plugin.KindInput, "ebpf"),
	}
}

// Configure parses the option set.
//
// Options: "map" (pin path of the perf event array, required),
// "buffer" (per-CPU buffer size in bytes, default 65536).
func (e *EBPF) Configure(opts plugin.Options) error {
	if !opts.Has("map") {
		return errors.New(`option "map" is required`)
	}
	e.pinPath = opts.String("map", "")

	perCPUBuffer, err := opts.Int("buffer", 64*1024)
	if err != nil {
		return err
	}
	e.perCPUBuffer = perCPUBuffer

	return nil
}

// Start opens the pinned map and the perf reader. The reader's blocking
// Read has no context hook, so cancellation closes the reader instead.
func (e *EBPF) Start(ctx context.Context) error {
	events, err := ebpf.LoadPinnedMap(e.pinPath, nil)
	if err != nil {
		return err
	}

	reader, err := perf.NewReader(events, e.perCPUBuffer)
	if err != nil {
		events.Close()
		return err
	}

	e.events = events
	e.reader = reader

	go func() {
		<-ctx.Done()
		e.reader.Close()
	}()

	return nil
}

// Stop closes the perf reader and the map.
func (e *EBPF) Stop() error {
	return e.StopOnce(func() error {
		if e.reader == nil {
			return nil
		}

		err := e.reader.Close()

		if mapErr := e.events.Close(); err == nil {
			err = mapErr
		}

		return err
	})
}

// Receive blocks for the next perf sample.
func (e *EBPF) Receive(_ context.Context, pkt *packet.Packet) (bool, error) {
	for {
		record, err := e.reader.Read()
		if err != nil {
			if errors.Is(err, perf.ErrClosed) {
				return false, nil
			}

			return false, err
		}

		if record.LostSamples > 0 {
			e.Tel.LogWarn("perf samples lost", "samples", record.LostSamples)
			continue
		}

		payload := pkt.Data()
		n := copy(payload, record.RawSample)
		clear(payload[n:])

		e.AddPackets(1)

		return true, nil
	}
}

// BitRate is unknown.
func (e *EBPF) BitRate() uint64 { return 0 }

// IsRealTime reports true: production is driven by kernel events.
func (e *EBPF) IsRealTime() bool { return true }
