package process

import (
	"context"
	"fmt"

	"github.com/FerroO2000/flusso/packet"
	"github.com/FerroO2000/flusso/plugin"
)

// Filter is a processor keeping only packets whose payload byte at a
// fixed offset matches an expected value. An offset past the payload
// never matches.
type Filter struct {
	plugin.Base

	offset int
	value  byte
	invert bool
}

// NewFilter returns a new filter processor.
func NewFilter() *Filter {
	return &Filter{
		Base: plugin.NewBase(plugin.KindProcessor, "filter"),
	}
}

// Configure parses the option set.
//
// Options: "offset" (byte offset, default 0), "value" (expected byte,
// default 0), "invert" (bool, keep non-matching packets instead).
func (f *Filter) Configure(opts plugin.Options) error {
	offset, err := opts.Int("offset", 0)
	if err != nil {
		return err
	}
	if offset < 0 {
		return fmt.Errorf(`option "offset": must not be negative, got %d`, offset)
	}
	f.offset = offset

	value, err := opts.Uint64("value", 0)
	if err != nil {
		return err
	}
	if value > 0xff {
		return fmt.Errorf(`option "value": must fit one byte, got %d`, value)
	}
	f.value = byte(value)

	invert, err := opts.Bool("invert", false)
	if err != nil {
		return err
	}
	f.invert = invert

	return nil
}

// Start acquires no resources.
func (f *Filter) Start(_ context.Context) error { return nil }

// Stop releases no resources.
func (f *Filter) Stop() error { return nil }

// Process keeps or drops the packet based on the byte match.
func (f *Filter) Process(_ context.Context, pkt *packet.Packet) (plugin.Disposition, error) {
	f.AddPackets(1)

	data := pkt.Data()
	match := f.offset < len(data) && data[f.offset] == f.value

	if match != f.invert {
		return plugin.DispositionKeep, nil
	}

	return plugin.DispositionDrop, nil
}
