package ingress

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/google/gopacket/pcapgo"

	"github.com/FerroO2000/flusso/packet"
	"github.com/FerroO2000/flusso/plugin"
)

// PCAP is an input replaying the captured frames of a pcap file.
// Each frame becomes one packet: truncated when longer than the payload,
// zero-padded when shorter.
type PCAP struct {
	plugin.Base

	path string

	file   *os.File
	reader *pcapgo.Reader

	truncated uint64
}

// NewPCAP returns a new pcap input.
func NewPCAP() *PCAP {
	return &PCAP{
		Base: plugin.NewBase(plugin.KindInput, "pcap"),
	}
}

// Configure parses the option set.
//
// Options: "path" (required).
func (p *PCAP) Configure(opts plugin.Options) error {
	if !opts.Has("path") {
		return errors.New(`option "path" is required`)
	}
	p.path = opts.String("path", "")

	return nil
}

// Start opens the capture file.
func (p *PCAP) Start(_ context.Context) error {
	file, err := os.Open(p.path)
	if err != nil {
		return err
	}

	reader, err := pcapgo.NewReader(file)
	if err != nil {
		file.Close()
		return err
	}

	p.file = file
	p.reader = reader

	return nil
}

// Stop closes the capture file.
func (p *PCAP) Stop() error {
	return p.StopOnce(func() error {
		if p.truncated > 0 {
			p.Tel.LogWarn("frames were truncated to the packet size", "frames", p.truncated)
		}

		if p.file == nil {
			return nil
		}

		return p.file.Close()
	})
}

// Receive reads the next captured frame into the packet.
func (p *PCAP) Receive(ctx context.Context, pkt *packet.Packet) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	data, _, err := p.reader.ReadPacketData()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}

		return false, err
	}

	payload := pkt.Data()
	n := copy(payload, data)
	clear(payload[n:])

	if len(data) > len(payload) {
		p.truncated++
	}

	p.AddPackets(1)

	return true, nil
}

// BitRate is unknown.
func (p *PCAP) BitRate() uint64 { return 0 }
