package ingress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/FerroO2000/flusso/packet"
	"github.com/FerroO2000/flusso/plugin"
)

// File is an input reading fixed-size packets from a single file.
// The file is consumed sequentially; a trailing fragment shorter than
// one packet is discarded with a warning.
type File struct {
	plugin.Base

	path string

	// loops is how many times the file is read; 0 means forever.
	loops int

	file *os.File

	completedLoops int
}

// NewFile returns a new file input.
func NewFile() *File {
	return &File{
		Base: plugin.NewBase(plugin.KindInput, "file"),
	}
}

// Configure parses the option set.
//
// Options: "path" (required), "loop" (int, times the file is read,
// 0 = forever, default 1).
func (f *File) Configure(opts plugin.Options) error {
	if !opts.Has("path") {
		return errors.New(`option "path" is required`)
	}
	f.path = opts.String("path", "")

	loops, err := opts.Int("loop", 1)
	if err != nil {
		return err
	}
	if loops < 0 {
		return fmt.Errorf(`option "loop": must not be negative, got %d`, loops)
	}
	f.loops = loops

	return nil
}

// Start opens the file.
func (f *File) Start(_ context.Context) error {
	file, err := os.Open(f.path)
	if err != nil {
		return err
	}
	f.file = file

	return nil
}

// Stop closes the file.
func (f *File) Stop() error {
	return f.StopOnce(func() error {
		if f.file == nil {
			return nil
		}

		return f.file.Close()
	})
}

// Receive reads the next packet from the file, rewinding between loops.
func (f *File) Receive(ctx context.Context, pkt *packet.Packet) (bool, error) {
	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		default:
		}

		_, err := io.ReadFull(f.file, pkt.Data())
		if err == nil {
			f.AddPackets(1)
			return true, nil
		}

		if errors.Is(err, io.ErrUnexpectedEOF) {
			f.Tel.LogWarn("discarding trailing partial packet", "path", f.path)
			return false, nil
		}

		if !errors.Is(err, io.EOF) {
			return false, err
		}

		f.completedLoops++
		if f.loops > 0 && f.completedLoops >= f.loops {
			return false, nil
		}

		if _, err := f.file.Seek(0, io.SeekStart); err != nil {
			return false, err
		}
	}
}

// BitRate is unknown.
func (f *File) BitRate() uint64 { return 0 }
