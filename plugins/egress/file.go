package egress

import (
	"bufio"
	"context"
	"errors"
	"os"

	"github.com/FerroO2000/flusso/packet"
	"github.com/FerroO2000/flusso/plugin"
)

// File is an output appending the raw packet payloads to a file.
type File struct {
	plugin.Base

	path       string
	appendMode bool

	file   *os.File
	writer *bufio.Writer
}

// NewFile returns a new file output.
func NewFile() *File {
	return &File{
		Base: plugin.NewBase(plugin.KindOutput, "file"),
	}
}

// Configure parses the option set.
//
// Options: "path" (required), "append" (bool, keep existing contents,
// default false).
func (f *File) Configure(opts plugin.Options) error {
	if !opts.Has("path") {
		return errors.New(`option "path" is required`)
	}
	f.path = opts.String("path", "")

	appendMode, err := opts.Bool("append", false)
	if err != nil {
		return err
	}
	f.appendMode = appendMode

	return nil
}

// Start opens the file.
func (f *File) Start(_ context.Context) error {
	flags := os.O_WRONLY | os.O_CREATE
	if f.appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(f.path, flags, 0o644)
	if err != nil {
		return err
	}

	f.file = file
	f.writer = bufio.NewWriter(file)

	return nil
}

// Stop flushes and closes the file.
func (f *File) Stop() error {
	return f.StopOnce(func() error {
		if f.file == nil {
			return nil
		}

		err := f.writer.Flush()

		if closeErr := f.file.Close(); err == nil {
			err = closeErr
		}

		return err
	})
}

// Send appends the packet payload.
func (f *File) Send(_ context.Context, pkt *packet.Packet) error {
	if _, err := f.writer.Write(pkt.Data()); err != nil {
		return err
	}

	f.AddPackets(1)

	return nil
}
