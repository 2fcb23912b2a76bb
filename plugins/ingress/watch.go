package ingress

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/FerroO2000/flusso/packet"
	"github.com/FerroO2000/flusso/plugin"
)

// Watch is an input streaming packets out of files appearing in a set
// of watched directories. Files already present when the stage starts
// are consumed first, then the watcher drives the rest; each file is
// consumed once.
type Watch struct {
	plugin.Base

	dirs []string

	watcher *fsnotify.Watcher

	// pending holds the paths discovered but not yet consumed.
	pending []string
	// consumed remembers paths so rewrite events do not replay a file.
	consumed map[string]struct{}

	current *os.File
}

// NewWatch returns a new directory-watching input.
func NewWatch() *Watch {
	return &Watch{
		Base: plugin.NewBase(plugin.KindInput, "watch"),

		consumed: make(map[string]struct{}),
	}
}

// Configure parses the option set.
//
// Options: "dirs" (";"-separated list of directories, default ".").
func (w *Watch) Configure(opts plugin.Options) error {
	for _, dir := range strings.Split(opts.String("dirs", "."), ";") {
		if dir = strings.TrimSpace(dir); dir != "" {
			w.dirs = append(w.dirs, dir)
		}
	}

	if len(w.dirs) == 0 {
		return errors.New(`option "dirs": no directory given`)
	}

	return nil
}

// Start creates the watcher and enqueues the existing files.
// The watcher does not fire events for files already present.
func (w *Watch) Start(_ context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	for _, dir := range w.dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return err
		}
	}

	w.watcher = watcher

	for _, dir := range w.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			w.Tel.LogError("failed to read directory", err, "dir", dir)
			continue
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				w.enqueue(filepath.Join(dir, entry.Name()))
			}
		}
	}

	return nil
}

// Stop closes the watcher and the file being consumed.
func (w *Watch) Stop() error {
	return w.StopOnce(func() error {
		if w.current != nil {
			w.current.Close()
			w.current = nil
		}

		if w.watcher == nil {
			return nil
		}

		return w.watcher.Close()
	})
}

func (w *Watch) enqueue(path string) {
	if _, ok := w.consumed[path]; ok {
		return
	}

	w.consumed[path] = struct{}{}
	w.pending = append(w.pending, path)
}

// Receive returns the next packet, draining the current file, then the
// pending queue, then blocking on watcher events.
func (w *Watch) Receive(ctx context.Context, pkt *packet.Packet) (bool, error) {
	for {
		if w.current != nil {
			_, err := io.ReadFull(w.current, pkt.Data())
			if err == nil {
				w.AddPackets(1)
				return true, nil
			}

			if errors.Is(err, io.ErrUnexpectedEOF) {
				w.Tel.LogWarn("discarding trailing partial packet", "path", w.current.Name())
			} else if !errors.Is(err, io.EOF) {
				w.Tel.LogError("failed to read file", err, "path", w.current.Name())
			}

			w.current.Close()
			w.current = nil
		}

		if len(w.pending) > 0 {
			path := w.pending[0]
			w.pending = w.pending[1:]

			file, err := os.Open(path)
			if err != nil {
				w.Tel.LogError("failed to open file", err, "path", path)
				continue
			}

			w.Tel.LogInfo("consuming file", "path", path)
			w.current = file

			continue
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return false, nil
			}

			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.enqueue(event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return false, nil
			}

			w.Tel.LogWarn("watcher error", "error", err)
		}
	}
}

// BitRate is unknown.
func (w *Watch) BitRate() uint64 { return 0 }

// IsRealTime reports true: production is driven by live events.
func (w *Watch) IsRealTime() bool { return true }
