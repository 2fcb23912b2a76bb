package ingress

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/FerroO2000/flusso/packet"
	"github.com/FerroO2000/flusso/plugin"
	"github.com/FerroO2000/flusso/telemetry"
)

func writeStreamFile(t *testing.T, packets int, packetSize int, trailing int) string {
	t.Helper()

	data := make([]byte, packets*packetSize+trailing)
	for i := range data {
		data[i] = byte(i)
	}

	path := filepath.Join(t.TempDir(), "stream.bin")
	assert.NoError(t, os.WriteFile(path, data, 0o644))

	return path
}

func Test_File_ReadsWholeFile(t *testing.T) {
	assert := assert.New(t)

	const packetSize = 16

	path := writeStreamFile(t, 5, packetSize, 0)

	f := NewFile()
	f.SetTelemetry(telemetry.NewTelemetry("test", "file"))
	assert.NoError(f.Configure(plugin.Options{"path": path}))
	assert.NoError(f.Start(context.Background()))
	defer f.Stop()

	pool := packet.NewPool(packetSize)
	pkt := pool.Get()

	read := 0
	for {
		ok, err := f.Receive(context.Background(), pkt)
		assert.NoError(err)

		if !ok {
			break
		}

		read++
	}

	assert.Equal(5, read)
	assert.Equal(uint64(5), f.PacketCount())
}

func Test_File_DiscardsTrailingFragment(t *testing.T) {
	assert := assert.New(t)

	const packetSize = 16

	path := writeStreamFile(t, 3, packetSize, 7)

	f := NewFile()
	f.SetTelemetry(telemetry.NewTelemetry("test", "file"))
	assert.NoError(f.Configure(plugin.Options{"path": path}))
	assert.NoError(f.Start(context.Background()))
	defer f.Stop()

	pool := packet.NewPool(packetSize)
	pkt := pool.Get()

	read := 0
	for {
		ok, err := f.Receive(context.Background(), pkt)
		assert.NoError(err)

		if !ok {
			break
		}

		read++
	}

	assert.Equal(3, read)
}

func Test_File_Loops(t *testing.T) {
	assert := assert.New(t)

	const packetSize = 16

	path := writeStreamFile(t, 2, packetSize, 0)

	f := NewFile()
	f.SetTelemetry(telemetry.NewTelemetry("test", "file"))
	assert.NoError(f.Configure(plugin.Options{"path": path, "loop": "3"}))
	assert.NoError(f.Start(context.Background()))
	defer f.Stop()

	pool := packet.NewPool(packetSize)
	pkt := pool.Get()

	read := 0
	for {
		ok, err := f.Receive(context.Background(), pkt)
		assert.NoError(err)

		if !ok {
			break
		}

		read++
	}

	assert.Equal(6, read)
}

func Test_File_RequiresPath(t *testing.T) {
	assert := assert.New(t)

	assert.Error(NewFile().Configure(plugin.Options{}))
}

func Test_File_StopIdempotent(t *testing.T) {
	assert := assert.New(t)

	path := writeStreamFile(t, 1, 16, 0)

	f := NewFile()
	f.SetTelemetry(telemetry.NewTelemetry("test", "file"))
	assert.NoError(f.Configure(plugin.Options{"path": path}))
	assert.NoError(f.Start(context.Background()))

	assert.NoError(f.Stop())
	assert.NoError(f.Stop())
}

func Test_Null_Cap(t *testing.T) {
	assert := assert.New(t)

	n := NewNull()
	n.SetTelemetry(telemetry.NewTelemetry("test", "null"))
	assert.NoError(n.Configure(plugin.Options{"packets": "3"}))
	assert.NoError(n.Start(context.Background()))

	pool := packet.NewPool(packet.DefaultSize)
	pkt := pool.Get()

	for range 3 {
		ok, err := n.Receive(context.Background(), pkt)
		assert.NoError(err)
		assert.True(ok)
	}

	ok, err := n.Receive(context.Background(), pkt)
	assert.NoError(err)
	assert.False(ok)
}
