package egress

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

func Test_File_WritesPayloads(t *testing.T) {
	assert := assert.New(t)

	const packetSize = 16

	path := filepath.Join(t.TempDir(), "out.bin")

	f := NewFile()
	f.SetTelemetry(telemetry.NewTelemetry("test", "file"))
	assert.NoError(f.Configure(plugin.Options{"path": path}))
	assert.NoError(f.Start(context.Background()))

	pool := packet.NewPool(packetSize)
	pkt := pool.Get()

	for i := range 3 {
		for j := range pkt.Data() {
			pkt.Data()[j] = byte(i)
		}

		assert.NoError(f.Send(context.Background(), pkt))
	}

	assert.NoError(f.Stop())
	assert.Equal(uint64(3), f.PacketCount())

	written, err := os.ReadFile(path)
	assert.NoError(err)
	assert.Len(written, 3*packetSize)
	assert.Equal(byte(0), written[0])
	assert.Equal(byte(1), written[packetSize])
	assert.Equal(byte(2), written[2*packetSize])
}

func Test_File_Append(t *testing.T) {
	assert := assert.New(t)

	const packetSize = 16

	path := filepath.Join(t.TempDir(), "out.bin")
	assert.NoError(os.WriteFile(path, make([]byte, packetSize), 0o644))

	f := NewFile()
	f.SetTelemetry(telemetry.NewTelemetry("test", "file"))
	assert.NoError(f.Configure(plugin.Options{"path": path, "append": "true"}))
	assert.NoError(f.Start(context.Background()))

	pool := packet.NewPool(packetSize)
	assert.NoError(f.Send(context.Background(), pool.Get()))
	assert.NoError(f.Stop())

	written, err := os.ReadFile(path)
	assert.NoError(err)
	assert.Len(written, 2*packetSize)
}

func Test_Drop(t *testing.T) {
	assert := assert.New(t)

	d := NewDrop()
	d.SetTelemetry(telemetry.NewTelemetry("test", "drop"))
	assert.NoError(d.Configure(nil))
	assert.NoError(d.Start(context.Background()))

	pool := packet.NewPool(packet.DefaultSize)
	for range 10 {
		assert.NoError(d.Send(context.Background(), pool.Get()))
	}

	assert.Equal(uint64(10), d.PacketCount())
	assert.NoError(d.Stop())
}
