package process

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/FerroO2000/flusso/packet"
	"github.com/FerroO2000/flusso/plugin"
	"github.com/FerroO2000/flusso/telemetry"
)

func Test_Filter(t *testing.T) {
	assert := assert.New(t)

	f := NewFilter()
	f.SetTelemetry(telemetry.NewTelemetry("test", "filter"))
	assert.NoError(f.Configure(plugin.Options{"offset": "4", "value": "71"}))
	assert.NoError(f.Start(context.Background()))

	pool := packet.NewPool(packet.DefaultSize)
	pkt := pool.Get()

	clear(pkt.Data())
	pkt.Data()[4] = 71

	disp, err := f.Process(context.Background(), pkt)
	assert.NoError(err)
	assert.Equal(plugin.DispositionKeep, disp)

	pkt.Data()[4] = 72

	disp, err = f.Process(context.Background(), pkt)
	assert.NoError(err)
	assert.Equal(plugin.DispositionDrop, disp)

	assert.Equal(uint64(2), f.PacketCount())
}

func Test_Filter_Invert(t *testing.T) {
	assert := assert.New(t)

	f := NewFilter()
	f.SetTelemetry(telemetry.NewTelemetry("test", "filter"))
	assert.NoError(f.Configure(plugin.Options{"offset": "0", "value": "71", "invert": "true"}))

	pool := packet.NewPool(packet.DefaultSize)
	pkt := pool.Get()

	clear(pkt.Data())
	pkt.Data()[0] = 71

	disp, err := f.Process(context.Background(), pkt)
	assert.NoError(err)
	assert.Equal(plugin.DispositionDrop, disp)
}

func Test_Filter_BadOptions(t *testing.T) {
	assert := assert.New(t)

	assert.Error(NewFilter().Configure(plugin.Options{"offset": "-1"}))
	assert.Error(NewFilter().Configure(plugin.Options{"value": "300"}))
	assert.Error(NewFilter().Configure(plugin.Options{"invert": "maybe"}))
}

func Test_Skip(t *testing.T) {
	assert := assert.New(t)

	s := NewSkip()
	s.SetTelemetry(telemetry.NewTelemetry("test", "skip"))
	assert.NoError(s.Configure(plugin.Options{"packets": "2"}))

	pool := packet.NewPool(packet.DefaultSize)
	pkt := pool.Get()

	expected := []plugin.Disposition{
		plugin.DispositionDrop,
		plugin.DispositionDrop,
		plugin.DispositionKeep,
		plugin.DispositionKeep,
	}

	for i, want := range expected {
		disp, err := s.Process(context.Background(), pkt)
		assert.NoError(err)
		assert.Equal(want, disp, "packet %d", i)
	}
}
