package process

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/FerroO2000/flusso/packet"
	"github.com/FerroO2000/flusso/plugin"
	"github.com/FerroO2000/flusso/telemetry"
	"github.com/FerroO2000/flusso/term"
)

func Test_Until_RequiresCriterion(t *testing.T) {
	assert := assert.New(t)

	u := NewUntil()
	u.SetTelemetry(telemetry.NewTelemetry("test", "until"))

	assert.Error(u.Configure(plugin.Options{}))
	assert.NoError(u.Configure(plugin.Options{"packets": "10"}))

	assert.Error(NewUntil().Configure(plugin.Options{"value": "300"}))
	assert.Error(NewUntil().Configure(plugin.Options{"value": "71", "offset": "-1"}))
	assert.NoError(NewUntil().Configure(plugin.Options{"value": "71", "offset": "4"}))
}

func Test_Until_ByteMatchCriterion(t *testing.T) {
	assert := assert.New(t)

	u := NewUntil()
	u.SetTelemetry(telemetry.NewTelemetry("test", "until"))
	assert.NoError(u.Configure(plugin.Options{"value": "71", "offset": "0", "local": "true"}))

	assert.NoError(u.Start(context.Background()))

	pool := packet.NewPool(packet.DefaultSize)

	plain := pool.Get()
	clear(plain.Data())

	marked := pool.Get()
	clear(marked.Data())
	marked.Data()[0] = 71

	disp, err := u.Process(context.Background(), plain)
	assert.NoError(err)
	assert.Equal(plugin.DispositionKeep, disp)

	// The matching packet is the last one kept
	disp, err = u.Process(context.Background(), marked)
	assert.NoError(err)
	assert.Equal(plugin.DispositionKeep, disp)

	disp, err = u.Process(context.Background(), plain)
	assert.NoError(err)
	assert.Equal(plugin.DispositionDrop, disp)
}

func Test_Until_JointCompletion(t *testing.T) {
	assert := assert.New(t)

	u := NewUntil()
	u.SetTelemetry(telemetry.NewTelemetry("test", "until"))
	assert.NoError(u.Configure(plugin.Options{"packets": "3"}))
	assert.True(u.UseJointTermination())

	coord := term.NewCoordinator()
	u.BindTermination(coord.Join())

	assert.NoError(u.Start(context.Background()))

	pool := packet.NewPool(packet.DefaultSize)
	pkt := pool.Get()

	// The packet firing the criterion is still kept
	for range 3 {
		disp, err := u.Process(context.Background(), pkt)
		assert.NoError(err)
		assert.Equal(plugin.DispositionKeep, disp)
	}

	stop, decided := coord.StopPoint()
	assert.True(decided)
	assert.Equal(uint64(3), stop)
}

func Test_Until_LocalDropsAfterCriterion(t *testing.T) {
	assert := assert.New(t)

	u := NewUntil()
	u.SetTelemetry(telemetry.NewTelemetry("test", "until"))
	assert.NoError(u.Configure(plugin.Options{"packets": "2", "local": "true"}))
	assert.False(u.UseJointTermination())

	assert.NoError(u.Start(context.Background()))

	pool := packet.NewPool(packet.DefaultSize)
	pkt := pool.Get()

	dispositions := make([]plugin.Disposition, 0, 4)
	for range 4 {
		disp, err := u.Process(context.Background(), pkt)
		assert.NoError(err)
		dispositions = append(dispositions, disp)
	}

	assert.Equal([]plugin.Disposition{
		plugin.DispositionKeep,
		plugin.DispositionKeep,
		plugin.DispositionDrop,
		plugin.DispositionDrop,
	}, dispositions)
}
