package plugin

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/FerroO2000/flusso/packet"
	"github.com/FerroO2000/flusso/telemetry"
)

type stubPlugin struct {
	Base

	id int
}

func (s *stubPlugin) Configure(_ Options) error     { return nil }
func (s *stubPlugin) Start(_ context.Context) error { return nil }
func (s *stubPlugin) Stop() error                   { return nil }

type stubInput struct{ stubPlugin }

func newStubInput(id int) *stubInput {
	return &stubInput{stubPlugin{Base: NewBase(KindInput, "stub"), id: id}}
}

func (s *stubInput) Receive(_ context.Context, _ *packet.Packet) (bool, error) { return false, nil }
func (s *stubInput) BitRate() uint64                                           { return 0 }

type stubProcessor struct{ stubPlugin }

func newStubProcessor(id int) *stubProcessor {
	return &stubProcessor{stubPlugin{Base: NewBase(KindProcessor, "stub"), id: id}}
}

func (s *stubProcessor) Process(_ context.Context, _ *packet.Packet) (Disposition, error) {
	return DispositionKeep, nil
}

type stubOutput struct{ stubPlugin }

func newStubOutput(id int) *stubOutput {
	return &stubOutput{stubPlugin{Base: NewBase(KindOutput, "stub"), id: id}}
}

func (s *stubOutput) Send(_ context.Context, _ *packet.Packet) error { return nil }

func Test_Registry_LastWriterWins(t *testing.T) {
	assert := assert.New(t)

	reg := NewRegistry()

	reg.RegisterInput("stub", func() Input { return newStubInput(1) })
	reg.RegisterInput("stub", func() Input { return newStubInput(2) })

	assert.Equal(1, reg.Count(KindInput))

	factory, err := reg.GetInput("stub", telemetry.NewTelemetry("test", "registry"))
	assert.NoError(err)

	inst, ok := factory().(*stubInput)
	assert.True(ok)
	assert.Equal(2, inst.id)
}

func Test_Registry_KindNamespaces(t *testing.T) {
	assert := assert.New(t)

	tel := telemetry.NewTelemetry("test", "registry")

	reg := NewRegistry()

	// The same name lives independently in every kind namespace
	reg.RegisterInput("stub", func() Input { return newStubInput(10) })
	reg.RegisterProcessor("stub", func() Processor { return newStubProcessor(20) })
	reg.RegisterOutput("stub", func() Output { return newStubOutput(30) })

	assert.Equal(1, reg.Count(KindInput))
	assert.Equal(1, reg.Count(KindProcessor))
	assert.Equal(1, reg.Count(KindOutput))

	inFactory, err := reg.GetInput("stub", tel)
	assert.NoError(err)
	assert.Equal(10, inFactory().(*stubInput).id)

	procFactory, err := reg.GetProcessor("stub", tel)
	assert.NoError(err)
	assert.Equal(20, procFactory().(*stubProcessor).id)

	outFactory, err := reg.GetOutput("stub", tel)
	assert.NoError(err)
	assert.Equal(30, outFactory().(*stubOutput).id)
}

func Test_Registry_NotFound(t *testing.T) {
	assert := assert.New(t)

	tel := telemetry.NewTelemetry("test", "registry")

	reg := NewRegistry()

	_, err := reg.GetInput("missing", tel)
	assert.ErrorIs(err, ErrNotFound)

	_, err = reg.GetProcessor("missing", tel)
	assert.ErrorIs(err, ErrNotFound)

	_, err = reg.GetOutput("missing", tel)
	assert.ErrorIs(err, ErrNotFound)
}

func Test_Registry_NilFactoryIgnored(t *testing.T) {
	assert := assert.New(t)

	reg := NewRegistry()

	reg.RegisterInput("stub", nil)
	reg.RegisterProcessor("stub", nil)
	reg.RegisterOutput("stub", nil)

	assert.Equal(0, reg.Count(KindInput))
	assert.Equal(0, reg.Count(KindProcessor))
	assert.Equal(0, reg.Count(KindOutput))
}

func Test_Registry_List(t *testing.T) {
	assert := assert.New(t)

	reg := NewRegistry()

	reg.RegisterInput("zeta", func() Input { return newStubInput(1) })
	reg.RegisterInput("alpha", func() Input { return newStubInput(2) })
	reg.RegisterOutput("omega", func() Output { return newStubOutput(3) })

	listing := reg.List(false, telemetry.NewTelemetry("test", "registry"))

	assert.Contains(listing, "Input plugins (2):")
	assert.Contains(listing, "Processor plugins (0):")
	assert.Contains(listing, "Output plugins (1):")

	// Names are sorted within a kind
	alphaIdx := strings.Index(listing, "alpha")
	zetaIdx := strings.Index(listing, "zeta")
	assert.GreaterOrEqual(alphaIdx, 0)
	assert.Greater(zetaIdx, alphaIdx)
}
