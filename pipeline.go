// Package flusso provides a packet pipeline engine: one input stage,
// a chain of processor stages and one output stage, each running on its
// own goroutine and connected by bounded ring buffers.
//
// Stages are plugins resolved by name from a registry. The engine owns
// the stage lifecycle, the backpressure between stages, the abort path
// and the joint-termination protocol; plugins only ever see one packet
// at a time.
package flusso

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FerroO2000/flusso/internal/options"
	"github.com/FerroO2000/flusso/internal/rb"
	"github.com/FerroO2000/flusso/packet"
	"github.com/FerroO2000/flusso/plugin"
	"github.com/FerroO2000/flusso/telemetry"
	"github.com/FerroO2000/flusso/term"
)

//////////////
//  CONFIG  //
//////////////

// Default values for the pipeline configuration.
const (
	DefaultConfigPacketSize     = packet.DefaultSize
	DefaultConfigBufferCapacity = 1024
)

// StageSpec names one stage of the pipeline and carries its
// implementation-specific options.
type StageSpec struct {
	// Name is the registered plugin name.
	Name string

	// Options is the raw option set handed to Configure.
	Options plugin.Options
}

// Config structs contains the configuration of a pipeline.
type Config struct {
	// PacketSize is the fixed payload size of every packet in the run.
	PacketSize int

	// BufferCapacity is the capacity of each inter-stage ring buffer.
	BufferCapacity int

	// Input is the single packet source of the pipeline.
	Input StageSpec

	// Processors is the ordered chain of transformations. May be empty.
	Processors []StageSpec

	// Output is the single packet sink of the pipeline.
	Output StageSpec
}

// NewConfig returns a pipeline configuration with default sizing.
func NewConfig(input StageSpec, output StageSpec, processors ...StageSpec) *Config {
	return &Config{
		PacketSize:     DefaultConfigPacketSize,
		BufferCapacity: DefaultConfigBufferCapacity,

		Input:      input,
		Processors: processors,
		Output:     output,
	}
}

// Validate checks the configuration.
func (c *Config) Validate(ac *options.AnomalyCollector) {
	options.CheckNotNegative(ac, "PacketSize", &c.PacketSize, DefaultConfigPacketSize)
	options.CheckNotZero(ac, "PacketSize", &c.PacketSize, DefaultConfigPacketSize)

	// A capacity below 2 serializes producer and consumer
	options.CheckNotLower(ac, "BufferCapacity", &c.BufferCapacity, 2)
}

////////////////
//  PIPELINE  //
////////////////

// Pipeline is an assembled packet pipeline, ready to run once.
// A pipeline instance is single-use: assemble, run, inspect counters.
type Pipeline struct {
	tel *telemetry.Telemetry

	runID string

	cfg *Config

	pool        *packet.Pool
	coordinator *term.Coordinator

	// plugins in pipeline order: input, processors, output.
	plugins []plugin.Plugin
	buffers []*rb.RingBuffer[*packet.Packet]

	input      *inputRunner
	processors []*processorRunner
	output     *outputRunner

	wg        sync.WaitGroup
	cancel    context.CancelFunc
	startTime time.Time

	failMux sync.Mutex
	failErr error
}

// NewPipeline assembles a pipeline from the given configuration,
// resolving every stage name against the registry (the default registry
// when reg is nil). Each stage plugin is instantiated and configured;
// any failure aborts the assembly with a SetupError and no plugin is
// ever started.
func NewPipeline(reg *plugin.Registry, cfg *Config) (*Pipeline, error) {
	if reg == nil {
		reg = plugin.Default()
	}

	runID := uuid.NewString()

	tel := telemetry.NewTelemetry("flusso", "pipeline").WithAttrs("run_id", runID)

	options.NewValidator(tel).Validate(cfg)

	p := &Pipeline{
		tel: tel,

		runID: runID,

		cfg: cfg,

		pool:        packet.NewPool(cfg.PacketSize),
		coordinator: term.NewCoordinator(),
	}

	if err := p.assemble(reg); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Pipeline) assemble(reg *plugin.Registry) error {
	// Resolve, instantiate and configure the input
	inFactory, err := reg.GetInput(p.cfg.Input.Name, p.tel)
	if err != nil {
		return &SetupError{Stage: p.cfg.Input.Name, Err: err}
	}

	in := inFactory()
	if err := p.setUpPlugin(in, p.cfg.Input.Options); err != nil {
		return err
	}

	// An input driving the packet count cannot also vote on when the
	// count is final
	if part, ok := in.(plugin.JointParticipant); ok && part.UseJointTermination() {
		return &SetupError{Stage: in.Name(), Err: errInputParticipant}
	}

	// Resolve, instantiate and configure the processor chain
	procs := make([]plugin.Processor, 0, len(p.cfg.Processors))
	for _, spec := range p.cfg.Processors {
		procFactory, err := reg.GetProcessor(spec.Name, p.tel)
		if err != nil {
			return &SetupError{Stage: spec.Name, Err: err}
		}

		proc := procFactory()
		if err := p.setUpPlugin(proc, spec.Options); err != nil {
			return err
		}

		procs = append(procs, proc)
	}

	// Resolve, instantiate and configure the output
	outFactory, err := reg.GetOutput(p.cfg.Output.Name, p.tel)
	if err != nil {
		return &SetupError{Stage: p.cfg.Output.Name, Err: err}
	}

	out := outFactory()
	if err := p.setUpPlugin(out, p.cfg.Output.Options); err != nil {
		return err
	}

	// Create the ring buffers connecting the stages
	edges := len(procs) + 1
	p.buffers = make([]*rb.RingBuffer[*packet.Packet], edges)
	for i := range p.buffers {
		p.buffers[i] = rb.NewRingBuffer[*packet.Packet](uint64(p.cfg.BufferCapacity))
	}

	// Create the stage runners, binding a termination handle to every
	// participant
	p.input = newInputRunner(in, p.buffers[0])

	p.processors = make([]*processorRunner, len(procs))
	for i, proc := range procs {
		p.processors[i] = newProcessorRunner(proc, p.joinParticipant(proc), p.buffers[i], p.buffers[i+1])
	}

	p.output = newOutputRunner(out, p.joinParticipant(out), p.buffers[edges-1])

	p.plugins = make([]plugin.Plugin, 0, len(procs)+2)
	p.plugins = append(p.plugins, in)
	for _, proc := range procs {
		p.plugins = append(p.plugins, proc)
	}
	p.plugins = append(p.plugins, out)

	return nil
}

func (p *Pipeline) setUpPlugin(pl plugin.Plugin, opts plugin.Options) error {
	pl.SetTelemetry(telemetry.NewTelemetry(pl.Kind().String(), pl.Name()).WithAttrs("run_id", p.runID))

	if err := pl.Configure(opts); err != nil {
		return &SetupError{Stage: pl.Name(), Err: err}
	}

	return nil
}

// joinParticipant registers the plugin with the termination coordinator
// when it opted in, returning the bound handle (nil otherwise).
func (p *Pipeline) joinParticipant(pl plugin.Plugin) *term.Handle {
	part, ok := pl.(plugin.JointParticipant)
	if !ok || !part.UseJointTermination() {
		return nil
	}

	handle := p.coordinator.Join()
	part.BindTermination(handle)

	return handle
}

// RunID returns the unique identifier of this pipeline instance.
func (p *Pipeline) RunID() string {
	return p.runID
}

// Run starts every stage plugin in pipeline order, spawns the stage
// goroutines and blocks until the stream ends: source exhaustion, the
// agreed joint-termination point, an abort or context cancellation.
// Plugins are always stopped, in reverse pipeline order.
func (p *Pipeline) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	defer cancel()

	realTime := false
	for _, pl := range p.plugins {
		if pl.IsRealTime() {
			realTime = true
			break
		}
	}

	p.tel.LogInfo("starting pipeline",
		"stages", len(p.plugins),
		"participants", p.coordinator.Participants(),
		"real_time", realTime,
		"input_bit_rate", p.input.in.BitRate(),
	)

	// Start the plugins in pipeline order; on failure, roll back the
	// already started ones in reverse order
	for idx, pl := range p.plugins {
		if err := pl.Start(ctx); err != nil {
			for i := idx - 1; i >= 0; i-- {
				if stopErr := p.plugins[i].Stop(); stopErr != nil {
					p.tel.LogError("failed to stop stage during rollback", stopErr, "stage", p.plugins[i].Name())
				}
			}

			return &SetupError{Stage: pl.Name(), Err: err}
		}
	}

	p.registerMetrics()

	p.startTime = time.Now()

	p.wg.Add(len(p.processors) + 2)

	go p.runInput(ctx)
	for _, r := range p.processors {
		go p.runProcessor(ctx, r)
	}
	go p.runOutput(ctx)

	p.wg.Wait()

	// Stop the plugins in reverse pipeline order
	for i := len(p.plugins) - 1; i >= 0; i-- {
		if err := p.plugins[i].Stop(); err != nil {
			p.tel.LogError("failed to stop stage", err, "stage", p.plugins[i].Name())
		}
	}

	if stop, decided := p.coordinator.StopPoint(); decided {
		p.tel.LogInfo("joint termination reached", "stop_point", stop)
	}

	p.failMux.Lock()
	failErr := p.failErr
	p.failMux.Unlock()

	if failErr != nil {
		return failErr
	}

	return ctx.Err()
}

// fail records the first pipeline failure, cancels the run and closes
// every inter-stage buffer to wake blocked stages. Later failures are
// dropped.
func (p *Pipeline) fail(err error) {
	p.failMux.Lock()
	first := p.failErr == nil
	if first {
		p.failErr = err
	}
	p.failMux.Unlock()

	if !first {
		return
	}

	p.tel.LogError("aborting pipeline", err)

	p.cancel()
	for _, buf := range p.buffers {
		buf.Close()
	}
}

///////////////
//  METRICS  //
///////////////

// StageCount is the number of packets one stage handled.
type StageCount struct {
	Kind    plugin.Kind
	Name    string
	Packets uint64
}

// Counts returns the per-stage packet counts in pipeline order.
// It is safe to call while the pipeline runs.
func (p *Pipeline) Counts() []StageCount {
	counts := make([]StageCount, 0, len(p.processors)+2)

	counts = append(counts, StageCount{
		Kind:    plugin.KindInput,
		Name:    p.input.in.Name(),
		Packets: p.input.pos.Load(),
	})

	for _, r := range p.processors {
		counts = append(counts, StageCount{
			Kind:    plugin.KindProcessor,
			Name:    r.proc.Name(),
			Packets: r.pos.Load(),
		})
	}

	counts = append(counts, StageCount{
		Kind:    plugin.KindOutput,
		Name:    p.output.out.Name(),
		Packets: p.output.pos.Load(),
	})

	return counts
}

// Throughput returns the running delivery rate of the pipeline in
// packets per second, zero before the stages are spawned. The value is
// advisory: it is derived from the output stage counter and the elapsed
// run time, not enforced anywhere.
func (p *Pipeline) Throughput() float64 {
	if p.startTime.IsZero() {
		return 0
	}

	elapsed := time.Since(p.startTime).Seconds()
	if elapsed <= 0 {
		return 0
	}

	return float64(p.output.pos.Load()) / elapsed
}

func (p *Pipeline) registerMetrics() {
	p.input.tel.NewCounter("received_packets", func() int64 { return int64(p.input.pos.Load()) })

	for _, r := range p.processors {
		r.tel.NewCounter("processed_packets", func() int64 { return int64(r.pos.Load()) })
	}

	p.output.tel.NewCounter("delivered_packets", func() int64 { return int64(p.output.pos.Load()) })
	p.output.tel.NewUpDownCounter("throughput_pps", func() int64 { return int64(p.Throughput()) })
}
