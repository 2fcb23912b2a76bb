// Package plugin defines the capability contract every pipeline stage
// implementation honors, and the repository resolving a textual stage
// name into a runnable instance.
//
// A plugin is one of three kinds: an Input acquires packets from an
// external source, a Processor consumes one packet and returns a
// disposition, an Output delivers packets to a sink. The engine only
// knows the lifecycle and the disposition contract; whatever a plugin
// does to the payload is opaque to it.
package plugin

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/FerroO2000/flusso/packet"
	"github.com/FerroO2000/flusso/telemetry"
	"github.com/FerroO2000/flusso/term"
)

// Kind is the kind of a plugin.
type Kind uint8

const (
	// KindInput identifies packet sources.
	KindInput Kind = iota
	// KindProcessor identifies packet transformations.
	KindProcessor
	// KindOutput identifies packet sinks.
	KindOutput
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindProcessor:
		return "processor"
	case KindOutput:
		return "output"
	default:
		return "unknown"
	}
}

// Disposition is the decision a processor takes for one packet.
type Disposition uint8

const (
	// DispositionKeep forwards the packet, modified or not.
	DispositionKeep Disposition = iota
	// DispositionDrop discards the packet without forwarding it.
	DispositionDrop
	// DispositionAbort requests a pipeline-wide shutdown.
	DispositionAbort
)

// Plugin is the shared contract of every stage implementation.
// The engine owns the instance exclusively for the lifetime of a run.
type Plugin interface {
	// Kind returns the kind of the plugin.
	Kind() Kind

	// Name returns the registered name of the plugin.
	Name() string

	// SetTelemetry hands the plugin its diagnostics sink.
	// It is called once, before Configure.
	SetTelemetry(tel *telemetry.Telemetry)

	// Configure parses the implementation-specific option set.
	Configure(opts Options) error

	// Start acquires the plugin resources.
	Start(ctx context.Context) error

	// Stop releases the plugin resources. It is idempotent: calling it
	// multiple times, or on a plugin that never started, is safe.
	Stop() error

	// IsRealTime is a hint consumed by pacing logic.
	IsRealTime() bool

	// PacketCount returns the number of packets this instance processed.
	PacketCount() uint64
}

// Input produces one packet at a time from an external source.
type Input interface {
	Plugin

	// Receive fills the packet payload with the next packet of the
	// stream. It returns false when the source is exhausted.
	Receive(ctx context.Context, pkt *packet.Packet) (bool, error)

	// BitRate returns the achievable production rate in packets per
	// second, or 0 when unknown. Advisory only.
	BitRate() uint64
}

// Processor consumes one packet, may mutate it in place, and returns
// a disposition. A nil error with DispositionKeep forwards the packet;
// a Recoverable error drops the packet and keeps the pipeline running;
// any other error is treated as DispositionAbort.
type Processor interface {
	Plugin

	Process(ctx context.Context, pkt *packet.Packet) (Disposition, error)
}

// Output delivers packets to a sink. It never produces.
type Output interface {
	Plugin

	Send(ctx context.Context, pkt *packet.Packet) error
}

// JointParticipant is implemented by processors and outputs that can
// take part in the joint-termination protocol. The engine queries
// UseJointTermination after Configure, so a plugin may opt out per
// instance; when it reports true the engine binds the handle before
// Start. An input implementing this interface is a configuration error.
type JointParticipant interface {
	UseJointTermination() bool
	BindTermination(handle *term.Handle)
}

// Joint provides the participant-side boilerplate of the
// joint-termination protocol. Embed it alongside Base and call
// SetJointTermination from Configure.
type Joint struct {
	joint  bool
	handle *term.Handle
}

// SetJointTermination switches participation on or off for this instance.
func (j *Joint) SetJointTermination(on bool) {
	j.joint = on
}

// UseJointTermination states whether this instance participates.
func (j *Joint) UseJointTermination() bool {
	return j.joint
}

// BindTermination hands the instance its protocol handle.
func (j *Joint) BindTermination(handle *term.Handle) {
	j.handle = handle
}

// Termination returns the bound protocol handle, nil outside a joint run.
func (j *Joint) Termination() *term.Handle {
	return j.handle
}

// Complete records that the instance's own stopping criterion fired
// after count packets. Without a bound handle it is a no-op, so a
// plugin ends a non-joint run by other means (abort or local stop).
func (j *Joint) Complete(count uint64) bool {
	if j.handle == nil {
		return false
	}

	return j.handle.Complete(count)
}

////////////
//  BASE  //
////////////

// Base provides the boilerplate shared by plugin implementations:
// identity, telemetry, the per-instance processed-packet counter and
// an idempotent stop guard. Embed it and implement the rest.
type Base struct {
	kind Kind
	name string

	// Tel is the diagnostics sink of the plugin, set by the engine
	// before Configure is called.
	Tel *telemetry.Telemetry

	processedPackets atomic.Uint64

	stopOnce sync.Once
}

// NewBase returns a new plugin base.
func NewBase(kind Kind, name string) Base {
	return Base{
		kind: kind,
		name: name,
	}
}

// Kind returns the kind of the plugin.
func (b *Base) Kind() Kind {
	return b.kind
}

// Name returns the registered name of the plugin.
func (b *Base) Name() string {
	return b.name
}

// SetTelemetry sets the diagnostics sink of the plugin.
func (b *Base) SetTelemetry(tel *telemetry.Telemetry) {
	b.Tel = tel
}

// IsRealTime reports false. Pacing-aware plugins override it.
func (b *Base) IsRealTime() bool {
	return false
}

// PacketCount returns the number of packets this instance processed.
func (b *Base) PacketCount() uint64 {
	return b.processedPackets.Load()
}

// AddPackets accounts for more processed packets and returns the new total.
func (b *Base) AddPackets(incr uint64) uint64 {
	return b.processedPackets.Add(incr)
}

// StopOnce runs the given teardown exactly once across any number of
// Stop calls; later calls return nil.
func (b *Base) StopOnce(teardown func() error) error {
	var err error
	b.stopOnce.Do(func() {
		err = teardown()
	})

	return err
}
