package flusso

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/FerroO2000/flusso/internal/rb"
	"github.com/FerroO2000/flusso/packet"
	"github.com/FerroO2000/flusso/plugin"
	"github.com/FerroO2000/flusso/telemetry"
	"github.com/FerroO2000/flusso/term"
)

// A runner wraps one stage plugin with its engine-side state: the ring
// buffers it touches, its stream position and, for participants, the
// termination handle. Positions count packets presented to the stage,
// pass-through included, so they are the positions the termination
// protocol reasons about.

////////////////////
//  INPUT RUNNER  //
////////////////////

type inputRunner struct {
	tel *telemetry.Telemetry

	in plugin.Input

	out *rb.RingBuffer[*packet.Packet]

	pos atomic.Uint64
}

func newInputRunner(in plugin.Input, out *rb.RingBuffer[*packet.Packet]) *inputRunner {
	return &inputRunner{
		tel: telemetry.NewTelemetry("stage", in.Name()),

		in: in,

		out: out,
	}
}

// runInput pulls packets from the source and pushes them downstream.
// Closing the outbound buffer on exit is the end-of-stream signal.
func (p *Pipeline) runInput(ctx context.Context) {
	r := p.input

	defer p.wg.Done()
	defer r.out.Close()

	for {
		pkt := p.pool.Get()

		ok, err := r.in.Receive(ctx, pkt)
		if err != nil {
			p.pool.Put(pkt)

			if plugin.IsRecoverable(err) {
				r.tel.LogWarn("recoverable receive failure", "error", err)
				continue
			}

			if !errors.Is(err, context.Canceled) {
				p.fail(fmt.Errorf("input %q: %w", r.in.Name(), err))
			}

			return
		}

		if !ok {
			r.tel.LogInfo("source exhausted", "packets", r.pos.Load())
			return
		}

		pkt.SetSequenceNumber(r.pos.Load())
		pkt.SetReceiveTime(time.Now())

		// A write failure means the downstream stage is gone: either an
		// abort or a reached termination point. Both end the input.
		if err := r.out.Write(ctx, pkt); err != nil {
			p.pool.Put(pkt)
			return
		}

		r.pos.Add(1)
	}
}

////////////////////////
//  PROCESSOR RUNNER  //
////////////////////////

type processorRunner struct {
	tel *telemetry.Telemetry

	proc   plugin.Processor
	handle *term.Handle

	in  *rb.RingBuffer[*packet.Packet]
	out *rb.RingBuffer[*packet.Packet]

	pos atomic.Uint64
}

func newProcessorRunner(
	proc plugin.Processor, handle *term.Handle, in, out *rb.RingBuffer[*packet.Packet],
) *processorRunner {

	return &processorRunner{
		tel: telemetry.NewTelemetry("stage", proc.Name()),

		proc:   proc,
		handle: handle,

		in:  in,
		out: out,
	}
}

func (p *Pipeline) runProcessor(ctx context.Context, r *processorRunner) {
	defer p.wg.Done()

	// Closing the inbound buffer unblocks the upstream producer, closing
	// the outbound one signals end-of-stream downstream
	defer func() {
		r.in.Close()
		r.out.Close()
	}()

	passThrough := false

	for {
		if r.handle != nil {
			pos := r.pos.Load()

			if !passThrough {
				r.handle.TryAdopt(pos)

				if r.handle.Completed() {
					passThrough = true
					r.tel.LogInfo("completed, entering pass-through", "packets", pos)
				}
			}

			if passThrough {
				if stop, decided := r.handle.StopPoint(); decided && pos >= stop {
					r.tel.LogInfo("reached agreed termination point", "stop_point", stop)
					return
				}
			}
		}

		pkt, err := r.in.Read(ctx)
		if err != nil {
			return
		}

		// An aborted run discards what is still buffered
		if ctx.Err() != nil {
			p.pool.Put(pkt)
			return
		}

		// A completed participant forwards without invoking the plugin,
		// so no packet is dropped past its own stopping point
		if passThrough {
			if err := r.out.Write(ctx, pkt); err != nil {
				p.pool.Put(pkt)
				return
			}

			r.pos.Add(1)
			continue
		}

		disp, err := r.proc.Process(ctx, pkt)
		r.pos.Add(1)

		if err != nil {
			p.pool.Put(pkt)

			if plugin.IsRecoverable(err) {
				r.tel.LogWarn("recoverable processing failure", "error", err)
				continue
			}

			if !errors.Is(err, context.Canceled) {
				p.fail(fmt.Errorf("processor %q: %w", r.proc.Name(), err))
			}

			return
		}

		switch disp {
		case plugin.DispositionKeep:
			if err := r.out.Write(ctx, pkt); err != nil {
				p.pool.Put(pkt)
				return
			}

		case plugin.DispositionDrop:
			p.pool.Put(pkt)

		case plugin.DispositionAbort:
			p.pool.Put(pkt)
			p.fail(fmt.Errorf("processor %q: %w", r.proc.Name(), ErrAborted))

			return
		}
	}
}

/////////////////////
//  OUTPUT RUNNER  //
/////////////////////

type outputRunner struct {
	tel     *telemetry.Telemetry
	latency *telemetry.Histogram

	out    plugin.Output
	handle *term.Handle

	in *rb.RingBuffer[*packet.Packet]

	pos atomic.Uint64
}

func newOutputRunner(out plugin.Output, handle *term.Handle, in *rb.RingBuffer[*packet.Packet]) *outputRunner {
	tel := telemetry.NewTelemetry("stage", out.Name())

	return &outputRunner{
		tel:     tel,
		latency: tel.NewHistogram("delivery_latency_us"),

		out:    out,
		handle: handle,

		in: in,
	}
}

func (p *Pipeline) runOutput(ctx context.Context) {
	r := p.output

	defer p.wg.Done()
	defer r.in.Close()

	passThrough := false

	for {
		if r.handle != nil {
			pos := r.pos.Load()

			if !passThrough {
				r.handle.TryAdopt(pos)

				if r.handle.Completed() {
					passThrough = true
					r.tel.LogInfo("completed, entering pass-through", "packets", pos)
				}
			}

			if passThrough {
				if stop, decided := r.handle.StopPoint(); decided && pos >= stop {
					r.tel.LogInfo("reached agreed termination point", "stop_point", stop)
					return
				}
			}
		}

		pkt, err := r.in.Read(ctx)
		if err != nil {
			return
		}

		// An aborted run discards what is still buffered
		if ctx.Err() != nil {
			p.pool.Put(pkt)
			return
		}

		// A completed output accounts for the packet without delivering it
		if passThrough {
			p.pool.Put(pkt)
			r.pos.Add(1)
			continue
		}

		err = r.out.Send(ctx, pkt)
		r.pos.Add(1)

		if err == nil {
			r.latency.Record(ctx, time.Since(pkt.ReceiveTime()).Microseconds())
		}

		p.pool.Put(pkt)

		if err != nil {
			if plugin.IsRecoverable(err) {
				r.tel.LogWarn("recoverable delivery failure", "error", err)
				continue
			}

			if !errors.Is(err, context.Canceled) {
				p.fail(fmt.Errorf("output %q: %w", r.out.Name(), err))
			}

			return
		}
	}
}
