// Package dispatch runs a validated job through the assembler engine, one
// line at a time and in program order.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ksapi/internal/engine"
	"ksapi/internal/trace"
	"ksapi/internal/types"
)

// ErrEngineFault marks failures that abort the whole job: the session could
// not be opened, or the engine failed in a way that is not tied to one line.
var ErrEngineFault = errors.New("engine fault")

// Options configures a Dispatcher.
type Options struct {
	Sink   trace.Sink
	Logger *zap.Logger
}

// Dispatcher holds no per-job state and is safe for concurrent use as long as
// the engine is.
type Dispatcher struct {
	engine engine.Engine
	sink   trace.Sink
	logger *zap.Logger
}

func New(eng engine.Engine, opts Options) *Dispatcher {
	d := &Dispatcher{engine: eng, sink: opts.Sink, logger: opts.Logger}
	if d.sink == nil {
		d.sink = trace.NopSink{}
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	return d
}

// Dispatch encodes every instruction of job. A line the engine rejects is
// recorded in its slot and the batch continues; no line is retried. The
// returned outcome always has one result per instruction.
func (d *Dispatcher) Dispatch(ctx context.Context, job *types.Job) (*types.Outcome, error) {
	start := time.Now()
	cfg := engine.Config{
		Arch:   job.Arch,
		Mode:   job.Mode,
		Endian: job.Endian,
		Syntax: job.Syntax,
	}

	sess, err := d.engine.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s session for %s: %w", ErrEngineFault, d.engine.Name(), cfg, err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			d.logger.Warn("engine session close failed", zap.Stringer("config", cfg), zap.Error(cerr))
		}
	}()

	out := &types.Outcome{
		Arch:         job.Arch,
		Mode:         job.Mode,
		Endian:       job.Endian,
		Syntax:       job.Syntax,
		Instructions: job.Instructions,
		Lines:        make([]types.LineResult, 0, len(job.Instructions)),
	}

	for i, text := range job.Instructions {
		enc, err := sess.Assemble(ctx, text)
		if err != nil {
			ae, isLine := engine.AsLineError(err)
			if !isLine {
				return nil, fmt.Errorf("%w: line %d %q: %w", ErrEngineFault, i, text, err)
			}
			out.Lines = append(out.Lines, types.LineResult{Instruction: text, Err: ae})
			trace.SafeRecord(d.sink, trace.Event{
				Kind:        trace.KindLineFailed,
				Line:        i,
				Instruction: text,
				Message:     ae.Message,
			})
			continue
		}

		out.Lines = append(out.Lines, types.LineResult{
			Instruction: text,
			OK:          true,
			Bytes:       enc.Bytes,
			Count:       enc.Count,
		})
		trace.SafeRecord(d.sink, trace.Event{
			Kind:        trace.KindLineAssembled,
			Line:        i,
			Instruction: text,
			Size:        len(enc.Bytes),
		})
	}

	trace.SafeRecord(d.sink, trace.Event{
		Kind:     trace.KindJobDispatched,
		Lines:    len(out.Lines),
		Failed:   out.Failed(),
		Duration: time.Since(start),
	})
	return out, nil
}
