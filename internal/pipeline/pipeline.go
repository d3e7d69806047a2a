// Package pipeline wires the validator, dispatcher and normalizer into the
// single request flow shared by the HTTP adapter and the CLI.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ksapi/internal/dispatch"
	"ksapi/internal/engine"
	"ksapi/internal/history"
	"ksapi/internal/logging"
	"ksapi/internal/normalize"
	"ksapi/internal/trace"
	"ksapi/internal/types"
	"ksapi/internal/validate"
)

// Recorder stores job summaries. *history.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) (history.Entry, error)
}

// Options configures a Pipeline.
type Options struct {
	MaxInstructions int
	Sink            trace.Sink
	Logger          *zap.Logger
	// History is optional.
	History Recorder
	// SlowJob is the duration above which a job is logged at warn level.
	SlowJob time.Duration
}

// Pipeline is safe for concurrent use.
type Pipeline struct {
	validator  *validate.Validator
	dispatcher *dispatch.Dispatcher
	history    Recorder
	logger     *zap.Logger
	slowJob    time.Duration
}

const recordTimeout = 2 * time.Second

func New(eng engine.Engine, opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	slow := opts.SlowJob
	if slow <= 0 {
		slow = 2 * time.Second
	}
	return &Pipeline{
		validator: validate.New(validate.Options{
			MaxInstructions: opts.MaxInstructions,
			Sink:            opts.Sink,
		}),
		dispatcher: dispatch.New(eng, dispatch.Options{
			Sink:   opts.Sink,
			Logger: logging.For(logger, logging.CategoryDispatch),
		}),
		history: opts.History,
		logger:  logger,
		slowJob: slow,
	}
}

// Run validates raw and, when nothing blocks, assembles it.
//
// Exactly one of three shapes comes back: blocking field errors with a nil
// result; a non-nil error (wrapping dispatch.ErrEngineFault) for an engine
// fault; or a result whose Warnings carry any non-blocking field errors.
// The FieldErrors map is never nil.
func (p *Pipeline) Run(ctx context.Context, raw map[string]any) (*normalize.Result, types.FieldErrors, error) {
	log := logging.FromContext(ctx, p.logger)
	timer := logging.StartTimer(log, "assembly job")

	job, errs := p.validator.Validate(raw)
	if job == nil {
		elapsed := timer.Stop()
		log.Debug("job rejected", zap.Int("fields", len(errs)))
		p.record(ctx, summary(raw, nil, nil, elapsed, history.StatusInvalid))
		return nil, errs, nil
	}

	outcome, err := p.dispatcher.Dispatch(ctx, job)
	elapsed := timer.StopWithThreshold(p.slowJob)
	if err != nil {
		log.Error("job aborted", zap.Error(err))
		p.record(ctx, summary(raw, job, nil, elapsed, history.StatusFault))
		return nil, errs, err
	}

	result := normalize.Normalize(outcome)
	result.Warnings = errs.Warnings()

	status := history.StatusOK
	if outcome.Failed() > 0 {
		status = history.StatusPartial
	}
	p.record(ctx, summary(raw, job, outcome, elapsed, status))
	return &result, errs, nil
}

// record never fails the request.
func (p *Pipeline) record(ctx context.Context, e history.Entry) {
	if p.history == nil {
		return
	}
	e.RequestID = logging.RequestID(ctx)

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if _, err := p.history.Record(rctx, e); err != nil {
		logging.FromContext(ctx, p.logger).Warn("failed to record job", zap.Error(err))
	}
}

func summary(raw map[string]any, job *types.Job, o *types.Outcome, elapsed time.Duration, status history.Status) history.Entry {
	e := history.Entry{
		DurationMs: elapsed.Milliseconds(),
		Status:     status,
	}
	if job != nil {
		e.Arch = job.Arch.String()
		e.Mode = job.Mode.String()
		e.Endian = job.Endian.String()
		e.Lines = len(job.Instructions)
	} else {
		// Echo what the caller sent so rejected jobs are still searchable.
		if v, ok := types.Field(raw, validate.KeyArchitecture); ok {
			e.Arch = types.ExtractString(v)
		}
		if v, ok := types.Field(raw, validate.KeyMode); ok {
			e.Mode = types.ExtractString(v)
		}
		if v, ok := types.Field(raw, validate.KeyEndian); ok {
			e.Endian = types.ExtractString(v)
		}
	}
	if o != nil {
		e.Failed = o.Failed()
	}
	return e
}
