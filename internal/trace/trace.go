// Package trace is the side channel the validator and dispatcher report to.
//
// Sinks must be inert: Record never returns an error, never panics into the
// caller, and nothing it does may change what the pipeline returns.
package trace

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Kind names an event.
type Kind string

const (
	KindFieldReceived Kind = "field_received"
	KindLineAssembled Kind = "line_assembled"
	KindLineFailed    Kind = "line_failed"
	KindJobDispatched Kind = "job_dispatched"
)

// Event is one observation. Only the fields relevant to Kind are set.
type Event struct {
	Kind Kind

	// field_received
	Field string
	Value string

	// line_assembled, line_failed
	Line        int
	Instruction string
	Size        int
	Message     string

	// job_dispatched
	Lines    int
	Failed   int
	Duration time.Duration
}

// Sink receives events.
type Sink interface {
	Record(event Event)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Record(Event) {}

// SafeRecord forwards event to s and swallows any panic from a buggy sink.
func SafeRecord(s Sink, event Event) {
	if s == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	s.Record(event)
}

// Recorder keeps events in memory. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Record(event Event) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfKind filters the recorded events.
func (r *Recorder) OfKind(kind Kind) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// ZapSink writes events as debug-level structured log entries.
type ZapSink struct {
	logger *zap.Logger
}

func NewZapSink(logger *zap.Logger) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger}
}

func (z *ZapSink) Record(event Event) {
	if ce := z.logger.Check(zap.DebugLevel, string(event.Kind)); ce != nil {
		ce.Write(fields(event)...)
	}
}

// Tee fans one event out to several sinks.
type Tee []Sink

func (t Tee) Record(event Event) {
	for _, s := range t {
		SafeRecord(s, event)
	}
}

// Route sends each event to the sink registered for its kind, or to Default.
type Route struct {
	Kinds   map[Kind]Sink
	Default Sink
}

func (r Route) Record(event Event) {
	if s, ok := r.Kinds[event.Kind]; ok {
		SafeRecord(s, event)
		return
	}
	SafeRecord(r.Default, event)
}

func fields(e Event) []zap.Field {
	switch e.Kind {
	case KindFieldReceived:
		return []zap.Field{zap.String("field", e.Field), zap.String("value", e.Value)}
	case KindLineAssembled:
		return []zap.Field{zap.Int("line", e.Line), zap.String("instruction", e.Instruction), zap.Int("size", e.Size)}
	case KindLineFailed:
		return []zap.Field{zap.Int("line", e.Line), zap.String("instruction", e.Instruction), zap.String("error", e.Message)}
	case KindJobDispatched:
		return []zap.Field{zap.Int("lines", e.Lines), zap.Int("failed", e.Failed), zap.Duration("duration", e.Duration)}
	default:
		return nil
	}
}
