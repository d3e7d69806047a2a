package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type panicSink struct{}

func (panicSink) Record(Event) { panic("boom") }

func TestSafeRecordSwallowsPanics(t *testing.T) {
	assert.NotPanics(t, func() {
		SafeRecord(panicSink{}, Event{Kind: KindLineFailed})
	})
	assert.NotPanics(t, func() {
		SafeRecord(nil, Event{Kind: KindLineFailed})
	})
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	r.Record(Event{Kind: KindFieldReceived, Field: "mode", Value: "X32"})
	r.Record(Event{Kind: KindLineAssembled, Line: 0, Size: 2})
	r.Record(Event{Kind: KindFieldReceived, Field: "architecture", Value: "X86"})

	require.Len(t, r.Events(), 3)
	fieldEvents := r.OfKind(KindFieldReceived)
	require.Len(t, fieldEvents, 2)
	assert.Equal(t, "mode", fieldEvents[0].Field)
	assert.Equal(t, "architecture", fieldEvents[1].Field)
}

func TestTeeContinuesPastPanickingSink(t *testing.T) {
	r := NewRecorder()
	tee := Tee{panicSink{}, r}
	tee.Record(Event{Kind: KindJobDispatched, Lines: 3})
	assert.Len(t, r.Events(), 1)
}

func TestZapSink(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := NewZapSink(zap.New(core))

	sink.Record(Event{Kind: KindLineFailed, Line: 2, Instruction: "bogus", Message: "invalid mnemonic"})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "line_failed", entries[0].Message)
	ctx := entries[0].ContextMap()
	assert.Equal(t, int64(2), ctx["line"])
	assert.Equal(t, "bogus", ctx["instruction"])
	assert.Equal(t, "invalid mnemonic", ctx["error"])
}

func TestZapSinkRespectsLevel(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := NewZapSink(zap.New(core))
	sink.Record(Event{Kind: KindFieldReceived, Field: "mode"})
	assert.Zero(t, logs.Len())
}

func TestRouteByKind(t *testing.T) {
	fields, rest := NewRecorder(), NewRecorder()
	route := Route{
		Kinds:   map[Kind]Sink{KindFieldReceived: fields, KindLineFailed: panicSink{}},
		Default: rest,
	}

	route.Record(Event{Kind: KindFieldReceived, Field: "mode"})
	route.Record(Event{Kind: KindLineAssembled, Line: 1})
	route.Record(Event{Kind: KindLineFailed, Line: 2})

	require.Len(t, fields.Events(), 1)
	assert.Equal(t, "mode", fields.Events()[0].Field)
	require.Len(t, rest.Events(), 1)
	assert.Equal(t, KindLineAssembled, rest.Events()[0].Kind)

	assert.NotPanics(t, func() { Route{}.Record(Event{Kind: KindJobDispatched}) })
}
