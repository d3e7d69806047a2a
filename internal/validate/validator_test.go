package validate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ksapi/internal/registry"
	"ksapi/internal/trace"
	"ksapi/internal/types"
)

func decode(t *testing.T, body string) map[string]any {
	t.Helper()
	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &raw))
	return raw
}

func TestValidateHappyPath(t *testing.T) {
	v := New(Options{})
	job, errs := v.Validate(decode(t, `{"architecture":"x86","mode":"x32","instructions":["add eax, ecx","nop"]}`))

	require.Empty(t, errs)
	require.NotNil(t, job)
	assert.Equal(t, registry.ArchX86, job.Arch)
	assert.Equal(t, registry.ModeX32, job.Mode)
	assert.Equal(t, registry.EndianLittle, job.Endian, "endian defaults to little")
	assert.Equal(t, registry.SyntaxDefault, job.Syntax)
	assert.Equal(t, []string{"add eax, ecx", "nop"}, job.Instructions)
}

func TestValidateExplicitEndianAndSyntax(t *testing.T) {
	v := New(Options{})
	job, errs := v.Validate(decode(t, `{"architecture":"MIPS","mode":"X32","endian":"big","syntax":"att","instructions":[]}`))

	require.Empty(t, errs)
	require.NotNil(t, job)
	assert.Equal(t, registry.EndianBig, job.Endian)
	assert.Equal(t, registry.SyntaxATT, job.Syntax)
	assert.NotNil(t, job.Instructions)
	assert.Empty(t, job.Instructions, "an empty batch is a valid job")
}

func TestValidateSingleMissingField(t *testing.T) {
	full := map[string]any{
		KeyArchitecture: "X86",
		KeyMode:         "X32",
		KeyInstructions: []any{"nop"},
	}
	tests := []struct {
		drop  string
		field string
		msg   string
	}{
		{KeyArchitecture, types.FieldArchitecture, "architecture is none, architecture is required"},
		{KeyMode, types.FieldMode, "mode is none, mode is required"},
		{KeyInstructions, types.FieldInstructions, "instructions is none, instructions are required"},
	}
	for _, tt := range tests {
		t.Run(tt.drop, func(t *testing.T) {
			raw := make(map[string]any, len(full))
			for k, val := range full {
				if k != tt.drop {
					raw[k] = val
				}
			}

			job, errs := New(Options{}).Validate(raw)
			assert.Nil(t, job)
			assert.Equal(t, types.FieldErrors{tt.field: tt.msg}, errs)
		})
	}
}

func TestValidateNullCountsAsMissing(t *testing.T) {
	job, errs := New(Options{}).Validate(decode(t, `{"architecture":null,"mode":"X32","instructions":["nop"]}`))
	assert.Nil(t, job)
	assert.Equal(t, "architecture is none, architecture is required", errs[types.FieldArchitecture])
}

func TestValidateUnsupportedValues(t *testing.T) {
	job, errs := New(Options{}).Validate(decode(t, `{"architecture":"ZILOG80","mode":"X99","instructions":["nop"]}`))
	assert.Nil(t, job)
	assert.Equal(t, types.FieldErrors{
		types.FieldArchitecture: "ZILOG80 is not a supported architecture",
		types.FieldMode:         "X99 is not a supported mode",
	}, errs)
}

func TestValidateNonStringValues(t *testing.T) {
	job, errs := New(Options{}).Validate(decode(t, `{"architecture":80,"mode":true,"instructions":"nop"}`))
	assert.Nil(t, job)
	assert.Equal(t, "80 is not a supported architecture", errs[types.FieldArchitecture])
	assert.Equal(t, "true is not a supported mode", errs[types.FieldMode])
	assert.Equal(t, "instructions must be a list of strings", errs[types.FieldInstructions])
}

func TestValidateAllErrorsTogether(t *testing.T) {
	job, errs := New(Options{}).Validate(map[string]any{"endian": "MIDDLE"})
	assert.Nil(t, job)
	assert.Len(t, errs, 4)
	assert.True(t, errs.Has(types.FieldArchitecture))
	assert.True(t, errs.Has(types.FieldMode))
	assert.True(t, errs.Has(types.FieldInstructions))
	assert.Equal(t, "MIDDLE is not a supported endian", errs[types.FieldEndianness])
}

func TestValidateBadEndianDoesNotBlock(t *testing.T) {
	job, errs := New(Options{}).Validate(decode(t, `{"architecture":"ARM","mode":"THUMB","endian":"middle","syntax":"motorola","instructions":["nop"]}`))

	require.NotNil(t, job)
	assert.False(t, errs.Blocking())
	assert.Equal(t, registry.EndianLittle, job.Endian)
	assert.Equal(t, registry.SyntaxDefault, job.Syntax)
	assert.Equal(t, "middle is not a supported endian", errs[types.FieldEndianness])
	assert.Equal(t, "motorola is not a supported syntax", errs[types.FieldSyntax])
}

func TestValidateInstructionLimit(t *testing.T) {
	v := New(Options{MaxInstructions: 2})

	job, errs := v.Validate(decode(t, `{"architecture":"X86","mode":"X64","instructions":["nop","nop"]}`))
	require.NotNil(t, job)
	assert.Empty(t, errs)

	job, errs = v.Validate(decode(t, `{"architecture":"X86","mode":"X64","instructions":["nop","nop","nop"]}`))
	assert.Nil(t, job)
	assert.Equal(t, "instructions exceeds the limit of 2 lines", errs[types.FieldInstructions])
}

func TestValidateInstructionsVerbatim(t *testing.T) {
	job, errs := New(Options{}).Validate(decode(t, `{"architecture":"X86","mode":"X64","instructions":["  MOV rax, 1 ","bogus_mnemonic",""]}`))
	require.Empty(t, errs)
	assert.Equal(t, []string{"  MOV rax, 1 ", "bogus_mnemonic", ""}, job.Instructions)
}

func TestValidateTraceIsSideChannel(t *testing.T) {
	rec := trace.NewRecorder()
	raw := decode(t, `{"architecture":"X86","mode":"X32","instructions":["nop"]}`)

	traced, tracedErrs := New(Options{Sink: rec}).Validate(raw)
	plain, plainErrs := New(Options{}).Validate(raw)

	assert.Equal(t, plain, traced)
	assert.Equal(t, plainErrs, tracedErrs)

	events := rec.OfKind(trace.KindFieldReceived)
	require.Len(t, events, 3)
	assert.Equal(t, KeyArchitecture, events[0].Field)
	assert.Equal(t, "X86", events[0].Value)
}

type panicSink struct{}

func (panicSink) Record(trace.Event) { panic("sink failure") }

func TestValidatePanickingSink(t *testing.T) {
	v := New(Options{Sink: panicSink{}})
	job, errs := v.Validate(map[string]any{"architecture": "X86", "mode": "X32", "instructions": []any{"nop"}})
	require.NotNil(t, job)
	assert.Empty(t, errs)
}
