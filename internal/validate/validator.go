// Package validate turns an untyped request body into a typed assembly job.
//
// Every field is checked on its own so that all problems surface together.
// Only architecture, mode and instructions can make a job unusable; a bad
// endian or syntax value is reported but the job falls back to the default.
package validate

import (
	"fmt"

	"ksapi/internal/registry"
	"ksapi/internal/trace"
	"ksapi/internal/types"
)

// Request body keys.
const (
	KeyArchitecture = "architecture"
	KeyMode         = "mode"
	KeyEndian       = "endian"
	KeySyntax       = "syntax"
	KeyInstructions = "instructions"
)

// Options configures a Validator.
type Options struct {
	// MaxInstructions caps the number of lines per job. Zero means no limit.
	MaxInstructions int
	// Sink receives one field_received event per present field.
	Sink trace.Sink
}

// Validator is stateless across calls and safe for concurrent use.
type Validator struct {
	maxInstructions int
	sink            trace.Sink
}

func New(opts Options) *Validator {
	sink := opts.Sink
	if sink == nil {
		sink = trace.NopSink{}
	}
	return &Validator{maxInstructions: opts.MaxInstructions, sink: sink}
}

// Validate parses raw into a job. The returned FieldErrors is never nil. The
// job is nil exactly when FieldErrors.Blocking() is true.
func (v *Validator) Validate(raw map[string]any) (*types.Job, types.FieldErrors) {
	errs := types.FieldErrors{}
	job := &types.Job{}

	job.Arch = v.architecture(raw, errs)
	job.Mode = v.mode(raw, errs)
	job.Endian = v.endian(raw, errs)
	job.Syntax = v.syntax(raw, errs)
	job.Instructions = v.instructions(raw, errs)

	if errs.Blocking() {
		return nil, errs
	}
	return job, errs
}

func (v *Validator) architecture(raw map[string]any, errs types.FieldErrors) registry.Arch {
	val, ok := v.field(raw, KeyArchitecture)
	if !ok {
		errs.Add(types.FieldArchitecture, "architecture is none, architecture is required")
		return 0
	}
	name, isText := types.ExtractText(val)
	arch, err := registry.ResolveArch(name)
	if !isText || err != nil {
		errs.Add(types.FieldArchitecture, fmt.Sprintf("%s is not a supported architecture", types.ExtractString(val)))
		return 0
	}
	return arch
}

func (v *Validator) mode(raw map[string]any, errs types.FieldErrors) registry.Mode {
	val, ok := v.field(raw, KeyMode)
	if !ok {
		errs.Add(types.FieldMode, "mode is none, mode is required")
		return 0
	}
	name, isText := types.ExtractText(val)
	mode, err := registry.ResolveMode(name)
	if !isText || err != nil {
		errs.Add(types.FieldMode, fmt.Sprintf("%s is not a supported mode", types.ExtractString(val)))
		return 0
	}
	return mode
}

func (v *Validator) endian(raw map[string]any, errs types.FieldErrors) registry.Endian {
	val, ok := v.field(raw, KeyEndian)
	if !ok {
		return registry.EndianLittle
	}
	name, isText := types.ExtractText(val)
	endian, err := registry.ResolveEndian(name)
	if !isText || err != nil {
		errs.Add(types.FieldEndianness, fmt.Sprintf("%s is not a supported endian", types.ExtractString(val)))
		return registry.EndianLittle
	}
	return endian
}

func (v *Validator) syntax(raw map[string]any, errs types.FieldErrors) registry.Syntax {
	val, ok := v.field(raw, KeySyntax)
	if !ok {
		return registry.SyntaxDefault
	}
	name, isText := types.ExtractText(val)
	syntax, err := registry.ResolveSyntax(name)
	if !isText || err != nil {
		errs.Add(types.FieldSyntax, fmt.Sprintf("%s is not a supported syntax", types.ExtractString(val)))
		return registry.SyntaxDefault
	}
	return syntax
}

func (v *Validator) instructions(raw map[string]any, errs types.FieldErrors) []string {
	val, ok := v.field(raw, KeyInstructions)
	if !ok {
		errs.Add(types.FieldInstructions, "instructions is none, instructions are required")
		return nil
	}
	lines, ok := types.ExtractStringSlice(val)
	if !ok {
		errs.Add(types.FieldInstructions, "instructions must be a list of strings")
		return nil
	}
	if v.maxInstructions > 0 && len(lines) > v.maxInstructions {
		errs.Add(types.FieldInstructions, fmt.Sprintf("instructions exceeds the limit of %d lines", v.maxInstructions))
		return nil
	}
	return lines
}

func (v *Validator) field(raw map[string]any, key string) (any, bool) {
	val, ok := types.Field(raw, key)
	if ok {
		trace.SafeRecord(v.sink, trace.Event{
			Kind:  trace.KindFieldReceived,
			Field: key,
			Value: types.ExtractString(val),
		})
	}
	return val, ok
}
