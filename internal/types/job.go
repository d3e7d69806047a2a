// Package types holds the value types that flow through the assembly
// pipeline: the validated job, its field errors and the per-line outcome.
//
// Every value here is request-scoped. A Job or Outcome is built by one
// request flow and never shared with another.
package types

import (
	"fmt"
	"sort"
	"strings"

	"ksapi/internal/registry"
)

// Field names used as FieldErrors keys.
const (
	FieldArchitecture = "architecture"
	FieldMode         = "mode"
	FieldEndianness   = "endianness"
	FieldSyntax       = "syntax"
	FieldInstructions = "instructions"
)

// Job is a validated assembly request.
type Job struct {
	Arch         registry.Arch
	Mode         registry.Mode
	Endian       registry.Endian
	Syntax       registry.Syntax
	Instructions []string
}

// FieldErrors maps a field name to a human-readable message.
type FieldErrors map[string]string

// Add records msg for field, replacing any earlier message.
func (fe FieldErrors) Add(field, msg string) {
	fe[field] = msg
}

// Has reports whether field carries an error.
func (fe FieldErrors) Has(field string) bool {
	_, ok := fe[field]
	return ok
}

// Blocking reports whether any error prevents the job from being dispatched.
// Only architecture, mode and instructions can block.
func (fe FieldErrors) Blocking() bool {
	return fe.Has(FieldArchitecture) || fe.Has(FieldMode) || fe.Has(FieldInstructions)
}

// Warnings returns the non-blocking subset, or nil when there is none.
func (fe FieldErrors) Warnings() map[string]string {
	var out map[string]string
	for field, msg := range fe {
		if field == FieldArchitecture || field == FieldMode || field == FieldInstructions {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[field] = msg
	}
	return out
}

// Error renders the messages sorted by field name.
func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for field := range fe {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, field := range fields {
		parts[i] = fmt.Sprintf("%s: %s", field, fe[field])
	}
	return strings.Join(parts, "; ")
}

// LineResult is the outcome of one instruction.
type LineResult struct {
	Instruction string
	OK          bool
	Bytes       []byte
	// Count is the number of statements the engine encoded for this line.
	Count int
	Err   error
}

// Outcome is the dispatcher's result for a job. Lines is index-aligned with
// Instructions.
type Outcome struct {
	Arch         registry.Arch
	Mode         registry.Mode
	Endian       registry.Endian
	Syntax       registry.Syntax
	Instructions []string
	Lines        []LineResult
}

// Failed counts the lines that did not assemble.
func (o *Outcome) Failed() int {
	n := 0
	for _, l := range o.Lines {
		if !l.OK {
			n++
		}
	}
	return n
}

// Size returns the total number of encoded bytes.
func (o *Outcome) Size() int {
	n := 0
	for _, l := range o.Lines {
		n += len(l.Bytes)
	}
	return n
}
