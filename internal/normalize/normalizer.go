// Package normalize shapes a dispatcher outcome into the wire response:
// engine identifiers become declared names and bytes become hex strings.
package normalize

import (
	"fmt"

	"ksapi/internal/engine"
	"ksapi/internal/registry"
	"ksapi/internal/types"
)

// LineError describes a line that did not assemble. Line is the index into
// Instructions and Code.
type LineError struct {
	Line        int    `json:"line"`
	Instruction string `json:"instruction"`
	Code        int    `json:"code,omitempty"`
	Message     string `json:"message"`
}

// Result is the response body for a dispatched job.
//
// Code is index-aligned with Instructions. A failed line is a null entry and
// has a matching element in Errors; a successful line is a (possibly empty)
// list of "0x"-prefixed byte strings.
type Result struct {
	Arch         string            `json:"arch"`
	Mode         string            `json:"mode"`
	Endian       string            `json:"endian"`
	Syntax       string            `json:"syntax,omitempty"`
	Instructions []string          `json:"instructions"`
	Code         [][]string        `json:"code"`
	Errors       []LineError       `json:"errors,omitempty"`
	Warnings     map[string]string `json:"warnings,omitempty"`
}

// OK reports whether every line assembled.
func (r *Result) OK() bool { return len(r.Errors) == 0 }

// Normalize converts o. It does not modify o.
func Normalize(o *types.Outcome) Result {
	r := Result{
		Arch:         name(registry.FamilyArch, int(o.Arch)),
		Mode:         name(registry.FamilyMode, int(o.Mode)),
		Endian:       name(registry.FamilyEndian, int(o.Endian)),
		Instructions: make([]string, len(o.Instructions)),
		Code:         make([][]string, len(o.Lines)),
	}
	if o.Syntax != registry.SyntaxDefault {
		r.Syntax = name(registry.FamilySyntax, int(o.Syntax))
	}
	copy(r.Instructions, o.Instructions)

	for i, line := range o.Lines {
		if line.OK {
			r.Code[i] = HexBytes(line.Bytes)
			continue
		}
		le := LineError{Line: i, Instruction: line.Instruction}
		if ae, ok := engine.AsLineError(line.Err); ok {
			le.Code = ae.Code
			le.Message = ae.Message
		} else if line.Err != nil {
			le.Message = line.Err.Error()
		}
		r.Errors = append(r.Errors, le)
	}
	return r
}

// HexBytes renders each byte as "0x" followed by two lowercase hex digits.
// The result is never nil.
func HexBytes(b []byte) []string {
	out := make([]string, len(b))
	for i, v := range b {
		out[i] = fmt.Sprintf("0x%02x", v)
	}
	return out
}

func name(family registry.Family, id int) string {
	if n, ok := registry.NameOf(family, id); ok {
		return n
	}
	return ""
}
