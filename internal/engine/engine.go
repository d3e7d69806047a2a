// Package engine defines the boundary to the external assembler engine.
//
// The engine is a black box: a session is opened for one
// (architecture, mode, endianness, syntax) configuration and then asked to
// encode one instruction line at a time. Line failures come back as
// *AsmError values. Anything else an engine returns is a fault that the
// caller cannot recover from inside the current request.
package engine

import (
	"context"
	"errors"
	"fmt"

	"ksapi/internal/registry"
)

// ErrUnsupportedTarget is returned by Open when the engine cannot serve the
// requested configuration.
var ErrUnsupportedTarget = errors.New("unsupported target")

// Config selects the engine target. It is fixed when the session is opened.
type Config struct {
	Arch   registry.Arch
	Mode   registry.Mode
	Endian registry.Endian
	Syntax registry.Syntax
}

func (c Config) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", c.Arch, c.Mode, c.Endian, c.Syntax)
}

// Encoding is the machine code for one instruction line.
type Encoding struct {
	Bytes []byte
	// Count is the number of statements encoded.
	Count int
}

// Engine opens sessions. Implementations must be safe for concurrent use;
// sessions need not be.
type Engine interface {
	Name() string
	Open(ctx context.Context, cfg Config) (Session, error)
}

// Session encodes lines for a single configuration.
type Session interface {
	Assemble(ctx context.Context, text string) (Encoding, error)
	Close() error
}

// AsmError is a line-scoped encoding failure, such as an unknown mnemonic or
// an invalid operand. It is deterministic for a given configuration and text.
type AsmError struct {
	// Code is the engine's numeric error code (Keystone ks_err).
	Code        int
	Message     string
	Instruction string
}

func (e *AsmError) Error() string {
	if e.Instruction == "" {
		return fmt.Sprintf("%s (code = %d)", e.Message, e.Code)
	}
	return fmt.Sprintf("%s (code = %d) on line %q", e.Message, e.Code, e.Instruction)
}

// AsLineError reports whether err is, or wraps, a line-scoped failure.
func AsLineError(err error) (*AsmError, bool) {
	var ae *AsmError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
