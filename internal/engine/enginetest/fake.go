// Package enginetest provides an in-memory engine for tests.
package enginetest

import (
	"context"
	"sync"

	"ksapi/internal/engine"
)

// MnemonicFail is the Keystone code for an unknown mnemonic.
const MnemonicFail = 512

// Fake encodes lines from a fixed table. Lines not in the table fail with an
// invalid-mnemonic AsmError. Safe for concurrent use.
type Fake struct {
	// Encodings maps instruction text to its bytes.
	Encodings map[string][]byte
	// Faults maps instruction text to a non-line error.
	Faults map[string]error
	// OpenErr, when set, is returned by every Open.
	OpenErr error

	mu     sync.Mutex
	opened []engine.Config
	calls  []string
	closed int
}

// New returns a Fake that knows a few X86-32 encodings.
func New() *Fake {
	return &Fake{
		Encodings: map[string][]byte{
			"add eax, ecx": {0x01, 0xc8},
			"nop":          {0x90},
			"ret":          {0xc3},
			"inc eax":      {0x40},
			"mov eax, 1":   {0xb8, 0x01, 0x00, 0x00, 0x00},
		},
		Faults: map[string]error{},
	}
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) Open(ctx context.Context, cfg engine.Config) (engine.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	f.opened = append(f.opened, cfg)
	return &session{fake: f}, nil
}

// Opened returns the configurations sessions were opened with.
func (f *Fake) Opened() []engine.Config {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]engine.Config(nil), f.opened...)
}

// Calls returns every line passed to Assemble, in call order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Closed returns how many sessions were closed.
func (f *Fake) Closed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type session struct {
	fake *Fake
}

func (s *session) Assemble(ctx context.Context, text string) (engine.Encoding, error) {
	if err := ctx.Err(); err != nil {
		return engine.Encoding{}, err
	}

	f := s.fake
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, text)

	if err, ok := f.Faults[text]; ok {
		return engine.Encoding{}, err
	}
	b, ok := f.Encodings[text]
	if !ok {
		return engine.Encoding{}, &engine.AsmError{
			Code:        MnemonicFail,
			Message:     "Invalid mnemonic (KS_ERR_ASM_MNEMONICFAIL)",
			Instruction: text,
		}
	}
	return engine.Encoding{Bytes: append([]byte(nil), b...), Count: 1}, nil
}

func (s *session) Close() error {
	s.fake.mu.Lock()
	s.fake.closed++
	s.fake.mu.Unlock()
	return nil
}
