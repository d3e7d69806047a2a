package engine

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// KSToolOptions configures the kstool backend.
type KSToolOptions struct {
	// Path is the kstool binary, looked up in PATH when not absolute.
	Path string
	// Timeout bounds a single line. Zero selects DefaultLineTimeout.
	Timeout time.Duration
	// MaxOutputBytes caps captured stdout and stderr. Zero selects 64 KiB.
	MaxOutputBytes int64
	Logger         *zap.Logger
}

const (
	DefaultLineTimeout    = 5 * time.Second
	defaultMaxOutputBytes = 64 << 10
)

// KSTool drives the Keystone kstool command-line assembler, one process per
// line. It holds no per-session state beyond the resolved target name.
type KSTool struct {
	path      string
	timeout   time.Duration
	maxOutput int64
	logger    *zap.Logger
}

// NewKSTool resolves the binary and returns the backend.
func NewKSTool(opts KSToolOptions) (*KSTool, error) {
	name := opts.Path
	if name == "" {
		name = "kstool"
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("kstool binary not found: %w", err)
	}

	k := &KSTool{
		path:      path,
		timeout:   opts.Timeout,
		maxOutput: opts.MaxOutputBytes,
		logger:    opts.Logger,
	}
	if k.timeout <= 0 {
		k.timeout = DefaultLineTimeout
	}
	if k.maxOutput <= 0 {
		k.maxOutput = defaultMaxOutputBytes
	}
	if k.logger == nil {
		k.logger = zap.NewNop()
	}
	return k, nil
}

func (k *KSTool) Name() string { return "kstool" }

// Path returns the resolved binary.
func (k *KSTool) Path() string { return k.path }

// Open maps cfg to a kstool target. Unsupported combinations fail here, before
// any line is attempted.
func (k *KSTool) Open(ctx context.Context, cfg Config) (Session, error) {
	target, err := KSToolTarget(cfg)
	if err != nil {
		return nil, err
	}
	k.logger.Debug("kstool session opened", zap.String("target", target), zap.Stringer("config", cfg))
	return &kstoolSession{tool: k, target: target}, nil
}

type kstoolSession struct {
	tool   *KSTool
	target string
}

func (s *kstoolSession) Assemble(ctx context.Context, text string) (Encoding, error) {
	k := s.tool

	execCtx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, k.path, s.target, text)
	cmd.WaitDelay = 500 * time.Millisecond

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitedWriter{w: &stdout, max: k.maxOutput}
	cmd.Stderr = &limitedWriter{w: &stderr, max: k.maxOutput}

	start := time.Now()
	runErr := cmd.Run()
	k.logger.Debug("kstool run",
		zap.String("target", s.target),
		zap.String("instruction", text),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(runErr))

	if ctx.Err() != nil {
		return Encoding{}, ctx.Err()
	}
	if execCtx.Err() == context.DeadlineExceeded {
		return Encoding{}, fmt.Errorf("kstool timed out after %s on %q", k.timeout, text)
	}

	enc, err := parseKSToolOutput(text, stdout.String())
	if err == nil {
		return enc, nil
	}
	if _, isLine := AsLineError(err); isLine {
		return Encoding{}, err
	}
	if runErr != nil {
		return Encoding{}, fmt.Errorf("kstool failed: %w: %s", runErr, strings.TrimSpace(stderr.String()))
	}
	return Encoding{}, err
}

func (s *kstoolSession) Close() error { return nil }

var (
	ksErrorPattern   = regexp.MustCompile(`ERROR: failed on ks_asm\(\) with count = (\d+), error = '([^']*)' \(code = (\d+)\)`)
	ksOpenPattern    = regexp.MustCompile(`ERROR: failed on ks_open\(\)`)
	ksEncodedPattern = regexp.MustCompile(`=\s*\[\s*((?:[0-9a-fA-F]{2}\s+)*)\]\s*$`)
)

var errUnexpectedOutput = errors.New("unexpected kstool output")

// parseKSToolOutput reads the single result line kstool prints:
//
//	add eax, ecx = [ 01 c8 ]
//	ERROR: failed on ks_asm() with count = 0, error = 'Invalid mnemonic (KS_ERR_ASM_MNEMONICFAIL)' (code = 512)
func parseKSToolOutput(text, out string) (Encoding, error) {
	if m := ksErrorPattern.FindStringSubmatch(out); m != nil {
		code, _ := strconv.Atoi(m[3])
		return Encoding{}, &AsmError{Code: code, Message: m[2], Instruction: text}
	}
	if ksOpenPattern.MatchString(out) {
		return Encoding{}, fmt.Errorf("kstool could not open the engine: %s", strings.TrimSpace(out))
	}

	line := lastLine(out)
	m := ksEncodedPattern.FindStringSubmatch(line)
	if m == nil {
		return Encoding{}, fmt.Errorf("%w: %q", errUnexpectedOutput, line)
	}
	raw, err := hex.DecodeString(strings.Join(strings.Fields(m[1]), ""))
	if err != nil {
		return Encoding{}, fmt.Errorf("%w: %v", errUnexpectedOutput, err)
	}
	return Encoding{Bytes: raw, Count: statementCount(text)}, nil
}

func lastLine(out string) string {
	lines := strings.Split(strings.TrimRight(out, "\r\n"), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// statementCount mirrors Keystone's statement separators. kstool does not
// print the count on success.
func statementCount(text string) int {
	n := 0
	for _, stmt := range strings.FieldsFunc(text, func(r rune) bool { return r == ';' || r == '\n' }) {
		if strings.TrimSpace(stmt) != "" {
			n++
		}
	}
	return n
}

// limitedWriter caps how much of a stream is kept and silently drops the rest.
type limitedWriter struct {
	w       io.Writer
	max     int64
	written int64
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	remaining := lw.max - lw.written
	if remaining <= 0 {
		return n, nil
	}
	if int64(n) > remaining {
		p = p[:remaining]
	}
	written, err := lw.w.Write(p)
	lw.written += int64(written)
	if err != nil {
		return written, err
	}
	return n, nil
}
