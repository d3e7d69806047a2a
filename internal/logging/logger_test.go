package logging

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"info", zapcore.InfoLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"warning", zapcore.WarnLevel},
		{" error ", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestNewWritesJSONAndHonorsAtomicLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ksapi.log")
	logger, level, err := New(Options{Level: "warn", OutputPaths: []string{path}})
	require.NoError(t, err)

	For(logger, CategoryAPI).Info("hidden")
	level.SetLevel(zapcore.InfoLevel)
	For(logger, CategoryAPI).Info("visible", zap.String("k", "v"))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"visible"`)
	assert.Contains(t, out, `"logger":"api"`)
	assert.Equal(t, 1, strings.Count(strings.TrimSpace(out), "\n")+1)
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, _, err := New(Options{Level: "loud"})
	assert.Error(t, err)

	_, _, err = New(Options{Format: "xml"})
	assert.Error(t, err)
}

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestID(ctx))

	ctx = WithRequestID(ctx, "req-1")
	assert.Equal(t, "req-1", RequestID(ctx))

	core, logs := observer.New(zapcore.InfoLevel)
	FromContext(ctx, zap.New(core)).Info("hello")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "req-1", logs.All()[0].ContextMap()["req"])
}

func TestTimer(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	elapsed := StartTimer(logger, "assemble").Stop()
	assert.GreaterOrEqual(t, elapsed, time.Duration(0))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "assemble completed", logs.All()[0].Message)

	StartTimer(logger, "dispatch").StopWithThreshold(-time.Second)
	warn := logs.FilterMessage("dispatch slow").All()
	require.Len(t, warn, 1)
	assert.Equal(t, zapcore.WarnLevel, warn[0].Level)
}

func TestNilSafety(t *testing.T) {
	assert.NotPanics(t, func() {
		For(nil, CategoryBoot).Info("x")
		FromContext(context.Background(), nil).Info("x")
		StartTimer(nil, "op").Stop()
	})
}
