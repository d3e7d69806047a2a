package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ksapi/internal/engine"
	"ksapi/internal/registry"
	"ksapi/internal/types"
)

func mixedOutcome() *types.Outcome {
	return &types.Outcome{
		Arch:         registry.ArchX86,
		Mode:         registry.ModeX32,
		Endian:       registry.EndianLittle,
		Instructions: []string{"add eax, ecx", "bogus_mnemonic", "label:"},
		Lines: []types.LineResult{
			{Instruction: "add eax, ecx", OK: true, Bytes: []byte{0x01, 0xc8}},
			{Instruction: "bogus_mnemonic", Err: &engine.AsmError{Code: 512, Message: "Invalid mnemonic (KS_ERR_ASM_MNEMONICFAIL)"}},
			{Instruction: "label:", OK: true, Bytes: nil},
		},
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize(mixedOutcome())

	want := Result{
		Arch:         "X86",
		Mode:         "X32",
		Endian:       "LITTLE",
		Instructions: []string{"add eax, ecx", "bogus_mnemonic", "label:"},
		Code:         [][]string{{"0x01", "0xc8"}, nil, {}},
		Errors: []LineError{{
			Line:        1,
			Instruction: "bogus_mnemonic",
			Code:        512,
			Message:     "Invalid mnemonic (KS_ERR_ASM_MNEMONICFAIL)",
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Normalize mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, got.OK())
}

func TestNormalizeWireShape(t *testing.T) {
	out := &types.Outcome{
		Arch:         registry.ArchX86,
		Mode:         registry.ModeX32,
		Instructions: []string{"add eax, ecx"},
		Lines:        []types.LineResult{{Instruction: "add eax, ecx", OK: true, Bytes: []byte{0x01, 0xc8}}},
	}
	body, err := json.Marshal(Normalize(out))
	require.NoError(t, err)
	assert.JSONEq(t, `{"arch":"X86","mode":"X32","endian":"LITTLE","instructions":["add eax, ecx"],"code":[["0x01","0xc8"]]}`, string(body))
}

func TestNormalizeFailedLineIsNull(t *testing.T) {
	body, err := json.Marshal(Normalize(mixedOutcome()))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	code := decoded["code"].([]any)
	require.Len(t, code, 3)
	assert.Nil(t, code[1])
	assert.Equal(t, []any{}, code[2], "an empty encoding is not an error")
}

func TestNormalizeEmptyJob(t *testing.T) {
	out := &types.Outcome{Arch: registry.ArchARM, Mode: registry.ModeThumb, Endian: registry.EndianBig}
	body, err := json.Marshal(Normalize(out))
	require.NoError(t, err)
	assert.JSONEq(t, `{"arch":"ARM","mode":"THUMB","endian":"BIG","instructions":[],"code":[]}`, string(body))
}

func TestNormalizeSyntax(t *testing.T) {
	out := &types.Outcome{Arch: registry.ArchX86, Mode: registry.ModeX64, Syntax: registry.SyntaxATT}
	assert.Equal(t, "ATT", Normalize(out).Syntax)
}

func TestNormalizeNonEngineLineError(t *testing.T) {
	out := &types.Outcome{
		Arch:         registry.ArchX86,
		Mode:         registry.ModeX64,
		Instructions: []string{"x"},
		Lines:        []types.LineResult{{Instruction: "x", Err: errors.New("odd")}},
	}
	r := Normalize(out)
	require.Len(t, r.Errors, 1)
	assert.Equal(t, "odd", r.Errors[0].Message)
	assert.Zero(t, r.Errors[0].Code)
}

func TestNormalizeDoesNotAlias(t *testing.T) {
	out := mixedOutcome()
	r := Normalize(out)
	r.Instructions[0] = "changed"
	assert.Equal(t, "add eax, ecx", out.Instructions[0])
}

func TestHexBytes(t *testing.T) {
	assert.Equal(t, []string{"0x00", "0x0f", "0xff"}, HexBytes([]byte{0x00, 0x0f, 0xff}))
	assert.NotNil(t, HexBytes(nil))
}

func TestRender(t *testing.T) {
	r := Normalize(mixedOutcome())
	r.Warnings = map[string]string{"endianness": "MIDDLE is not a supported endian"}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, r))

	out := buf.String()
	assert.Contains(t, out, "Architecture: X86")
	assert.Contains(t, out, "add eax, ecx")
	assert.Contains(t, out, "0x01 0xc8")
	assert.Contains(t, out, "error: Invalid mnemonic")
	assert.Contains(t, out, "MIDDLE is not a supported endian")
}
