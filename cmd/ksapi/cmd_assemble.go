package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ksapi/internal/normalize"
)

var (
	asmArch   string
	asmMode   string
	asmEndian string
	asmSyntax string
	asmFile   string
	asmPretty bool
)

// errInvalidJob is returned after field errors have been printed.
var errInvalidJob = errors.New("invalid assembly job")

var assembleCmd = &cobra.Command{
	Use:   "assemble [instruction...]",
	Short: "Assemble instructions once and print the result",
	Long: `Runs one job through the same pipeline as the HTTP API.

Each argument is one instruction line. With --file, lines are read from the
file instead ("-" reads stdin); blank lines are skipped.

Output is JSON unless --pretty is set. --pretty defaults on when stdout is a
terminal.`,
	Example: `  ksapi assemble --arch X86 --mode X32 "add eax, ecx" "ret"
  ksapi assemble --arch ARM --mode THUMB --endian BIG --file prog.s`,
	RunE: runAssemble,
}

func init() {
	assembleCmd.Flags().StringVar(&asmArch, "arch", "", "Architecture (X86, ARM, ARM64, MIPS, PPC, SPARC, EVM)")
	assembleCmd.Flags().StringVar(&asmMode, "mode", "", "Mode (X16, X32, X64, ARM, THUMB, ...)")
	assembleCmd.Flags().StringVar(&asmEndian, "endian", "", "Endianness (LITTLE, BIG)")
	assembleCmd.Flags().StringVar(&asmSyntax, "syntax", "", "X86 syntax (INTEL, ATT, NASM)")
	assembleCmd.Flags().StringVarP(&asmFile, "file", "f", "", "Read instructions from a file, - for stdin")
	assembleCmd.Flags().BoolVar(&asmPretty, "pretty", false, "Print a table instead of JSON")
}

func runAssemble(cmd *cobra.Command, args []string) error {
	lines := args
	if asmFile != "" {
		var err error
		lines, err = readLines(cmd.InOrStdin(), asmFile)
		if err != nil {
			return err
		}
	}

	raw := map[string]any{}
	if len(lines) > 0 || asmFile != "" {
		raw["instructions"] = toAny(lines)
	}
	for key, val := range map[string]string{
		"architecture": asmArch,
		"mode":         asmMode,
		"endian":       asmEndian,
		"syntax":       asmSyntax,
	} {
		if val != "" {
			raw[key] = val
		}
	}

	svc, err := openServices(cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	result, errs, err := svc.pipeline.Run(cmd.Context(), raw)
	if err != nil {
		return err
	}
	if result == nil {
		enc := json.NewEncoder(cmd.ErrOrStderr())
		enc.SetIndent("", "  ")
		enc.Encode(errs)
		return errInvalidJob
	}

	pretty := asmPretty
	if !cmd.Flags().Changed("pretty") {
		pretty = isTerminal(cmd.OutOrStdout())
	}
	if pretty {
		return normalize.Render(cmd.OutOrStdout(), *result)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func readLines(stdin io.Reader, path string) ([]string, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read instructions: %w", err)
	}
	return lines, nil
}

func toAny(lines []string) []any {
	out := make([]any, len(lines))
	for i, l := range lines {
		out[i] = l
	}
	return out
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
