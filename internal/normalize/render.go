package normalize

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	errorStyle  = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("196"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// Render writes a human-readable table of r: one row per instruction with its
// machine code or error.
func Render(w io.Writer, r Result) error {
	failed := make(map[int]LineError, len(r.Errors))
	for _, le := range r.Errors {
		failed[le.Line] = le
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "INSTRUCTION", "MACHINE CODE").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if _, bad := failed[row]; bad && col == 2 {
				return errorStyle
			}
			return cellStyle
		})

	for i, text := range r.Instructions {
		code := ""
		if le, bad := failed[i]; bad {
			code = "error: " + le.Message
		} else if i < len(r.Code) {
			code = strings.Join(r.Code[i], " ")
		}
		t.Row(strconv.Itoa(i), text, code)
	}

	title := fmt.Sprintf("Architecture: %s  Mode: %s  Endian: %s", r.Arch, r.Mode, r.Endian)
	if r.Syntax != "" {
		title += "  Syntax: " + r.Syntax
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(t.String())
	b.WriteString("\n")
	for field, msg := range r.Warnings {
		b.WriteString(warnStyle.Render(fmt.Sprintf("warning: %s: %s", field, msg)))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
