package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"ksapi/internal/registry"
)

var targetsJSON bool

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List supported architectures, modes, endianness and syntaxes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if targetsJSON {
			out := make(map[string][]string)
			for _, f := range registry.Families() {
				out[string(f)] = registry.Names(f)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("FAMILY", "NAMES").
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				return cellStyle
			})
		for _, f := range registry.Families() {
			t.Row(string(f), strings.Join(registry.Names(f), ", "))
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		return err
	},
}

func init() {
	targetsCmd.Flags().BoolVar(&targetsJSON, "json", false, "Print JSON")
}
