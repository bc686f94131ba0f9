package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"cubesql/internal/domain"
)

// getOutputFormat returns the effective output format. An unset format
// resolves to table when writing to a terminal and json otherwise.
func getOutputFormat(cmd *cobra.Command) string {
	v, _ := cmd.Root().PersistentFlags().GetString("output")
	if v != "" {
		return v
	}
	if isTerminal(cmd.OutOrStdout()) {
		return "table"
	}
	return "json"
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func validateOutputFormat(output string) error {
	if output != "" && output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", output)
	}
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printFrame renders a result set as a bordered table followed by a row
// count.
func printFrame(w io.Writer, frame *domain.DataFrame) error {
	rows := make([][]string, len(frame.Rows))
	for i, row := range frame.Rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = formatCell(v)
		}
		rows[i] = cells
	}
	printTable(w, frame.Columns, rows)

	footer := fmt.Sprintf("(%d rows)", frame.Len())
	if isTerminal(w) {
		footer = color.New(color.Faint).Sprint(footer)
	}
	_, err := fmt.Fprintln(w, footer)
	return err
}

// printTable writes column names as the header row and one table row per
// entry. Column names are printed as-is so they match the JSON keys.
func printTable(w io.Writer, columns []string, rows [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader(columns)
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = flattenCell(c)
		}
		table.Append(cells)
	}
	table.Render()
}

// flattenCell keeps multi-line values on one table row.
func flattenCell(s string) string {
	return strings.NewReplacer("\t", "  ", "\r\n", `\n`, "\n", `\n`).Replace(s)
}

func formatCell(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return x
	case float64:
		return fmt.Sprintf("%g", x)
	case float32:
		return fmt.Sprintf("%g", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
