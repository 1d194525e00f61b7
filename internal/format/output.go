package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	xansi "github.com/charmbracelet/x/ansi"
)

// MaxCellWidth caps table cells; longer values are cut with an ellipsis.
const MaxCellWidth = 48

// Table is a value that can render itself as rows for `--format table`.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Tabular is implemented by command results that support table output.
type Tabular interface {
	Table() Table
}

// Write writes output in the requested format.
//
// Supported formats:
// - json (default)
// - table (only for values implementing Tabular)
func Write(w io.Writer, v any, format string, pretty bool) error {
	switch format {
	case "", "json":
		return WriteJSON(w, v, pretty)
	case "table":
		t, ok := v.(Tabular)
		if !ok {
			return fmt.Errorf("table output is not supported for this command; use --format json")
		}
		return WriteTable(w, t.Table(), pretty)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteJSON writes strict JSON output for CLI commands.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(b))
	return err
}

// WriteTable renders t. Pretty output gets a rounded border and a bold
// header; plain output is borderless and safe to pipe.
func WriteTable(w io.Writer, t Table, pretty bool) error {
	rows := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		cells := make([]string, len(r))
		for j, c := range r {
			cells[j] = cell(c)
		}
		rows[i] = cells
	}

	tbl := table.New().Headers(t.Headers...).Rows(rows...)
	if pretty {
		header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
		body := lipgloss.NewStyle().Padding(0, 1)
		tbl = tbl.Border(lipgloss.RoundedBorder()).
			StyleFunc(func(row, _ int) lipgloss.Style {
				if row == table.HeaderRow {
					return header
				}
				return body
			})
	} else {
		body := lipgloss.NewStyle().PaddingRight(2)
		tbl = tbl.Border(lipgloss.HiddenBorder()).
			BorderTop(false).
			BorderBottom(false).
			BorderLeft(false).
			BorderRight(false).
			BorderHeader(false).
			BorderColumn(false).
			StyleFunc(func(_, _ int) lipgloss.Style { return body })
	}

	out := tbl.String()
	if !pretty {
		lines := strings.Split(out, "\n")
		for i, l := range lines {
			lines[i] = strings.TrimRight(l, " ")
		}
		out = strings.Join(lines, "\n")
	}
	_, err := fmt.Fprintln(w, out)
	return err
}

func cell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if xansi.StringWidth(s) > MaxCellWidth {
		return xansi.Truncate(s, MaxCellWidth, "…")
	}
	return s
}
