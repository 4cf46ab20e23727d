package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/wethinkt/go-orbitaldb/internal/engine"
)

const maxCellWidth = 32

// formatCell renders one result value as plain text.
func formatCell(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case string:
		return strings.ReplaceAll(v, "\n", "⏎")
	case []byte:
		return string(v)
	case time.Time:
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 && v.Nanosecond() == 0 {
			return v.Format(time.DateOnly)
		}
		return v.Format(time.DateTime)
	case float32, float64:
		return fmt.Sprintf("%g", v)
	default:
		return strings.ReplaceAll(fmt.Sprint(v), "\n", "⏎")
	}
}

// pad right-pads s with spaces to w display cells.
func pad(s string, w int) string {
	if n := ansi.StringWidth(s); n < w {
		return s + strings.Repeat(" ", w-n)
	}
	return s
}

// renderGrid renders rows [offset, offset+maxRows) of res as an aligned
// table at most width cells wide.
func renderGrid(res *engine.Result, width, maxRows, offset int) string {
	if res == nil || len(res.Columns) == 0 {
		return ""
	}

	cells := make([][]string, len(res.Rows))
	widths := make([]int, len(res.Columns))
	for i, c := range res.Columns {
		widths[i] = ansi.StringWidth(c.Name)
	}
	for r, row := range res.Rows {
		cells[r] = make([]string, len(row))
		for i, v := range row {
			s := formatCell(v)
			cells[r][i] = s
			if i < len(widths) {
				widths[i] = max(widths[i], ansi.StringWidth(s))
			}
		}
	}
	for i := range widths {
		widths[i] = min(widths[i], maxCellWidth)
	}

	sep := gridBorderStyle.Render(" │ ")
	fit := func(line string) string {
		if width > 0 {
			return ansi.Truncate(line, width, "…")
		}
		return line
	}

	var b strings.Builder

	header := make([]string, len(res.Columns))
	rule := make([]string, len(res.Columns))
	for i, c := range res.Columns {
		header[i] = gridHeaderStyle.Render(pad(ansi.Truncate(c.Name, widths[i], "…"), widths[i]))
		rule[i] = strings.Repeat("─", widths[i])
	}
	b.WriteString(fit(strings.Join(header, sep)))
	b.WriteString("\n")
	b.WriteString(fit(gridBorderStyle.Render(strings.Join(rule, "─┼─"))))

	offset = max(0, min(offset, len(cells)))
	end := len(cells)
	if maxRows > 0 {
		end = min(end, offset+maxRows)
	}
	for r := offset; r < end; r++ {
		line := make([]string, len(res.Columns))
		for i := range res.Columns {
			var s string
			if i < len(cells[r]) {
				s = cells[r][i]
			}
			s = pad(ansi.Truncate(s, widths[i], "…"), widths[i])
			if i < len(res.Rows[r]) && res.Rows[r][i] == nil {
				s = gridNullStyle.Render(s)
			}
			line[i] = s
		}
		b.WriteString("\n")
		b.WriteString(fit(strings.Join(line, sep)))
	}
	return b.String()
}

// resultSummary is the one-line footer under a result.
func resultSummary(res *engine.Result) string {
	d := res.Duration.Round(time.Millisecond)
	if len(res.Columns) == 0 {
		return fmt.Sprintf("%s OK · %d rows affected · %s", res.StatementType, res.AffectedRows, d)
	}
	s := fmt.Sprintf("%d rows · %s · %s", res.RowCount, d, res.StatementType)
	if res.Truncated {
		s += " · truncated"
	}
	return s
}
