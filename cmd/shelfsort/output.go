package main

import (
	"encoding/json"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// bookColumnWidth caps the first column of book listings; long series paths
// would otherwise push the outcome columns off narrow terminals.
const bookColumnWidth = 48

// writeJSON encodes v as indented JSON to the command's stdout. HTML escaping
// is off so titles like "Pride & Prejudice" stay readable.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// tally is one labelled count in a stats table.
type tally struct {
	label string
	count int
}

// renderTallies draws a two-column stats table with right-aligned counts.
// Footer cells, when given, close the table (for example an elapsed time).
func renderTallies(title string, tallies []tally, footer ...string) string {
	tw := newTableWriter()
	tw.AppendHeader(table.Row{title, "Count"})
	for _, t := range tallies {
		tw.AppendRow(table.Row{t.label, humanize.Comma(int64(t.count))})
	}
	if len(footer) > 0 {
		row := make(table.Row, 2)
		for i := 0; i < len(footer) && i < 2; i++ {
			row[i] = footer[i]
		}
		tw.AppendFooter(row)
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})
	return tw.Render()
}

// renderBooks draws one row per book. The first column names the book and is
// trimmed to bookColumnWidth; columns listed in numeric are right-aligned.
// Short rows are padded so every row has len(headers) cells.
func renderBooks(headers []string, rows [][]string, numeric ...int) string {
	if len(headers) == 0 {
		return ""
	}
	tw := newTableWriter()
	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)
	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := []table.ColumnConfig{{
		Number:           1,
		WidthMax:         bookColumnWidth,
		WidthMaxEnforcer: text.Trim,
	}}
	for _, col := range numeric {
		configs = append(configs, table.ColumnConfig{Number: col + 1, Align: text.AlignRight})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func newTableWriter() table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatDefault
	tw.Style().Format.Footer = text.FormatDefault
	return tw
}
