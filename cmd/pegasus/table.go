package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// tableLayout describes one rendered table. Footer is optional.
type tableLayout struct {
	headers []string
	rows    [][]string
	aligns  []columnAlignment
	footer  []string
	// maxWidth caps every column; 0 leaves widths unbounded.
	maxWidth int
}

func renderTable(layout tableLayout) string {
	columns := len(layout.headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(toRow(layout.headers, columns))
	for _, row := range layout.rows {
		tw.AppendRow(toRow(row, columns))
	}
	if len(layout.footer) > 0 {
		tw.AppendFooter(toRow(layout.footer, columns))
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(layout.aligns) && layout.aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			AlignFooter: align,
			WidthMax:    layout.maxWidth,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

func toRow(values []string, columns int) table.Row {
	r := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		if i < len(values) {
			r[i] = values[i]
		} else {
			r[i] = ""
		}
	}
	return r
}
