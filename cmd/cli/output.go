package main

import (
	"fmt"
	"io"
	"strings"

	"datastory/domain/dataset"
	"datastory/domain/stats"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const sampleColumnValues = 3

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("%s", title)
	t.SetStyle(table.StyleLight)
	return t
}

// writeColumnTable prints the inferred schema of ds.
func writeColumnTable(w io.Writer, name string, ds *dataset.Dataset) {
	t := newTable(w, fmt.Sprintf("%s: %d rows x %d columns", name, ds.RowCount, ds.ColumnCount))
	t.AppendHeader(table.Row{"Column", "Type", "Unique", "Nulls", "Samples"})
	for _, col := range ds.Columns {
		t.AppendRow(table.Row{col.Name, col.Type, col.UniqueCount, col.NullCount, samples(col)})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Unique", Align: text.AlignRight},
		{Name: "Nulls", Align: text.AlignRight},
	})
	t.Render()
}

// writeStatsTables prints numeric summaries and frequency tables in column
// order.
func writeStatsTables(w io.Writer, ds *dataset.Dataset, st stats.Statistics) {
	numeric := newTable(w, "Numeric columns")
	numeric.AppendHeader(table.Row{"Column", "Count", "Mean", "Median", "Min", "Max", "StdDev"})
	categorical := newTable(w, "Top values")
	categorical.AppendHeader(table.Row{"Column", "Value", "Count", "Share"})

	var haveNumeric, haveCategorical bool
	for _, col := range ds.Columns {
		summary, ok := st[col.Name]
		if !ok {
			continue
		}
		if n := summary.Numeric; n != nil {
			haveNumeric = true
			numeric.AppendRow(table.Row{col.Name, n.Count, n.Mean, n.Median, n.Min, n.Max, n.StdDev})
		}
		for i, tv := range summary.TopValues {
			haveCategorical = true
			label := ""
			if i == 0 {
				label = col.Name
			}
			categorical.AppendRow(table.Row{label, tv.Value, tv.Count, fmt.Sprintf("%.1f%%", tv.Percentage)})
		}
		if len(summary.TopValues) > 0 {
			categorical.AppendSeparator()
		}
	}

	if haveNumeric {
		numeric.Render()
	}
	if haveCategorical {
		categorical.Render()
	}
	if !haveNumeric && !haveCategorical {
		fmt.Fprintln(w, "No statistics apply to this dataset")
	}
}

func samples(col dataset.Column) string {
	values := col.SampleValues
	if len(values) > sampleColumnValues {
		values = values[:sampleColumnValues]
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}
