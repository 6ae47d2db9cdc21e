package stats

import "datastory/domain/dataset"

// TopValuesLimit is the frequency table size kept per categorical column.
const TopValuesLimit = 10

// Compute derives per-column statistics. Number columns get descriptive
// statistics, string and boolean columns get a frequency table, date columns
// only their type. It runs on DataRows, so a dataset whose full rows were
// dropped is summarised from its preview.
func Compute(ds *dataset.Dataset) Statistics {
	rows := ds.DataRows()
	out := make(Statistics, len(ds.Columns))
	for _, col := range ds.Columns {
		summary := ColumnSummary{Type: col.Type}
		switch col.Type {
		case dataset.TypeNumber:
			summary.Numeric = ComputeNumericStats(rows, col.Name)
		case dataset.TypeString, dataset.TypeBoolean:
			summary.TopValues = ComputeTopValues(rows, col.Name, TopValuesLimit)
		}
		out[col.Name] = summary
	}
	return out
}
