package stats

import (
	"math"
	"sort"

	"datastory/domain/dataset"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// NumericValues collects the values of column that coerce to a number.
// Values that fail coercion are skipped; a partially numeric column is
// normal input, not an error.
func NumericValues(rows []dataset.Row, column string) []float64 {
	values := make([]float64, 0, len(rows))
	for _, row := range rows {
		v, ok := row[column]
		if !ok || v.IsBlank() {
			continue
		}
		if f, ok := v.AsNumber(); ok {
			values = append(values, f)
		}
	}
	return values
}

// ComputeNumericStats returns nil when the column has no numeric values so
// callers can tell "no data" apart from all zeros.
//
// Median is the lower-middle element for even counts, not the average of the
// two middle values.
func ComputeNumericStats(rows []dataset.Row, column string) *ColumnStatistics {
	values := NumericValues(rows, column)
	if len(values) == 0 {
		return nil
	}
	sort.Float64s(values)
	n := len(values)
	data := stats.Float64Data(values)

	mean, err := stats.Mean(data)
	if err != nil {
		return nil
	}
	stdDev, err := stats.StandardDeviationPopulation(data)
	if err != nil {
		return nil
	}

	return &ColumnStatistics{
		Count:    n,
		Mean:     round2(mean),
		Median:   values[(n-1)/2],
		Min:      values[0],
		Max:      values[n-1],
		StdDev:   round2(stdDev),
		Q1:       stat.Quantile(0.25, stat.Empirical, values, nil),
		Q3:       stat.Quantile(0.75, stat.Empirical, values, nil),
		Skewness: skewness(values),
	}
}

func skewness(sorted []float64) float64 {
	if len(sorted) < 3 {
		return 0
	}
	s := stat.Skew(sorted, nil)
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0
	}
	return round2(s)
}

func round2(v float64) float64 {
	r, err := stats.Round(v, 2)
	if err != nil {
		return v
	}
	return r
}
