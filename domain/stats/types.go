package stats

import "datastory/domain/dataset"

// ColumnStatistics summarises the numeric values of one column. Count, Min,
// Max and Median are exact; Mean and StdDev are rounded to two decimals.
type ColumnStatistics struct {
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	StdDev   float64 `json:"stdDev"`
	Q1       float64 `json:"q1"`
	Q3       float64 `json:"q3"`
	Skewness float64 `json:"skewness"`
}

// TopValue is one entry of a frequency table. Percentage is a share of all
// rows, nulls included.
type TopValue struct {
	Value      string  `json:"value"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// ColumnSummary holds whichever statistics apply to a column's type.
type ColumnSummary struct {
	Type      dataset.ColumnType `json:"type"`
	Numeric   *ColumnStatistics  `json:"numeric,omitempty"`
	TopValues []TopValue         `json:"topValues,omitempty"`
}

// Statistics is keyed by column name.
type Statistics map[string]ColumnSummary
