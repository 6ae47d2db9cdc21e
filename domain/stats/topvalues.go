package stats

import (
	"sort"

	"datastory/domain/dataset"
)

// ComputeTopValues counts distinct non-blank values of column and returns the
// limit most frequent. Ties keep first-seen order. Percentages are taken
// against len(rows), so blanks shrink every share.
func ComputeTopValues(rows []dataset.Row, column string, limit int) []TopValue {
	if len(rows) == 0 || limit <= 0 {
		return nil
	}
	counts := make(map[string]int)
	var order []string
	for _, row := range rows {
		v, ok := row[column]
		if !ok || v.IsBlank() {
			continue
		}
		key := v.String()
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		counts[key]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > limit {
		order = order[:limit]
	}

	total := float64(len(rows))
	out := make([]TopValue, len(order))
	for i, key := range order {
		out[i] = TopValue{
			Value:      key,
			Count:      counts[key],
			Percentage: round2(100 * float64(counts[key]) / total),
		}
	}
	return out
}
