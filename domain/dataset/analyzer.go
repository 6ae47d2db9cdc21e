package dataset

import (
	"sort"

	apperrors "datastory/internal/errors"
)

// Analyze turns parsed rows into a Dataset. The first row decides which
// columns exist and in what order; later rows are null-filled to that shape.
//
// Column types come from the first non-blank value only. A column whose
// first value is numeric is a number column even if later values are not.
func Analyze(rs RowSet) (*Dataset, error) {
	if len(rs.Rows) == 0 {
		return nil, apperrors.EmptyDataset()
	}
	names := columnOrder(rs)
	if len(names) == 0 {
		return nil, apperrors.NoColumns()
	}

	rows := make([]Row, len(rs.Rows))
	for i, src := range rs.Rows {
		row := make(Row, len(names))
		for _, name := range names {
			if v, ok := src[name]; ok {
				row[name] = v
			} else {
				row[name] = Null()
			}
		}
		rows[i] = row
	}

	columns := make([]Column, len(names))
	for i, name := range names {
		columns[i] = describeColumn(name, rows)
	}

	previewLen := PreviewSize
	if previewLen > len(rows) {
		previewLen = len(rows)
	}
	preview := make([]Row, previewLen)
	copy(preview, rows[:previewLen])

	return &Dataset{
		Rows:        rows,
		Columns:     columns,
		RowCount:    len(rows),
		ColumnCount: len(columns),
		PreviewData: preview,
	}, nil
}

// columnOrder returns the keys of the first row, ordered by the RowSet's
// declared columns. Keys the RowSet did not declare are appended sorted.
func columnOrder(rs RowSet) []string {
	first := rs.Rows[0]
	if len(first) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(first))
	names := make([]string, 0, len(first))
	for _, name := range rs.Columns {
		if _, ok := first[name]; ok && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	var rest []string
	for name := range first {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

func describeColumn(name string, rows []Row) Column {
	col := Column{Name: name, Type: TypeString}
	unique := make(map[string]struct{})
	nonNull := 0
	for _, row := range rows {
		v := row[name]
		if v.IsBlank() {
			continue
		}
		if nonNull == 0 {
			col.Type = InferType(v)
		}
		nonNull++
		if len(col.SampleValues) < SampleSize {
			col.SampleValues = append(col.SampleValues, v)
		}
		unique[v.key()] = struct{}{}
	}
	col.UniqueCount = len(unique)
	col.NullCount = len(rows) - nonNull
	return col
}

// InferType classifies a single non-blank value. Checks run in a fixed
// order: boolean, number, date, then string.
func InferType(v Scalar) ColumnType {
	switch v.Kind() {
	case KindBool:
		return TypeBoolean
	case KindNumber:
		return TypeNumber
	case KindDate:
		return TypeDate
	case KindText:
		if _, ok := ParseBoolean(v.Str()); ok {
			return TypeBoolean
		}
		if _, ok := ParseNumber(v.Str()); ok {
			return TypeNumber
		}
		if _, ok := ParseDate(v.Str()); ok {
			return TypeDate
		}
	}
	return TypeString
}
