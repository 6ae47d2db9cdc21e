package ingest

import (
	"bytes"
	"errors"
	"log"
	"unicode/utf8"

	"datastory/domain/dataset"
	apperrors "datastory/internal/errors"

	"github.com/tidwall/gjson"
)

// ParseRecords reads a JSON document. An array yields one row per element; a
// single object yields one row. Columns are the union of object keys in the
// order they are first seen. Elements that are not objects land in a "value"
// column, and nested objects or arrays are kept as their JSON text.
func ParseRecords(data []byte) (dataset.RowSet, error) {
	data = bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))
	if len(data) == 0 {
		return dataset.RowSet{}, apperrors.EmptyInput("JSON document is empty")
	}
	if !utf8.Valid(data) || !gjson.ValidBytes(data) {
		return dataset.RowSet{}, apperrors.InvalidSyntax(errors.New("malformed JSON document"))
	}

	root := gjson.ParseBytes(data)
	items := []gjson.Result{root}
	if root.IsArray() {
		items = root.Array()
	}
	if len(items) == 0 {
		return dataset.RowSet{}, apperrors.EmptyInput("JSON array has no elements")
	}

	var columns []string
	seen := make(map[string]bool)
	addColumn := func(name string) {
		if !seen[name] {
			seen[name] = true
			columns = append(columns, name)
		}
	}

	rows := make([]dataset.Row, 0, len(items))
	for _, item := range items {
		row := make(dataset.Row)
		if item.IsObject() {
			item.ForEach(func(key, value gjson.Result) bool {
				name := key.String()
				addColumn(name)
				row[name] = jsonScalar(value)
				return true
			})
		} else {
			addColumn("value")
			row["value"] = jsonScalar(item)
		}
		rows = append(rows, row)
	}

	rs := dataset.RowSet{Columns: columns, Rows: rows}
	rs.Normalize()
	log.Printf("[RecordsParser] Parsed %d records (%d distinct keys)", len(rows), len(columns))
	return rs, nil
}

func jsonScalar(v gjson.Result) dataset.Scalar {
	switch v.Type {
	case gjson.Null:
		return dataset.Null()
	case gjson.True:
		return dataset.Bool(true)
	case gjson.False:
		return dataset.Bool(false)
	case gjson.Number:
		return dataset.Number(v.Float())
	case gjson.String:
		return dataset.Text(v.String())
	default:
		return dataset.Text(v.Raw)
	}
}
