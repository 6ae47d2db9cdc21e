package dataset

// ColumnType is the semantic type inferred for a column.
type ColumnType string

const (
	TypeNumber  ColumnType = "number"
	TypeString  ColumnType = "string"
	TypeDate    ColumnType = "date"
	TypeBoolean ColumnType = "boolean"
)

const (
	// SampleSize is the number of non-null values kept per column.
	SampleSize = 10
	// PreviewSize is the number of leading rows kept in PreviewData.
	PreviewSize = 10
)

// Row maps a column name to its cell value.
type Row map[string]Scalar

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// RowSet is the parser output: rows plus the column order they were read in.
type RowSet struct {
	Columns []string
	Rows    []Row
}

// Normalize fills absent keys with Null so every row carries every column.
func (rs *RowSet) Normalize() {
	for _, row := range rs.Rows {
		for _, col := range rs.Columns {
			if _, ok := row[col]; !ok {
				row[col] = Null()
			}
		}
	}
}

// Column describes one field across all rows.
type Column struct {
	Name         string     `json:"name"`
	Type         ColumnType `json:"type"`
	SampleValues []Scalar   `json:"sampleValues"`
	UniqueCount  int        `json:"uniqueCount"`
	NullCount    int        `json:"nullCount"`
}

// Dataset is the normalized, typed form of one uploaded file.
type Dataset struct {
	Rows        []Row    `json:"rows,omitempty"`
	Columns     []Column `json:"columns"`
	RowCount    int      `json:"rowCount"`
	ColumnCount int      `json:"columnCount"`
	PreviewData []Row    `json:"previewData"`
}

// ColumnNames returns the column names in source order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by name.
func (d *Dataset) Column(name string) (Column, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnsOfType returns the columns with the given type, in source order.
func (d *Dataset) ColumnsOfType(t ColumnType) []Column {
	var out []Column
	for _, c := range d.Columns {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}

// HasRows reports whether full-fidelity rows are still attached.
func (d *Dataset) HasRows() bool {
	return len(d.Rows) > 0
}

// DataRows returns the full rows when present, otherwise the preview. Stages
// that run on a re-hydrated dataset only ever see the preview.
func (d *Dataset) DataRows() []Row {
	if d.HasRows() {
		return d.Rows
	}
	return d.PreviewData
}

// DropRows returns a copy without the full rows. RowCount and PreviewData
// are kept.
func (d *Dataset) DropRows() *Dataset {
	out := *d
	out.Rows = nil
	return &out
}

// Preview returns up to n leading rows from whatever row data is attached.
func (d *Dataset) Preview(n int) []Row {
	rows := d.DataRows()
	if n > len(rows) {
		n = len(rows)
	}
	return rows[:n]
}
