package ingest

import (
	"testing"

	"datastory/domain/dataset"
	apperrors "datastory/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, sheets map[string][][]interface{}, order ...string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, name := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func column(t *testing.T, ds *dataset.Dataset, name string) dataset.Column {
	t.Helper()
	col, ok := ds.Column(name)
	require.True(t, ok, "missing column %s", name)
	return col
}

func TestParseDelimitedScores(t *testing.T) {
	csv := "id,name,score\n1,\"Ali\",90\n2,\"Sara\",\n3,\"Omar\",70\n"
	ds, err := Parse(FormatDelimited, []byte(csv))
	require.NoError(t, err)

	assert.Equal(t, 3, ds.RowCount)
	assert.Equal(t, 3, ds.ColumnCount)
	assert.Equal(t, []string{"id", "name", "score"}, ds.ColumnNames())

	score := column(t, ds, "score")
	assert.Equal(t, dataset.TypeNumber, score.Type)
	assert.Equal(t, 1, score.NullCount)
	assert.Equal(t, dataset.TypeString, column(t, ds, "name").Type)
}

func TestParseDelimitedTyping(t *testing.T) {
	rs, err := ParseDelimited([]byte("\xEF\xBB\xBFflag;amount;note\nTRUE;1.5;x\nfalse;;\n\n;;\n"))
	require.NoError(t, err)
	require.Len(t, rs.Rows, 2, "blank lines and blank records are skipped")
	assert.Equal(t, []string{"flag", "amount", "note"}, rs.Columns)

	first := rs.Rows[0]
	assert.True(t, first["flag"].Equal(dataset.Bool(true)))
	assert.True(t, first["amount"].Equal(dataset.Number(1.5)))
	assert.True(t, first["note"].Equal(dataset.Text("x")))
	assert.True(t, rs.Rows[1]["amount"].IsNull())
}

func TestParseDelimitedSniffsDelimiter(t *testing.T) {
	cases := map[string]string{
		"comma":     "a,b\n1,2\n",
		"semicolon": "a;b\n1;2\n",
		"tab":       "a\tb\n1\t2\n",
		"pipe":      "a|b\n1|2\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			rs, err := ParseDelimited([]byte(input))
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "b"}, rs.Columns)
			assert.True(t, rs.Rows[0]["b"].Equal(dataset.Number(2)))
		})
	}
}

func TestParseDelimitedHeaderNames(t *testing.T) {
	rs, err := ParseDelimited([]byte("name, ,name\nx,y,z\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "column_2", "name_2"}, rs.Columns)
	assert.True(t, rs.Rows[0]["name_2"].Equal(dataset.Text("z")))
}

func TestHeaderNamesNeverCollide(t *testing.T) {
	cases := map[string]struct {
		header []string
		want   []string
	}{
		"suffix already taken": {[]string{"a_2", "a", "a"}, []string{"a_2", "a", "a_3"}},
		"later literal name":   {[]string{"a", "a", "a_2"}, []string{"a", "a_2", "a_2_2"}},
		"triple repeat":        {[]string{"a", "a", "a"}, []string{"a", "a_2", "a_3"}},
		"blank and positional": {[]string{"column_2", ""}, []string{"column_2", "column_2_2"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, headerNames(tc.header))
		})
	}
}

func TestParseDelimitedKeepsEveryDuplicateColumn(t *testing.T) {
	ds, err := Parse(FormatDelimited, []byte("a_2,a,a\n1,2,3\n"))
	require.NoError(t, err)

	assert.Equal(t, 3, ds.ColumnCount)
	assert.Equal(t, []string{"a_2", "a", "a_3"}, ds.ColumnNames())
	assert.True(t, ds.Rows[0]["a_2"].Equal(dataset.Number(1)))
	assert.True(t, ds.Rows[0]["a"].Equal(dataset.Number(2)))
	assert.True(t, ds.Rows[0]["a_3"].Equal(dataset.Number(3)))
}

func TestParseSpreadsheetDuplicateHeaders(t *testing.T) {
	data := workbook(t, map[string][][]interface{}{
		"Data": {
			{"x_2", "x", "x"},
			{1, 2, 3},
		},
	}, "Data")

	ds, err := Parse(FormatSpreadsheet, data)
	require.NoError(t, err)
	assert.Equal(t, []string{"x_2", "x", "x_3"}, ds.ColumnNames())
	assert.True(t, ds.Rows[0]["x_2"].Equal(dataset.Number(1)))
}

func TestParseDelimitedShortRows(t *testing.T) {
	ds, err := Parse(FormatDelimited, []byte("a,b,c\n1\n2,3,4\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, ds.RowCount)
	assert.True(t, ds.Rows[0]["c"].IsNull())
	assert.Equal(t, 1, column(t, ds, "c").NullCount)
}

func TestParseDelimitedEmpty(t *testing.T) {
	_, err := ParseDelimited(nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeEmptyInput))

	_, err = ParseDelimited([]byte("a,b\n"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeEmptyInput))
}

func TestParseSpreadsheetFirstSheetOnly(t *testing.T) {
	data := workbook(t, map[string][][]interface{}{
		"Sales": {
			{"region", "units", "active"},
			{"North", 10, true},
			{"South", 25.5, false},
		},
		"Notes": {
			{"comment"},
			{"ignored"},
			{"also ignored"},
		},
	}, "Sales", "Notes")

	ds, err := Parse(FormatSpreadsheet, data)
	require.NoError(t, err)

	assert.Equal(t, 2, ds.RowCount)
	assert.Equal(t, []string{"region", "units", "active"}, ds.ColumnNames())
	_, hasComment := ds.Column("comment")
	assert.False(t, hasComment)
	assert.Equal(t, dataset.TypeNumber, column(t, ds, "units").Type)
	assert.Equal(t, dataset.TypeBoolean, column(t, ds, "active").Type)
	assert.True(t, ds.Rows[1]["units"].Equal(dataset.Number(25.5)))
}

func TestParseSpreadsheetBlankRowsAndCells(t *testing.T) {
	data := workbook(t, map[string][][]interface{}{
		"Data": {
			{"name", "score"},
			{"Ali", 90},
			{nil, nil},
			{"Omar"},
		},
	}, "Data")

	rs, err := ParseSpreadsheet(data)
	require.NoError(t, err)
	require.Len(t, rs.Rows, 2)
	assert.True(t, rs.Rows[1]["score"].IsNull())
}

func TestParseSpreadsheetEmptySheet(t *testing.T) {
	data := workbook(t, map[string][][]interface{}{
		"Data": {{"only", "header"}},
	}, "Data")

	_, err := ParseSpreadsheet(data)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeEmptySheet))
}

func TestParseSpreadsheetRejectsGarbage(t *testing.T) {
	_, err := ParseSpreadsheet([]byte("not a workbook"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
}

func TestSpreadsheetCell(t *testing.T) {
	assert.True(t, spreadsheetCell("", "").IsNull())
	assert.True(t, spreadsheetCell("TRUE", "1").Equal(dataset.Bool(true)))
	assert.True(t, spreadsheetCell("1,200", "1200").Equal(dataset.Number(1200)))
	assert.True(t, spreadsheetCell("2024-01-15", "45306").Equal(dataset.Text("2024-01-15")))
	assert.True(t, spreadsheetCell("hello", "hello").Equal(dataset.Text("hello")))
}

func TestParseRecordsSingleObject(t *testing.T) {
	ds, err := Parse(FormatRecords, []byte(`{"name":"Ali","score":90}`))
	require.NoError(t, err)
	assert.Equal(t, 1, ds.RowCount)
	assert.Equal(t, 2, ds.ColumnCount)
	assert.Equal(t, []string{"name", "score"}, ds.ColumnNames())
}

func TestParseRecordsUnionOfKeys(t *testing.T) {
	rs, err := ParseRecords([]byte(`[
		{"b": 1, "a": "x"},
		{"a": "y", "c": true, "nested": {"k": [1, 2]}},
		7
	]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c", "nested", "value"}, rs.Columns)
	require.Len(t, rs.Rows, 3)

	for _, row := range rs.Rows {
		assert.Len(t, row, 5)
	}
	assert.True(t, rs.Rows[0]["c"].IsNull())
	assert.True(t, rs.Rows[1]["c"].Equal(dataset.Bool(true)))
	assert.True(t, rs.Rows[1]["nested"].Equal(dataset.Text(`{"k": [1, 2]}`)))
	assert.True(t, rs.Rows[2]["value"].Equal(dataset.Number(7)))

	ds, err := dataset.Analyze(rs)
	require.NoError(t, err)
	assert.Equal(t, 5, ds.ColumnCount)
	assert.Equal(t, rs.Columns, ds.ColumnNames())
}

func TestParseRecordsErrors(t *testing.T) {
	_, err := ParseRecords([]byte(`{"a": `))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidSyntax))

	_, err = ParseRecords([]byte(`[]`))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeEmptyInput))

	_, err = ParseRecords([]byte("  "))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeEmptyInput))

	_, err = Parse(FormatRecords, []byte(`{}`))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNoColumns))
}

func TestParseCountsInvariant(t *testing.T) {
	inputs := []struct {
		format Format
		data   []byte
	}{
		{FormatDelimited, []byte("x,y\n1,2\n3,4\n5,6\n")},
		{FormatRecords, []byte(`[{"x":1,"y":2},{"x":3},{"y":6}]`)},
		{FormatSpreadsheet, workbook(t, map[string][][]interface{}{
			"S": {{"x", "y"}, {1, 2}, {3, 4}, {5, 6}},
		}, "S")},
	}
	for _, in := range inputs {
		t.Run(string(in.format), func(t *testing.T) {
			ds, err := Parse(in.format, in.data)
			require.NoError(t, err)
			assert.Equal(t, len(ds.Rows), ds.RowCount)
			assert.Equal(t, len(ds.Columns), ds.ColumnCount)
			for _, row := range ds.Rows {
				assert.Len(t, row, ds.ColumnCount)
			}
		})
	}
}

func TestDetectFormat(t *testing.T) {
	cases := []struct {
		name     string
		mime     string
		filename string
		data     []byte
		want     Format
	}{
		{"declared csv", "text/csv; charset=utf-8", "", nil, FormatDelimited},
		{"declared json", "application/json", "data.bin", nil, FormatRecords},
		{"declared xlsx", mimeSpreadsheet, "", nil, FormatSpreadsheet},
		{"extension", "application/octet-stream", "Report.XLSX", nil, FormatSpreadsheet},
		{"sniffed json", "", "", []byte(`[{"a":1}]`), FormatRecords},
		{"sniffed text", "", "", []byte("a,b\n1,2\n"), FormatDelimited},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DetectFormat(tc.mime, tc.filename, tc.data)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := DetectFormat("image/png", "photo.png", []byte("\x89PNG\r\n\x1a\n"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnsupportedFormat))
}

func TestParseUpload(t *testing.T) {
	ds, format, err := ParseUpload("", "scores.csv", []byte("id,score\n1,90\n"))
	require.NoError(t, err)
	assert.Equal(t, FormatDelimited, format)
	assert.Equal(t, 1, ds.RowCount)
}
