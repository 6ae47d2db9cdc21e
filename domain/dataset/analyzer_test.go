package dataset

import (
	"testing"
	"time"

	apperrors "datastory/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoresRowSet() RowSet {
	return RowSet{
		Columns: []string{"id", "name", "score"},
		Rows: []Row{
			{"id": Number(1), "name": Text("Ali"), "score": Number(90)},
			{"id": Number(2), "name": Text("Sara"), "score": Null()},
			{"id": Number(3), "name": Text("Omar"), "score": Number(70)},
		},
	}
}

func TestAnalyzeScores(t *testing.T) {
	ds, err := Analyze(scoresRowSet())
	require.NoError(t, err)

	assert.Equal(t, 3, ds.RowCount)
	assert.Equal(t, 3, ds.ColumnCount)
	assert.Equal(t, []string{"id", "name", "score"}, ds.ColumnNames())

	score, ok := ds.Column("score")
	require.True(t, ok)
	assert.Equal(t, TypeNumber, score.Type)
	assert.Equal(t, 1, score.NullCount)
	assert.Equal(t, 2, score.UniqueCount)
	assert.Len(t, score.SampleValues, 2)

	name, _ := ds.Column("name")
	assert.Equal(t, TypeString, name.Type)
	assert.Equal(t, 0, name.NullCount)
}

func TestAnalyzeErrors(t *testing.T) {
	_, err := Analyze(RowSet{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeEmptyDataset))

	_, err = Analyze(RowSet{Rows: []Row{{}}})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNoColumns))
}

func TestAnalyzeFirstRowDecidesColumns(t *testing.T) {
	rs := RowSet{
		Columns: []string{"a", "b", "c"},
		Rows: []Row{
			{"a": Number(1), "b": Text("x")},
			{"a": Number(2), "c": Text("extra")},
		},
	}
	ds, err := Analyze(rs)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, ds.ColumnNames())
	for _, row := range ds.Rows {
		assert.Len(t, row, 2)
	}
	b, _ := ds.Column("b")
	assert.Equal(t, 1, b.NullCount)
	assert.True(t, ds.Rows[1]["b"].IsNull())
}

func TestAnalyzeUndeclaredKeysAreSorted(t *testing.T) {
	ds, err := Analyze(RowSet{Rows: []Row{{"z": Number(1), "m": Number(2)}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"m", "z"}, ds.ColumnNames())
}

func TestInferTypeUsesFirstValueOnly(t *testing.T) {
	rs := RowSet{
		Columns: []string{"mixed"},
		Rows: []Row{
			{"mixed": Text("")},
			{"mixed": Text("42")},
			{"mixed": Text("not a number")},
			{"mixed": Text("also text")},
		},
	}
	ds, err := Analyze(rs)
	require.NoError(t, err)

	col, _ := ds.Column("mixed")
	assert.Equal(t, TypeNumber, col.Type)
	assert.Equal(t, 1, col.NullCount)
	assert.Equal(t, 3, col.UniqueCount)
}

func TestInferType(t *testing.T) {
	cases := []struct {
		in   Scalar
		want ColumnType
	}{
		{Bool(true), TypeBoolean},
		{Text("YES"), TypeBoolean},
		{Text("نعم"), TypeBoolean},
		{Number(3.5), TypeNumber},
		{Text(" -12.5 "), TypeNumber},
		{Text("2024-01-15"), TypeDate},
		{Text("03/04/2024"), TypeDate},
		{Text("Jan 2, 2006"), TypeDate},
		{Date(time.Now()), TypeDate},
		{Text("Riyadh"), TypeString},
		{Text("Infinity"), TypeString},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, InferType(tc.in), "value %v", tc.in.Interface())
	}
}

func TestUniqueCountIsKindAware(t *testing.T) {
	rs := RowSet{
		Columns: []string{"v"},
		Rows: []Row{
			{"v": Number(1)},
			{"v": Text("1")},
			{"v": Number(1)},
		},
	}
	ds, err := Analyze(rs)
	require.NoError(t, err)
	col, _ := ds.Column("v")
	assert.Equal(t, 2, col.UniqueCount)
}

func TestPreviewIsPrefix(t *testing.T) {
	rs := RowSet{Columns: []string{"n"}}
	for i := 0; i < 25; i++ {
		rs.Rows = append(rs.Rows, Row{"n": Number(float64(i))})
	}
	ds, err := Analyze(rs)
	require.NoError(t, err)

	require.Len(t, ds.PreviewData, PreviewSize)
	for i, row := range ds.PreviewData {
		assert.Equal(t, ds.Rows[i], row)
	}

	col, _ := ds.Column("n")
	assert.Len(t, col.SampleValues, SampleSize)

	dropped := ds.DropRows()
	assert.False(t, dropped.HasRows())
	assert.Equal(t, 25, dropped.RowCount)
	assert.Len(t, dropped.DataRows(), PreviewSize)
	assert.True(t, ds.HasRows(), "DropRows must not mutate the original")
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	first, err := Analyze(scoresRowSet())
	require.NoError(t, err)
	second, err := Analyze(scoresRowSet())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
