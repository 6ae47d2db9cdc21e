package stats

import (
	"testing"

	"datastory/domain/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoreRows() []dataset.Row {
	return []dataset.Row{
		{"id": dataset.Number(1), "name": dataset.Text("Ali"), "score": dataset.Number(90)},
		{"id": dataset.Number(2), "name": dataset.Text("Sara"), "score": dataset.Null()},
		{"id": dataset.Number(3), "name": dataset.Text("Omar"), "score": dataset.Number(70)},
	}
}

func TestComputeNumericStatsScores(t *testing.T) {
	st := ComputeNumericStats(scoreRows(), "score")
	require.NotNil(t, st)

	assert.Equal(t, 2, st.Count)
	assert.Equal(t, 80.0, st.Mean)
	assert.Equal(t, 70.0, st.Median, "even counts take the lower-middle element")
	assert.Equal(t, 70.0, st.Min)
	assert.Equal(t, 90.0, st.Max)
	assert.Equal(t, 10.0, st.StdDev)
}

func TestComputeNumericStatsNoValues(t *testing.T) {
	rows := []dataset.Row{
		{"v": dataset.Text("n/a")},
		{"v": dataset.Null()},
	}
	assert.Nil(t, ComputeNumericStats(rows, "v"))
	assert.Nil(t, ComputeNumericStats(nil, "v"))
}

func TestComputeNumericStatsSkipsUnparseable(t *testing.T) {
	rows := []dataset.Row{
		{"v": dataset.Text("10")},
		{"v": dataset.Text("ten")},
		{"v": dataset.Number(20)},
		{"v": dataset.Number(30)},
	}
	st := ComputeNumericStats(rows, "v")
	require.NotNil(t, st)
	assert.Equal(t, 3, st.Count)
	assert.Equal(t, 20.0, st.Median)
	assert.Equal(t, 20.0, st.Mean)
	assert.Equal(t, 8.16, st.StdDev)
}

func TestNumericStatsOrdering(t *testing.T) {
	rows := make([]dataset.Row, 0, 40)
	for i := 0; i < 40; i++ {
		rows = append(rows, dataset.Row{"v": dataset.Number(float64((i * 37) % 23))})
	}
	rows = append(rows, dataset.Row{"v": dataset.Null()})

	st := ComputeNumericStats(rows, "v")
	require.NotNil(t, st)
	assert.LessOrEqual(t, st.Min, st.Median)
	assert.LessOrEqual(t, st.Median, st.Max)
	assert.LessOrEqual(t, st.Q1, st.Q3)
	assert.LessOrEqual(t, st.Count, len(rows))
}

func TestComputeTopValues(t *testing.T) {
	rows := []dataset.Row{
		{"city": dataset.Text("Riyadh")},
		{"city": dataset.Text("Jeddah")},
		{"city": dataset.Text("Riyadh")},
		{"city": dataset.Null()},
		{"city": dataset.Text("Dammam")},
		{"city": dataset.Text("Jeddah")},
		{"city": dataset.Text("Riyadh")},
		{"city": dataset.Text("")},
	}
	top := ComputeTopValues(rows, "city", 2)
	require.Len(t, top, 2)

	assert.Equal(t, TopValue{Value: "Riyadh", Count: 3, Percentage: 37.5}, top[0])
	assert.Equal(t, TopValue{Value: "Jeddah", Count: 2, Percentage: 25}, top[1])

	all := ComputeTopValues(rows, "city", 100)
	total := 0.0
	for i, tv := range all {
		total += tv.Percentage
		if i > 0 {
			assert.GreaterOrEqual(t, all[i-1].Count, tv.Count)
		}
	}
	assert.LessOrEqual(t, total, 100.0+0.01)
	assert.InDelta(t, 75.0, total, 0.01, "blank rows count toward the denominator")
}

func TestComputeTopValuesTiesKeepFirstSeen(t *testing.T) {
	rows := []dataset.Row{
		{"c": dataset.Text("b")},
		{"c": dataset.Text("a")},
		{"c": dataset.Text("c")},
	}
	top := ComputeTopValues(rows, "c", 3)
	require.Len(t, top, 3)
	assert.Equal(t, "b", top[0].Value)
	assert.Equal(t, "a", top[1].Value)
	assert.Equal(t, "c", top[2].Value)
	assert.Equal(t, 33.33, top[0].Percentage)
}

func TestCompute(t *testing.T) {
	ds, err := dataset.Analyze(dataset.RowSet{
		Columns: []string{"id", "name", "score"},
		Rows:    scoreRows(),
	})
	require.NoError(t, err)

	st := Compute(ds)
	require.Len(t, st, 3)
	assert.NotNil(t, st["score"].Numeric)
	assert.Equal(t, dataset.TypeString, st["name"].Type)
	assert.Len(t, st["name"].TopValues, 3)
	assert.Nil(t, st["name"].Numeric)

	rehydrated := Compute(ds.DropRows())
	assert.Equal(t, st, rehydrated, "preview covers every row of a small dataset")
}
