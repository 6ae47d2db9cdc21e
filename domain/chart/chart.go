// Package chart picks render-ready chart configurations from a dataset's
// column mix. Generation is pure: identical inputs give identical charts.
package chart

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"datastory/domain/dataset"
	"datastory/domain/stats"

	mstats "github.com/montanaflynn/stats"
)

// Type is the chart kind understood by the renderers.
type Type string

const (
	TypeBar  Type = "bar"
	TypePie  Type = "pie"
	TypeLine Type = "line"
)

const (
	// MaxCategoricalUnique is the largest cardinality treated as categorical.
	MaxCategoricalUnique = 20
	barGroups            = 10
	pieSlices            = 6
	linePoints           = 50
)

// DataPoint is one mark on a chart.
type DataPoint struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Config is a self-describing chart ready to render.
type Config struct {
	ID      string      `json:"id"`
	Type    Type        `json:"type"`
	Title   string      `json:"title"`
	DataKey string      `json:"dataKey"`
	XAxis   string      `json:"xAxis,omitempty"`
	YAxis   string      `json:"yAxis,omitempty"`
	Data    []DataPoint `json:"data"`
}

// IsCategorical reports whether col can be used as a grouping dimension.
func IsCategorical(col dataset.Column) bool {
	return (col.Type == dataset.TypeString || col.Type == dataset.TypeBoolean) &&
		col.UniqueCount <= MaxCategoricalUnique
}

// Generate returns at most three charts: a bar chart of the first numeric
// column averaged by the first categorical column, a pie chart of that
// categorical column, and a line chart of the first numeric column over the
// first date column. Charts whose columns are missing are left out.
func Generate(ds *dataset.Dataset, st stats.Statistics) []Config {
	var categorical, numeric, date *dataset.Column
	for i := range ds.Columns {
		col := &ds.Columns[i]
		switch {
		case categorical == nil && IsCategorical(*col):
			categorical = col
		case numeric == nil && col.Type == dataset.TypeNumber:
			numeric = col
		case date == nil && col.Type == dataset.TypeDate:
			date = col
		}
	}

	rows := ds.DataRows()
	var charts []Config
	if categorical != nil && numeric != nil {
		if c, ok := barChart(rows, *categorical, *numeric); ok {
			charts = append(charts, c)
		}
	}
	if categorical != nil {
		if c, ok := pieChart(rows, st, *categorical); ok {
			charts = append(charts, c)
		}
	}
	if date != nil && numeric != nil {
		if c, ok := lineChart(rows, *date, *numeric); ok {
			charts = append(charts, c)
		}
	}
	return charts
}

func barChart(rows []dataset.Row, category, value dataset.Column) (Config, bool) {
	type agg struct {
		sum   float64
		count int
	}
	groups := make(map[string]*agg)
	var order []string
	for _, row := range rows {
		key := row[category.Name]
		if key.IsBlank() {
			continue
		}
		v, ok := row[value.Name].AsNumber()
		if !ok || row[value.Name].IsBlank() {
			continue
		}
		name := key.String()
		g, exists := groups[name]
		if !exists {
			g = &agg{}
			groups[name] = g
			order = append(order, name)
		}
		g.sum += v
		g.count++
	}
	if len(order) == 0 {
		return Config{}, false
	}

	points := make([]DataPoint, len(order))
	for i, name := range order {
		g := groups[name]
		points[i] = DataPoint{Name: name, Value: round2(g.sum / float64(g.count))}
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Value > points[j].Value })
	if len(points) > barGroups {
		points = points[:barGroups]
	}

	return Config{
		ID:      chartID(TypeBar, value.Name, category.Name),
		Type:    TypeBar,
		Title:   fmt.Sprintf("Average %s by %s", value.Name, category.Name),
		DataKey: "value",
		XAxis:   category.Name,
		YAxis:   value.Name,
		Data:    points,
	}, true
}

func pieChart(rows []dataset.Row, st stats.Statistics, category dataset.Column) (Config, bool) {
	top := st[category.Name].TopValues
	if len(top) == 0 {
		top = stats.ComputeTopValues(rows, category.Name, pieSlices)
	}
	if len(top) > pieSlices {
		top = top[:pieSlices]
	}
	if len(top) == 0 {
		return Config{}, false
	}
	points := make([]DataPoint, len(top))
	for i, tv := range top {
		points[i] = DataPoint{Name: tv.Value, Value: float64(tv.Count)}
	}
	return Config{
		ID:      chartID(TypePie, category.Name),
		Type:    TypePie,
		Title:   fmt.Sprintf("Distribution of %s", category.Name),
		DataKey: "value",
		Data:    points,
	}, true
}

func lineChart(rows []dataset.Row, date, value dataset.Column) (Config, bool) {
	type pair struct {
		at time.Time
		v  float64
	}
	var pairs []pair
	for _, row := range rows {
		at, ok := row[date.Name].AsTime()
		if !ok {
			continue
		}
		if row[value.Name].IsBlank() {
			continue
		}
		v, ok := row[value.Name].AsNumber()
		if !ok {
			continue
		}
		pairs = append(pairs, pair{at: at, v: v})
	}
	if len(pairs) == 0 {
		return Config{}, false
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].at.Before(pairs[j].at) })
	if len(pairs) > linePoints {
		pairs = pairs[:linePoints]
	}

	points := make([]DataPoint, len(pairs))
	for i, p := range pairs {
		points[i] = DataPoint{Name: formatDate(p.at), Value: p.v}
	}
	return Config{
		ID:      chartID(TypeLine, value.Name, date.Name),
		Type:    TypeLine,
		Title:   fmt.Sprintf("%s over %s", value.Name, date.Name),
		DataKey: "value",
		XAxis:   date.Name,
		YAxis:   value.Name,
		Data:    points,
	}, true
}

func formatDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}

func chartID(t Type, columns ...string) string {
	parts := []string{string(t)}
	for _, c := range columns {
		parts = append(parts, slug(c))
	}
	return strings.Join(parts, "-")
}

func slug(s string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if r == ' ' || r == '_' || r == '-' || r == '.' || r == '/' {
			if !lastDash && b.Len() > 0 {
				b.WriteByte('_')
				lastDash = true
			}
			continue
		}
		b.WriteRune(r)
		lastDash = false
	}
	return strings.TrimSuffix(b.String(), "_")
}

func round2(v float64) float64 {
	r, err := mstats.Round(v, 2)
	if err != nil {
		return v
	}
	return r
}
