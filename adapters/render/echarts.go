// Package render draws chart configs as a standalone HTML page.
package render

import (
	"fmt"
	"io"
	"strings"

	"datastory/domain/chart"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Page writes every config as one ECharts chart on a single page.
func Page(w io.Writer, title string, configs []chart.Config) error {
	page := components.NewPage()
	page.SetPageTitle(title)
	for _, cfg := range configs {
		c, err := Chart(cfg)
		if err != nil {
			return err
		}
		page.AddCharts(c)
	}
	return page.Render(w)
}

// Chart converts one config into its ECharts counterpart.
func Chart(cfg chart.Config) (components.Charter, error) {
	title := charts.WithTitleOpts(opts.Title{Title: cfg.Title})
	initOpts := charts.WithInitializationOpts(opts.Initialization{ChartID: elementID(cfg.ID)})
	names := make([]string, len(cfg.Data))
	for i, p := range cfg.Data {
		names[i] = p.Name
	}

	switch cfg.Type {
	case chart.TypeBar:
		bar := charts.NewBar()
		bar.SetGlobalOptions(initOpts, title, charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}))
		items := make([]opts.BarData, len(cfg.Data))
		for i, p := range cfg.Data {
			items[i] = opts.BarData{Name: p.Name, Value: p.Value}
		}
		bar.SetXAxis(names).AddSeries(seriesName(cfg), items)
		return bar, nil
	case chart.TypePie:
		pie := charts.NewPie()
		pie.SetGlobalOptions(initOpts, title, charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}))
		items := make([]opts.PieData, len(cfg.Data))
		for i, p := range cfg.Data {
			items[i] = opts.PieData{Name: p.Name, Value: p.Value}
		}
		pie.AddSeries(seriesName(cfg), items)
		return pie, nil
	case chart.TypeLine:
		line := charts.NewLine()
		line.SetGlobalOptions(initOpts, title, charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}))
		items := make([]opts.LineData, len(cfg.Data))
		for i, p := range cfg.Data {
			items[i] = opts.LineData{Name: p.Name, Value: p.Value}
		}
		line.SetXAxis(names).AddSeries(seriesName(cfg), items)
		return line, nil
	default:
		return nil, fmt.Errorf("unsupported chart type %q", cfg.Type)
	}
}

// elementID turns a chart ID into something usable as a JS identifier.
func elementID(id string) string {
	return "chart_" + strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(id)
}

func seriesName(cfg chart.Config) string {
	if cfg.YAxis != "" {
		return cfg.YAxis
	}
	return cfg.DataKey
}
