package report

import (
	"fmt"
	"html/template"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/cdurand/climatrend/internal/models"
	"github.com/cdurand/climatrend/internal/stats"
)

var monthNames = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// Diverging palettes for anomaly colouring: cold-to-warm for temperature,
// dry-to-wet for precipitation.
var (
	tempAnomalyColors   = []string{"#313695", "#74add1", "#e0e0e0", "#f46d43", "#a50026"}
	precipAnomalyColors = []string{"#8c510a", "#d8b365", "#f5f5f5", "#5ab4ac", "#01665e"}
)

type renderable interface {
	Validate()
	JSONNotEscaped() template.HTML
}

// snippet produces the element and init script for embedding a chart into the
// report page. The page loads the echarts runtime once in its head.
func snippet(ch renderable, chartID, width, height string) chartSnippet {
	ch.Validate()
	element := fmt.Sprintf(`<div id="%s" class="chart" style="width:%s;height:%s;"></div>`, chartID, width, height)
	script := fmt.Sprintf(
		`<script>(function(){var c=echarts.init(document.getElementById(%q));c.setOption(%s);})();</script>`,
		chartID, ch.JSONNotEscaped())
	return chartSnippet{Element: template.HTML(element), Script: template.HTML(script)}
}

type seriesFlags struct {
	showTrend      bool
	showMedian     bool
	shadeDeviation bool
	showAnomaly    bool
}

// monthSeriesChart builds one metric's chart: for every calendar month a main
// yearly series with the Q1-Q3 spread, an optional trendline and an optional
// trend-relative deviation band. Series visibility is driven through hidden
// legend state so the page's month selector can flip months without touching
// chart options.
func monthSeriesChart(title, unit, fallbackColor string, series []stats.MonthSeries, anomalyColors []string, flags seriesFlags) *charts.Line {
	line := charts.NewLine()

	globals := []charts.GlobalOpts{
		charts.WithTitleOpts(opts.Title{Title: title, Left: "center"}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:      opts.Bool(true),
			Trigger:   "item",
			Formatter: pointTooltip(unit),
		}),
		charts.WithLegendOpts(opts.Legend{
			Show:     opts.Bool(false),
			Selected: initialSelection(flags),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Year", Type: "value", Min: "dataMin", Max: "dataMax"}),
		charts.WithYAxisOpts(opts.YAxis{Name: unit, Type: "value", Scale: opts.Bool(true)}),
	}
	if flags.showAnomaly {
		min, max := anomalyBounds(series)
		globals = append(globals, charts.WithVisualMapOpts(opts.VisualMap{
			Min:     min,
			Max:     max,
			InRange: &opts.VisualMapInRange{Color: anomalyColors},
		}))
	}
	line.SetGlobalOptions(globals...)

	for i, s := range series {
		month := monthNames[i]
		points := s.Points
		if len(points) == 0 {
			// Keep the series present so legend actions stay uniform.
			line.AddSeries(month, []opts.LineData{})
			continue
		}

		trend, trendOK := stats.FitTrend(points)

		// Deviation band: trend ± RMS residual, drawn as a stacked pair.
		if trendOK && flags.shadeDeviation {
			sigma := stats.ResidualStd(points, trend)
			base := make([]opts.LineData, len(points))
			diff := make([]opts.LineData, len(points))
			for j, p := range points {
				center := trend.At(float64(p.Year))
				base[j] = opts.LineData{Value: []interface{}{p.Year, center - sigma}}
				diff[j] = opts.LineData{Value: []interface{}{p.Year, 2 * sigma}}
			}
			stack := "band-" + month
			line.AddSeries(month+" band base", base,
				charts.WithLineChartOpts(opts.LineChart{Stack: stack, Symbol: "none"}),
				charts.WithLineStyleOpts(opts.LineStyle{Opacity: 0}))
			line.AddSeries(month+" band", diff,
				charts.WithLineChartOpts(opts.LineChart{Stack: stack, Symbol: "none"}),
				charts.WithLineStyleOpts(opts.LineStyle{Opacity: 0}),
				charts.WithAreaStyleOpts(opts.AreaStyle{Color: "#c8c8c8", Opacity: 0.25}))
		}

		// Q1-Q3 spread, same stacked-pair construction.
		base := make([]opts.LineData, len(points))
		diff := make([]opts.LineData, len(points))
		for j, p := range points {
			base[j] = opts.LineData{Value: []interface{}{p.Year, p.Q1}}
			diff[j] = opts.LineData{Value: []interface{}{p.Year, p.Q3 - p.Q1}}
		}
		stack := "spread-" + month
		line.AddSeries(month+" spread base", base,
			charts.WithLineChartOpts(opts.LineChart{Stack: stack, Symbol: "none"}),
			charts.WithLineStyleOpts(opts.LineStyle{Opacity: 0}))
		line.AddSeries(month+" spread", diff,
			charts.WithLineChartOpts(opts.LineChart{Stack: stack, Symbol: "none"}),
			charts.WithLineStyleOpts(opts.LineStyle{Opacity: 0}),
			charts.WithAreaStyleOpts(opts.AreaStyle{Color: "#9bb7d4", Opacity: 0.2}))

		if trendOK && flags.showTrend {
			first, last := points[0].Year, points[len(points)-1].Year
			line.AddSeries(month+" trend", []opts.LineData{
				{Value: []interface{}{first, trend.At(float64(first))}},
				{Value: []interface{}{last, trend.At(float64(last))}},
			},
				charts.WithLineChartOpts(opts.LineChart{Symbol: "none"}),
				charts.WithLineStyleOpts(opts.LineStyle{Color: "#e74c3c", Width: 2.5, Type: "dashed"}))
		}

		if flags.showMedian {
			median := stats.SeriesMedian(points)
			first, last := points[0].Year, points[len(points)-1].Year
			line.AddSeries(month+" median", []opts.LineData{
				{Value: []interface{}{first, median}},
				{Value: []interface{}{last, median}},
			},
				charts.WithLineChartOpts(opts.LineChart{Symbol: "none"}),
				charts.WithLineStyleOpts(opts.LineStyle{Color: "#8e44ad", Width: 2, Type: "dotted"}))
		}

		// Main observations. The anomaly rides along as the last value
		// dimension, which is what the visual map colours by.
		main := make([]opts.LineData, len(points))
		for j, p := range points {
			main[j] = opts.LineData{Value: []interface{}{p.Year, p.Value, p.Q1, p.Q3, p.Anomaly}}
		}
		mainOpts := []charts.SeriesOpts{
			charts.WithLineChartOpts(opts.LineChart{Symbol: "circle", SymbolSize: 8}),
			charts.WithLineStyleOpts(opts.LineStyle{Color: "rgba(0,0,0,0.2)", Width: 1}),
		}
		if !flags.showAnomaly {
			mainOpts = append(mainOpts, charts.WithItemStyleOpts(opts.ItemStyle{Color: fallbackColor}))
		}
		line.AddSeries(month, main, mainOpts...)
	}

	return line
}

// initialSelection shows January (and its helper series, as the flags allow)
// and hides everything else.
func initialSelection(flags seriesFlags) map[string]bool {
	sel := make(map[string]bool, len(monthNames)*5)
	for _, m := range monthNames {
		visible := m == monthNames[0]
		sel[m] = visible
		sel[m+" spread"] = visible
		sel[m+" spread base"] = visible
		if flags.showTrend {
			sel[m+" trend"] = visible
		}
		if flags.showMedian {
			sel[m+" median"] = visible
		}
		if flags.shadeDeviation {
			sel[m+" band"] = visible
			sel[m+" band base"] = visible
		}
	}
	return sel
}

// anomalyBounds returns a symmetric range covering the largest anomaly in any
// month, so the diverging palette stays centred on zero.
func anomalyBounds(series []stats.MonthSeries) (float32, float32) {
	var maxAbs float64
	for _, s := range series {
		for _, p := range s.Points {
			if a := p.Anomaly; a > maxAbs {
				maxAbs = a
			} else if -a > maxAbs {
				maxAbs = -a
			}
		}
	}
	if maxAbs == 0 {
		maxAbs = 1
	}
	return float32(-maxAbs), float32(maxAbs)
}

func pointTooltip(unit string) types.FuncStr {
	return opts.FuncOpts(fmt.Sprintf(`function (p) {
        var v = p.value;
        if (!v || v.length < 5) { return p.seriesName; }
        return '<b>Year: ' + v[0] + '</b><br>' +
            'Value: ' + v[1].toFixed(1) + ' %[1]s<br>' +
            'Anomaly: ' + v[4].toFixed(1) + ' %[1]s<br>' +
            'Q1: ' + v[2].toFixed(1) + ' %[1]s<br>' +
            'Q3: ' + v[3].toFixed(1) + ' %[1]s';
    }`, unit))
}

// stationMapChart plots the stations on a lon/lat scatter, splitting those
// still reporting in the newest observed year from historical ones.
func stationMapChart(stations []models.Station, ranges map[string]stats.YearRange, maxYear int) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Climate Stations", Left: "center"}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:      opts.Bool(true),
			Formatter: opts.FuncOpts(`function (p) { return p.name; }`),
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Left: "left"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Longitude", Type: "value", Min: "dataMin", Max: "dataMax"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Latitude", Type: "value", Scale: opts.Bool(true)}),
	)

	var active, historical []opts.ScatterData
	for _, st := range stations {
		r, ok := ranges[st.ID]
		if !ok {
			continue
		}
		label := fmt.Sprintf("%s (%d - %d)", st.Name, r.First, r.Last)
		point := opts.ScatterData{Name: label, Value: []interface{}{st.Longitude, st.Latitude}, SymbolSize: 10}
		if r.Last == maxYear {
			active = append(active, point)
		} else {
			historical = append(historical, point)
		}
	}

	if len(historical) > 0 {
		scatter.AddSeries("Historical", historical,
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "#e74c3c", Opacity: 0.8}))
	}
	if len(active) > 0 {
		scatter.AddSeries("Active", active,
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "#2ecc71", Opacity: 0.8}))
	}
	return scatter
}
