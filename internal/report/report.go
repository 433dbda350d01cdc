// Package report renders the HTML climate report: monthly temperature and
// precipitation charts, a station map, and the controls to flip between
// months.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/tdewolff/minify/v2"
	mhtml "github.com/tdewolff/minify/v2/html"
	mjs "github.com/tdewolff/minify/v2/js"

	"github.com/cdurand/climatrend/internal/models"
	"github.com/cdurand/climatrend/internal/stats"
)

// Data is everything the report needs.
type Data struct {
	Location     models.Location
	RadiusKm     float64
	StartYear    int
	EndYear      int
	Stations     []models.Station
	Observations []models.DailyObservation

	ShowTrend      bool
	ShowMedian     bool
	ShadeDeviation bool
	ShowAnomaly    bool

	GeneratedAt time.Time
}

// Render produces the minified report HTML.
func Render(data Data) (string, error) {
	if len(data.Observations) == 0 {
		return "", fmt.Errorf("no observations to report on")
	}

	monthly := stats.AggregateMonthly(data.Observations)
	flags := seriesFlags{
		showTrend:      data.ShowTrend,
		showMedian:     data.ShowMedian,
		shadeDeviation: data.ShadeDeviation,
		showAnomaly:    data.ShowAnomaly,
	}

	tempChart := monthSeriesChart(
		"Monthly Temperature Analysis", "°C", "#2c3e50",
		stats.TemperatureSeries(monthly), tempAnomalyColors, flags)
	precipChart := monthSeriesChart(
		"Monthly Precipitation Analysis", "mm", "#1a5fb4",
		stats.PrecipitationSeries(monthly), precipAnomalyColors, flags)

	page := pageData{
		Location:       data.Location.Name,
		RadiusKm:       data.RadiusKm,
		GeneratedAt:    data.GeneratedAt.Format("2006-01-02"),
		Months:         monthNames,
		StationCount:   len(data.Stations),
		StartYear:      data.StartYear,
		EndYear:        data.EndYear,
		ShowTrend:      data.ShowTrend,
		ShowMedian:     data.ShowMedian,
		ShadeDeviation: data.ShadeDeviation,
		TempChart:      snippet(tempChart, "charttemp", "100%", "600px"),
		PrecipChart:    snippet(precipChart, "chartprecip", "100%", "600px"),
	}

	if len(data.Stations) > 0 {
		ranges := stats.StationYearRanges(data.Observations)
		mapChart := stationMapChart(data.Stations, ranges, stats.MaxYear(data.Observations))
		s := snippet(mapChart, "chartmap", "100%", "500px")
		page.MapChart = &s
	}

	tmpl, err := template.New("report").Funcs(sprig.FuncMap()).Parse(pageTemplate)
	if err != nil {
		return "", fmt.Errorf("parsing report template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, page); err != nil {
		return "", fmt.Errorf("rendering report: %w", err)
	}

	return minifyHTML(buf.String())
}

// WriteFile renders and writes the report.
func WriteFile(path string, data Data) error {
	html, err := Render(data)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		return fmt.Errorf("writing report to %s: %w", path, err)
	}
	return nil
}

func minifyHTML(in string) (string, error) {
	m := minify.New()
	m.AddFunc("text/html", mhtml.Minify)
	m.AddFunc("application/javascript", mjs.Minify)

	out, err := m.String("text/html", in)
	if err != nil {
		// The report is still usable unminified; don't fail the run on a
		// minifier edge case.
		return in, nil
	}
	return out, nil
}
