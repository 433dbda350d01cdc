// Package stats turns daily observations into the monthly and yearly series
// the report plots: means, quartile spreads, anomalies against the long-term
// mean, least-squares trends and trend-relative deviation bands.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/cdurand/climatrend/internal/models"
)

// Monthly is one station-month of aggregated daily values. Fields are nil
// when no daily value of that kind was present in the month.
type Monthly struct {
	StationID   string
	Year        int
	Month       int
	TempMean    *float64 // mean of daily mean temperatures
	TempMinAbs  *float64 // lowest daily minimum
	TempMaxAbs  *float64 // highest daily maximum
	PrecipTotal *float64 // summed daily precipitation
	TempQ1      *float64
	TempQ3      *float64
	PrecipQ1    *float64
	PrecipQ3    *float64
}

// YearPoint is one year of a per-month series, averaged across stations.
type YearPoint struct {
	Year    int
	Value   float64
	Q1      float64
	Q3      float64
	Min     float64
	Max     float64
	Anomaly float64
}

// MonthSeries is a calendar month's yearly history.
type MonthSeries struct {
	Month        int // 1..12
	Points       []YearPoint
	LongTermMean float64
}

// Trend is a fitted least-squares line over (year, value).
type Trend struct {
	Slope     float64
	Intercept float64
}

// At evaluates the trendline at a year.
func (t Trend) At(year float64) float64 {
	return t.Intercept + t.Slope*year
}

// AggregateMonthly collapses daily observations into station-months. Each
// aggregate ignores days where its own input is missing, so a month with
// temperatures but no precipitation still yields temperature values.
func AggregateMonthly(obs []models.DailyObservation) []Monthly {
	type key struct {
		station     string
		year, month int
	}
	groups := make(map[key][]models.DailyObservation)
	var order []key
	for _, o := range obs {
		k := key{o.StationID, o.Year, o.Month}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], o)
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.station != b.station {
			return a.station < b.station
		}
		if a.year != b.year {
			return a.year < b.year
		}
		return a.month < b.month
	})

	monthly := make([]Monthly, 0, len(order))
	for _, k := range order {
		days := groups[k]
		var tMeans, tMins, tMaxs, precips []float64
		for _, d := range days {
			if d.TempMean != nil {
				tMeans = append(tMeans, *d.TempMean)
			}
			if d.TempMin != nil {
				tMins = append(tMins, *d.TempMin)
			}
			if d.TempMax != nil {
				tMaxs = append(tMaxs, *d.TempMax)
			}
			if d.Precip != nil {
				precips = append(precips, *d.Precip)
			}
		}

		m := Monthly{StationID: k.station, Year: k.year, Month: k.month}
		if len(tMeans) > 0 {
			m.TempMean = ptr(stat.Mean(tMeans, nil))
			m.TempQ1 = ptr(quantile(tMeans, 0.25))
			m.TempQ3 = ptr(quantile(tMeans, 0.75))
		}
		if len(tMins) > 0 {
			m.TempMinAbs = ptr(minOf(tMins))
		}
		if len(tMaxs) > 0 {
			m.TempMaxAbs = ptr(maxOf(tMaxs))
		}
		if len(precips) > 0 {
			m.PrecipTotal = ptr(sum(precips))
			m.PrecipQ1 = ptr(quantile(precips, 0.25))
			m.PrecipQ3 = ptr(quantile(precips, 0.75))
		}
		monthly = append(monthly, m)
	}
	return monthly
}

// TemperatureSeries builds the twelve per-month yearly temperature series.
// For each year, station means are averaged and the absolute extremes taken
// across stations; anomalies are relative to the series' long-term mean.
func TemperatureSeries(monthly []Monthly) []MonthSeries {
	return buildSeries(monthly, func(m Monthly) (value, q1, q3, lo, hi *float64) {
		return m.TempMean, m.TempQ1, m.TempQ3, m.TempMinAbs, m.TempMaxAbs
	}, false)
}

// PrecipitationSeries builds the twelve per-month yearly precipitation series
// from monthly station totals.
func PrecipitationSeries(monthly []Monthly) []MonthSeries {
	return buildSeries(monthly, func(m Monthly) (value, q1, q3, lo, hi *float64) {
		return m.PrecipTotal, m.PrecipQ1, m.PrecipQ3, m.PrecipTotal, m.PrecipTotal
	}, true)
}

func buildSeries(monthly []Monthly, pick func(Monthly) (value, q1, q3, lo, hi *float64), _ bool) []MonthSeries {
	series := make([]MonthSeries, 12)
	for i := range series {
		series[i].Month = i + 1
	}

	type yearAgg struct {
		values, q1s, q3s, los, his []float64
	}
	byMonth := make([]map[int]*yearAgg, 12)
	for i := range byMonth {
		byMonth[i] = make(map[int]*yearAgg)
	}

	for _, m := range monthly {
		if m.Month < 1 || m.Month > 12 {
			continue
		}
		v, q1, q3, lo, hi := pick(m)
		if v == nil {
			continue
		}
		agg := byMonth[m.Month-1][m.Year]
		if agg == nil {
			agg = &yearAgg{}
			byMonth[m.Month-1][m.Year] = agg
		}
		agg.values = append(agg.values, *v)
		if q1 != nil {
			agg.q1s = append(agg.q1s, *q1)
		}
		if q3 != nil {
			agg.q3s = append(agg.q3s, *q3)
		}
		if lo != nil {
			agg.los = append(agg.los, *lo)
		}
		if hi != nil {
			agg.his = append(agg.his, *hi)
		}
	}

	for i := range series {
		years := make([]int, 0, len(byMonth[i]))
		for y := range byMonth[i] {
			years = append(years, y)
		}
		sort.Ints(years)

		for _, y := range years {
			agg := byMonth[i][y]
			p := YearPoint{
				Year:  y,
				Value: stat.Mean(agg.values, nil),
			}
			if len(agg.q1s) > 0 {
				p.Q1 = stat.Mean(agg.q1s, nil)
			}
			if len(agg.q3s) > 0 {
				p.Q3 = stat.Mean(agg.q3s, nil)
			}
			if len(agg.los) > 0 {
				p.Min = minOf(agg.los)
			}
			if len(agg.his) > 0 {
				p.Max = maxOf(agg.his)
			}
			series[i].Points = append(series[i].Points, p)
		}

		if len(series[i].Points) > 0 {
			values := make([]float64, len(series[i].Points))
			for j, p := range series[i].Points {
				values[j] = p.Value
			}
			mean := stat.Mean(values, nil)
			series[i].LongTermMean = mean
			for j := range series[i].Points {
				series[i].Points[j].Anomaly = series[i].Points[j].Value - mean
			}
		}
	}
	return series
}

// SeriesMedian is the median of the yearly values, 0 when empty.
func SeriesMedian(points []YearPoint) float64 {
	if len(points) == 0 {
		return 0
	}
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	return quantile(values, 0.5)
}

// FitTrend fits an ordinary least-squares line through (year, value). The
// second return is false when the fit is undefined (fewer than two points or
// no spread in years).
func FitTrend(points []YearPoint) (Trend, bool) {
	if len(points) < 2 {
		return Trend{}, false
	}
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = float64(p.Year)
		ys[i] = p.Value
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) || math.IsInf(beta, 0) {
		return Trend{}, false
	}
	return Trend{Slope: beta, Intercept: alpha}, true
}

// ResidualStd is the root-mean-square residual of the points around the
// trendline; the report shades trend±σ with it.
func ResidualStd(points []YearPoint, t Trend) float64 {
	if len(points) == 0 {
		return 0
	}
	var ss float64
	for _, p := range points {
		r := p.Value - t.At(float64(p.Year))
		ss += r * r
	}
	return math.Sqrt(ss / float64(len(points)))
}

// YearRange is a station's observed span of years.
type YearRange struct {
	First int
	Last  int
}

// StationYearRanges returns each station's first and last observed year.
func StationYearRanges(obs []models.DailyObservation) map[string]YearRange {
	ranges := make(map[string]YearRange)
	for _, o := range obs {
		r, ok := ranges[o.StationID]
		if !ok {
			ranges[o.StationID] = YearRange{First: o.Year, Last: o.Year}
			continue
		}
		if o.Year < r.First {
			r.First = o.Year
		}
		if o.Year > r.Last {
			r.Last = o.Year
		}
		ranges[o.StationID] = r
	}
	return ranges
}

// MaxYear returns the newest year present in the observations, 0 when empty.
func MaxYear(obs []models.DailyObservation) int {
	max := 0
	for _, o := range obs {
		if o.Year > max {
			max = o.Year
		}
	}
	return max
}

func quantile(values []float64, p float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

func sum(values []float64) float64 {
	var s float64
	for _, v := range values {
		s += v
	}
	return s
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func ptr(v float64) *float64 { return &v }
