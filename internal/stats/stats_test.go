package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdurand/climatrend/internal/models"
)

func f(v float64) *float64 { return &v }

func day(station string, year, month, dayOfMonth int, temp, precip *float64) models.DailyObservation {
	return models.DailyObservation{
		StationID: station,
		Year:      year,
		Month:     month,
		Day:       dayOfMonth,
		TempMean:  temp,
		Precip:    precip,
	}
}

func TestAggregateMonthly(t *testing.T) {
	obs := []models.DailyObservation{
		day("A", 2000, 1, 1, f(-2), f(1)),
		day("A", 2000, 1, 2, f(0), f(3)),
		day("A", 2000, 1, 3, f(2), nil),
		day("A", 2000, 2, 1, f(4), f(2)),
		day("B", 2000, 1, 1, f(10), f(0)),
	}

	monthly := AggregateMonthly(obs)
	require.Len(t, monthly, 3)

	jan := monthly[0]
	assert.Equal(t, "A", jan.StationID)
	assert.Equal(t, 2000, jan.Year)
	assert.Equal(t, 1, jan.Month)
	require.NotNil(t, jan.TempMean)
	assert.InDelta(t, 0.0, *jan.TempMean, 1e-9)
	require.NotNil(t, jan.PrecipTotal)
	assert.InDelta(t, 4.0, *jan.PrecipTotal, 1e-9)

	feb := monthly[1]
	assert.Equal(t, 2, feb.Month)
	require.NotNil(t, feb.TempMean)
	assert.InDelta(t, 4.0, *feb.TempMean, 1e-9)

	bJan := monthly[2]
	assert.Equal(t, "B", bJan.StationID)
	require.NotNil(t, bJan.TempMean)
	assert.InDelta(t, 10.0, *bJan.TempMean, 1e-9)
}

func TestAggregateMonthlySkipsMissingFields(t *testing.T) {
	obs := []models.DailyObservation{
		day("A", 2000, 6, 1, f(15), nil),
		day("A", 2000, 6, 2, nil, nil),
	}

	monthly := AggregateMonthly(obs)
	require.Len(t, monthly, 1)
	require.NotNil(t, monthly[0].TempMean)
	assert.InDelta(t, 15.0, *monthly[0].TempMean, 1e-9)
	assert.Nil(t, monthly[0].PrecipTotal)
}

func TestAggregateMonthlyExtremes(t *testing.T) {
	obs := []models.DailyObservation{
		{StationID: "A", Year: 2001, Month: 7, Day: 1, TempMin: f(8), TempMax: f(24)},
		{StationID: "A", Year: 2001, Month: 7, Day: 2, TempMin: f(5), TempMax: f(30)},
		{StationID: "A", Year: 2001, Month: 7, Day: 3, TempMin: f(11), TempMax: f(22)},
	}

	monthly := AggregateMonthly(obs)
	require.Len(t, monthly, 1)
	require.NotNil(t, monthly[0].TempMinAbs)
	require.NotNil(t, monthly[0].TempMaxAbs)
	assert.Equal(t, 5.0, *monthly[0].TempMinAbs)
	assert.Equal(t, 30.0, *monthly[0].TempMaxAbs)
	assert.Nil(t, monthly[0].TempMean)
}

func TestAggregateMonthlyDeterministicOrder(t *testing.T) {
	obs := []models.DailyObservation{
		day("B", 2001, 3, 1, f(1), nil),
		day("A", 2002, 1, 1, f(1), nil),
		day("A", 2001, 5, 1, f(1), nil),
	}

	first := AggregateMonthly(obs)
	for i := 0; i < 10; i++ {
		again := AggregateMonthly(obs)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, "A", first[0].StationID)
	assert.Equal(t, 2001, first[0].Year)
	assert.Equal(t, "B", first[2].StationID)
}

func TestTemperatureSeriesAveragesAcrossStations(t *testing.T) {
	obs := []models.DailyObservation{
		day("A", 2000, 1, 1, f(0), nil),
		day("B", 2000, 1, 1, f(10), nil),
		day("A", 2001, 1, 1, f(2), nil),
		day("B", 2001, 1, 1, f(12), nil),
	}

	series := TemperatureSeries(AggregateMonthly(obs))
	require.Len(t, series, 12)

	jan := series[0]
	require.Len(t, jan.Points, 2)
	assert.InDelta(t, 5.0, jan.Points[0].Value, 1e-9)
	assert.InDelta(t, 7.0, jan.Points[1].Value, 1e-9)
	assert.InDelta(t, 6.0, jan.LongTermMean, 1e-9)

	// Other months have no data.
	for _, s := range series[1:] {
		assert.Empty(t, s.Points)
	}
}

func TestAnomaliesSumToZero(t *testing.T) {
	obs := []models.DailyObservation{
		day("A", 2000, 4, 1, f(3), nil),
		day("A", 2001, 4, 1, f(7), nil),
		day("A", 2002, 4, 1, f(5), nil),
	}

	series := TemperatureSeries(AggregateMonthly(obs))
	apr := series[3]
	require.Len(t, apr.Points, 3)

	var total float64
	for _, p := range apr.Points {
		total += p.Anomaly
		assert.InDelta(t, p.Value-apr.LongTermMean, p.Anomaly, 1e-9)
	}
	assert.InDelta(t, 0.0, total, 1e-9)
}

func TestPrecipitationSeriesUsesMonthlyTotals(t *testing.T) {
	obs := []models.DailyObservation{
		day("A", 2000, 10, 1, nil, f(5)),
		day("A", 2000, 10, 2, nil, f(7)),
	}

	series := PrecipitationSeries(AggregateMonthly(obs))
	oct := series[9]
	require.Len(t, oct.Points, 1)
	assert.InDelta(t, 12.0, oct.Points[0].Value, 1e-9)
}

func TestFitTrendExactLine(t *testing.T) {
	points := []YearPoint{
		{Year: 2000, Value: 10},
		{Year: 2001, Value: 10.5},
		{Year: 2002, Value: 11},
		{Year: 2003, Value: 11.5},
	}

	trend, ok := FitTrend(points)
	require.True(t, ok)
	assert.InDelta(t, 0.5, trend.Slope, 1e-9)
	assert.InDelta(t, 10.0, trend.At(2000), 1e-9)
	assert.InDelta(t, 11.5, trend.At(2003), 1e-9)
}

func TestFitTrendTooFewPoints(t *testing.T) {
	_, ok := FitTrend(nil)
	assert.False(t, ok)
	_, ok = FitTrend([]YearPoint{{Year: 2000, Value: 1}})
	assert.False(t, ok)
}

func TestSeriesMedian(t *testing.T) {
	points := []YearPoint{
		{Year: 2000, Value: 3},
		{Year: 2001, Value: 9},
		{Year: 2002, Value: 5},
	}
	assert.InDelta(t, 5.0, SeriesMedian(points), 1e-9)
	assert.Zero(t, SeriesMedian(nil))
}

func TestResidualStd(t *testing.T) {
	trend := Trend{Slope: 0, Intercept: 10}
	points := []YearPoint{
		{Year: 2000, Value: 12},
		{Year: 2001, Value: 8},
	}
	assert.InDelta(t, 2.0, ResidualStd(points, trend), 1e-9)

	// Perfect fit leaves no residual.
	exact := []YearPoint{{Year: 2000, Value: 10}, {Year: 2001, Value: 10}}
	assert.InDelta(t, 0.0, ResidualStd(exact, trend), 1e-9)
}

func TestStationYearRanges(t *testing.T) {
	obs := []models.DailyObservation{
		day("A", 1995, 1, 1, f(1), nil),
		day("A", 2010, 1, 1, f(1), nil),
		day("A", 2003, 1, 1, f(1), nil),
		day("B", 2020, 1, 1, f(1), nil),
	}

	ranges := StationYearRanges(obs)
	assert.Equal(t, YearRange{First: 1995, Last: 2010}, ranges["A"])
	assert.Equal(t, YearRange{First: 2020, Last: 2020}, ranges["B"])
	assert.Equal(t, 2020, MaxYear(obs))
	assert.Equal(t, 0, MaxYear(nil))
}
