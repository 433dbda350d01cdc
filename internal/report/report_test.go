package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdurand/climatrend/internal/models"
	"github.com/cdurand/climatrend/internal/synth"
)

func testData(t *testing.T) Data {
	t.Helper()
	gen := synth.New(7)
	center := models.Location{Name: "Testville", Lat: 52.1, Lon: 5.18}
	stations := gen.Stations(3, center, 50)
	obs := gen.Daily(stations, 1990, 2000)

	return Data{
		Location:       center,
		RadiusKm:       50,
		StartYear:      1990,
		EndYear:        2000,
		Stations:       stations,
		Observations:   obs,
		ShowTrend:      true,
		ShowMedian:     true,
		ShadeDeviation: true,
		ShowAnomaly:    true,
		GeneratedAt:    time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestRender(t *testing.T) {
	html, err := Render(testData(t))
	require.NoError(t, err)

	assert.Contains(t, html, "Climate Analysis: Testville")
	assert.Contains(t, html, "2024-06-01")
	assert.Contains(t, html, "3 stations")

	// All three charts, each with its container and init script.
	for _, id := range []string{"charttemp", "chartprecip", "chartmap"} {
		assert.Contains(t, html, id)
	}

	// Every month appears in both the dropdown and the series names.
	for _, m := range monthNames {
		assert.Contains(t, html, m)
	}

	// Trend and deviation series exist when asked for.
	assert.Contains(t, html, "January trend")
	assert.Contains(t, html, "January median")
	assert.Contains(t, html, "January band")
}

func TestRenderWithoutOptionalSeries(t *testing.T) {
	data := testData(t)
	data.ShowTrend = false
	data.ShowMedian = false
	data.ShadeDeviation = false
	data.ShowAnomaly = false

	html, err := Render(data)
	require.NoError(t, err)
	assert.NotContains(t, html, "January trend")
	assert.NotContains(t, html, "January median")
	assert.NotContains(t, html, "January band")
	assert.Contains(t, html, "January spread")
}

func TestRenderWithoutStationsSkipsMap(t *testing.T) {
	data := testData(t)
	data.Stations = nil

	html, err := Render(data)
	require.NoError(t, err)
	assert.NotContains(t, html, "chartmap")
	assert.Contains(t, html, "charttemp")
	assert.Contains(t, html, "0 stations")
}

func TestRenderNoObservations(t *testing.T) {
	_, err := Render(Data{Location: models.Location{Name: "Empty"}})
	assert.Error(t, err)
}

func TestRenderIsMinified(t *testing.T) {
	html, err := Render(testData(t))
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(html, "<!DOCTYPE html>\n<html"),
		"rendered output should be minified")
	assert.True(t, strings.HasPrefix(html, "<!doctype html>") || strings.HasPrefix(html, "<!DOCTYPE html>"))
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.html")
	require.NoError(t, WriteFile(path, testData(t)))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Testville")
}
