package msc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/gregjones/httpcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdurand/climatrend/internal/cache"
	"github.com/cdurand/climatrend/internal/models"
)

// geometFake serves a stations collection and a paginated daily collection
// the way GeoMet does.
type geometFake struct {
	stations  []map[string]interface{}
	daily     map[string][]map[string]interface{} // by CLIMATE_IDENTIFIER
	dailyHits int
}

func (g *geometFake) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/collections/climate-stations/items", func(w http.ResponseWriter, r *http.Request) {
		writeCollection(w, g.stations, len(g.stations))
	})
	mux.HandleFunc("/collections/climate-daily/items", func(w http.ResponseWriter, r *http.Request) {
		g.dailyHits++
		rows := g.daily[r.URL.Query().Get("CLIMATE_IDENTIFIER")]
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		end := offset + limit
		if offset > len(rows) {
			offset = len(rows)
		}
		if end > len(rows) {
			end = len(rows)
		}
		writeCollection(w, rows[offset:end], len(rows))
	})
	return mux
}

func writeCollection(w http.ResponseWriter, features []map[string]interface{}, matched int) {
	if features == nil {
		features = []map[string]interface{}{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"features":       features,
		"numberMatched":  matched,
		"numberReturned": len(features),
	})
}

func stationFeature(id, name string, lat, lon float64) map[string]interface{} {
	return map[string]interface{}{
		"geometry": map[string]interface{}{"coordinates": []float64{lon, lat}},
		"properties": map[string]interface{}{
			"CLIMATE_IDENTIFIER": id,
			"STATION_NAME":       name,
			"DLY_FIRST_DATE":     "1950-01-01 00:00:00",
			"DLY_LAST_DATE":      "2024-06-30 00:00:00",
		},
	}
}

func dailyFeature(id string, year, month, day int, temp float64) map[string]interface{} {
	return map[string]interface{}{
		"geometry": map[string]interface{}{"coordinates": []float64{0, 0}},
		"properties": map[string]interface{}{
			"CLIMATE_IDENTIFIER": id,
			"LOCAL_DATE":         fmt.Sprintf("%04d-%02d-%02d 00:00:00", year, month, day),
			"LOCAL_YEAR":         year,
			"LOCAL_MONTH":        month,
			"LOCAL_DAY":          day,
			"MEAN_TEMPERATURE":   temp,
		},
	}
}

func newTestClient(t *testing.T, baseURL string, pageLimit int) (*Client, cache.Store) {
	t.Helper()
	store, err := cache.NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := models.APIConfig{
		BaseURL:           baseURL,
		UserAgent:         "climatrend-test",
		RequestsPerSecond: 1000,
		PageLimit:         pageLimit,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(cfg, store, nil, log), store
}

func TestFindStationsNearFiltersByRadius(t *testing.T) {
	center := models.Location{Name: "Toronto", Lat: 43.65, Lon: -79.38}
	fake := &geometFake{
		stations: []map[string]interface{}{
			// ~5 km north of the centre.
			stationFeature("1111", "CLOSE", 43.695, -79.38),
			// Inside the bbox corner but outside the circle (~130 km).
			stationFeature("2222", "CORNER", 44.55, -78.25),
			// ~56 km north.
			stationFeature("3333", "MID", 44.15, -79.38),
		},
	}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	client, _ := newTestClient(t, srv.URL, 1000)
	stations, err := client.FindStationsNear(context.Background(), center, 100)
	require.NoError(t, err)

	require.Len(t, stations, 2)
	assert.Equal(t, "1111", stations[0].ID)
	assert.Equal(t, "3333", stations[1].ID)
	assert.Less(t, stations[0].DistanceKm, stations[1].DistanceKm)
	assert.Equal(t, 1950, stations[0].FirstYear)
	assert.Equal(t, 2024, stations[0].LastYear)
}

func TestFetchStationDailyPaginates(t *testing.T) {
	var rows []map[string]interface{}
	for d := 1; d <= 5; d++ {
		rows = append(rows, dailyFeature("1111", 2000, 1, d, float64(d)))
	}
	fake := &geometFake{daily: map[string][]map[string]interface{}{"1111": rows}}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	client, _ := newTestClient(t, srv.URL, 2)
	obs, err := client.FetchStationDaily(context.Background(), "1111", 2000, 2000)
	require.NoError(t, err)

	require.Len(t, obs, 5)
	assert.Equal(t, 3, fake.dailyHits, "5 rows at a page limit of 2 take 3 requests")
	assert.Equal(t, "2000-01-01", obs[0].Date)
	assert.Equal(t, "2000-01-05", obs[4].Date)
	require.NotNil(t, obs[2].TempMean)
	assert.Equal(t, 3.0, *obs[2].TempMean)
}

func TestFetchStationDailyUsesStructuredCache(t *testing.T) {
	var rows []map[string]interface{}
	for m := 1; m <= 12; m++ {
		rows = append(rows, dailyFeature("1111", 2000, m, 1, 5))
	}
	fake := &geometFake{daily: map[string][]map[string]interface{}{"1111": rows}}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	client, _ := newTestClient(t, srv.URL, 1000)

	first, err := client.FetchStationDaily(context.Background(), "1111", 2000, 2000)
	require.NoError(t, err)
	require.Len(t, first, 12)
	hitsAfterFirst := fake.dailyHits

	second, err := client.FetchStationDaily(context.Background(), "1111", 2000, 2000)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, hitsAfterFirst, fake.dailyHits, "a fully covered range must not reach the network")
}

func TestFetchStationDailyEmpty(t *testing.T) {
	fake := &geometFake{}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	client, _ := newTestClient(t, srv.URL, 1000)
	obs, err := client.FetchStationDaily(context.Background(), "9999", 2000, 2001)
	require.NoError(t, err)
	assert.Empty(t, obs)
}

func TestCachingTransportReplaysResponses(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		fmt.Fprint(w, `{"ok":true}`)
	}))
	t.Cleanup(srv.Close)

	hc, err := cache.NewHTTPCache(filepath.Join(t.TempDir(), "http.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { hc.Close() })

	client := &http.Client{Transport: newCachingTransport(hc, nil)}

	for i := 0; i < 3; i++ {
		resp, err := client.Get(srv.URL + "/items")
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		assert.Equal(t, `{"ok":true}`, string(body))
		if i > 0 {
			assert.Equal(t, "1", resp.Header.Get(httpcache.XFromCache))
		}
	}
	assert.Equal(t, 1, hits)
}

func TestHelperParsers(t *testing.T) {
	assert.Equal(t, 1998, yearOf("1998-07-01 00:00:00"))
	assert.Equal(t, 0, yearOf(""))
	assert.Equal(t, 0, yearOf("n/a"))
	assert.Equal(t, "2005-01-15", dateOf("2005-01-15 00:00:00"))
	assert.Equal(t, "2005-01-15", dateOf("2005-01-15"))
	assert.Equal(t, "bad", dateOf("bad"))
}
