package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdurand/climatrend/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func obsWith(station, date string, year int, temp *float64) models.DailyObservation {
	d, _ := time.Parse("2006-01-02", date)
	return models.DailyObservation{
		StationID: station,
		Date:      date,
		Year:      year,
		Month:     int(d.Month()),
		Day:       d.Day(),
		TempMean:  temp,
	}
}

func TestSaveAndLoadDaily(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	temp := 12.5
	obs := []models.DailyObservation{
		obsWith("5020", "2000-01-01", 2000, &temp),
		obsWith("5020", "2000-01-02", 2000, nil),
		obsWith("5020", "2001-06-15", 2001, &temp),
		obsWith("9999", "2000-01-01", 2000, &temp),
	}
	require.NoError(t, store.SaveDaily(ctx, obs))

	got, err := store.CachedDaily(ctx, "5020", 2000, 2001)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "2000-01-01", got[0].Date)
	require.NotNil(t, got[0].TempMean)
	assert.Equal(t, 12.5, *got[0].TempMean)
	assert.Nil(t, got[1].TempMean)

	// Year filter excludes 2001.
	got, err = store.CachedDaily(ctx, "5020", 2000, 2000)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSaveDailyUpserts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, second := 1.0, 2.0
	require.NoError(t, store.SaveDaily(ctx, []models.DailyObservation{
		obsWith("5020", "2000-01-01", 2000, &first),
	}))
	require.NoError(t, store.SaveDaily(ctx, []models.DailyObservation{
		obsWith("5020", "2000-01-01", 2000, &second),
	}))

	got, err := store.CachedDaily(ctx, "5020", 2000, 2000)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].TempMean)
	assert.Equal(t, 2.0, *got[0].TempMean)
}

func TestSaveDailyRejectsEmptyDate(t *testing.T) {
	store := newTestStore(t)
	err := store.SaveDaily(context.Background(), []models.DailyObservation{
		{StationID: "5020", Year: 2000},
	})
	assert.Error(t, err)
}

func TestCoveredYears(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveDaily(ctx, []models.DailyObservation{
		obsWith("5020", "2000-01-01", 2000, nil),
		obsWith("5020", "2000-05-01", 2000, nil),
		obsWith("5020", "2002-01-01", 2002, nil),
	}))

	years, err := store.CoveredYears(ctx, "5020", 1999, 2003)
	require.NoError(t, err)
	assert.Equal(t, []int{2000, 2002}, years)

	assert.False(t, HasAllYears(years, 2000, 2002))
	assert.True(t, HasAllYears([]int{2000, 2001, 2002}, 2000, 2002))
	assert.False(t, HasAllYears(nil, 2000, 2000))
}

func TestSaveStations(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	stations := []models.Station{
		{ID: "5020", Name: "TORONTO CITY", Latitude: 43.67, Longitude: -79.4},
	}
	require.NoError(t, store.SaveStations(ctx, stations))
	// Same id again must not error.
	stations[0].Name = "TORONTO CITY CENTRE"
	require.NoError(t, store.SaveStations(ctx, stations))
	require.NoError(t, store.SaveStations(ctx, nil))
}

func TestHTTPCacheRoundTrip(t *testing.T) {
	c, err := NewHTTPCache(filepath.Join(t.TempDir(), "http.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("https://example.org/items", []byte("payload"))
	got, ok := c.Get("https://example.org/items")
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), got)

	c.Set("https://example.org/items", []byte("fresher"))
	got, ok = c.Get("https://example.org/items")
	require.True(t, ok)
	assert.Equal(t, []byte("fresher"), got)

	c.Delete("https://example.org/items")
	_, ok = c.Get("https://example.org/items")
	assert.False(t, ok)
}

func TestHTTPCacheExpiry(t *testing.T) {
	c, err := NewHTTPCache(filepath.Join(t.TempDir(), "http.db"), time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	c.Set("key", []byte("value"))
	_, ok := c.Get("key")
	assert.True(t, ok)

	clock = clock.Add(59 * time.Minute)
	_, ok = c.Get("key")
	assert.True(t, ok)

	clock = clock.Add(2 * time.Minute)
	_, ok = c.Get("key")
	assert.False(t, ok, "entry past its TTL must be a miss")

	// The expired row is gone even with the clock rolled back.
	clock = clock.Add(-time.Hour)
	_, ok = c.Get("key")
	assert.False(t, ok)
}
