// Package cache persists station metadata, daily observations and HTTP
// responses locally so repeat runs avoid the network.
package cache

import (
	"context"

	"github.com/cdurand/climatrend/internal/models"
)

// Store is the structured cache of stations and daily observations.
type Store interface {
	SaveStations(ctx context.Context, stations []models.Station) error
	SaveDaily(ctx context.Context, obs []models.DailyObservation) error
	CachedDaily(ctx context.Context, stationID string, startYear, endYear int) ([]models.DailyObservation, error)
	CoveredYears(ctx context.Context, stationID string, startYear, endYear int) ([]int, error)
	Close() error
}

// HasAllYears reports whether covered contains every year in [start, end].
func HasAllYears(covered []int, start, end int) bool {
	seen := make(map[int]bool, len(covered))
	for _, y := range covered {
		seen[y] = true
	}
	for y := start; y <= end; y++ {
		if !seen[y] {
			return false
		}
	}
	return true
}
