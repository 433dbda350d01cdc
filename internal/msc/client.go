// Package msc is a client for the MSC GeoMet OGC API, the Meteorological
// Service of Canada's public access point for climate station metadata and
// daily observations.
package msc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/gregjones/httpcache"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/cdurand/climatrend/internal/cache"
	"github.com/cdurand/climatrend/internal/models"
)

const (
	collectionStations = "climate-stations"
	collectionDaily    = "climate-daily"
)

type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
	store     cache.Store
	pageLimit int
	log       *slog.Logger
}

// NewClient wires retries, the response cache, a client-side rate limit and a
// circuit breaker around the GeoMet endpoints. httpCache may be nil to skip
// response caching (tests do this).
func NewClient(cfg models.APIConfig, store cache.Store, httpCache httpcache.Cache, log *slog.Logger) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.MaxRetries
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 10 * time.Second
	rc.Logger = nil
	rc.HTTPClient.Transport = newCachingTransport(httpCache, rc.HTTPClient.Transport)

	httpClient := rc.StandardClient()
	httpClient.Timeout = cfg.Timeout

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "geomet",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
	})

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 4
	}
	pageLimit := cfg.PageLimit
	if pageLimit <= 0 {
		pageLimit = 10000
	}

	return &Client{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		http:      httpClient,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		breaker:   breaker,
		store:     store,
		pageLimit: pageLimit,
		log:       log,
	}
}

type featureCollection struct {
	Features       []feature `json:"features"`
	NumberMatched  int       `json:"numberMatched"`
	NumberReturned int       `json:"numberReturned"`
}

type feature struct {
	Geometry struct {
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
	Properties json.RawMessage `json:"properties"`
}

type stationProperties struct {
	ClimateID   string `json:"CLIMATE_IDENTIFIER"`
	StationName string `json:"STATION_NAME"`
	FirstDate   string `json:"DLY_FIRST_DATE"`
	LastDate    string `json:"DLY_LAST_DATE"`
}

type dailyProperties struct {
	ClimateID string   `json:"CLIMATE_IDENTIFIER"`
	LocalDate string   `json:"LOCAL_DATE"`
	LocalYear int      `json:"LOCAL_YEAR"`
	LocalMon  int      `json:"LOCAL_MONTH"`
	LocalDay  int      `json:"LOCAL_DAY"`
	TempMean  *float64 `json:"MEAN_TEMPERATURE"`
	TempMin   *float64 `json:"MIN_TEMPERATURE"`
	TempMax   *float64 `json:"MAX_TEMPERATURE"`
	Precip    *float64 `json:"TOTAL_PRECIPITATION"`
}

// FindStationsNear returns the stations within radiusKm of the location,
// nearest first. Station metadata is upserted into the structured cache.
func (c *Client) FindStationsNear(ctx context.Context, loc models.Location, radiusKm float64) ([]models.Station, error) {
	params := url.Values{}
	params.Set("f", "json")
	params.Set("bbox", models.BoundingBox(loc.Lat, loc.Lon, radiusKm))
	params.Set("limit", "1000")

	c.log.Info("searching for stations", "lat", loc.Lat, "lon", loc.Lon, "radius_km", radiusKm)

	var fc featureCollection
	if err := c.getJSON(ctx, collectionStations, params, &fc); err != nil {
		return nil, fmt.Errorf("station search failed: %w", err)
	}

	var stations []models.Station
	for _, f := range fc.Features {
		if len(f.Geometry.Coordinates) < 2 {
			continue
		}
		var props stationProperties
		if err := json.Unmarshal(f.Properties, &props); err != nil {
			continue
		}
		sLon, sLat := f.Geometry.Coordinates[0], f.Geometry.Coordinates[1]
		dist := models.HaversineKm(loc.Lat, loc.Lon, sLat, sLon)
		if dist > radiusKm {
			continue
		}
		stations = append(stations, models.Station{
			ID:         props.ClimateID,
			Name:       props.StationName,
			Latitude:   sLat,
			Longitude:  sLon,
			DistanceKm: dist,
			FirstYear:  yearOf(props.FirstDate),
			LastYear:   yearOf(props.LastDate),
		})
	}

	sort.Slice(stations, func(i, j int) bool {
		return stations[i].DistanceKm < stations[j].DistanceKm
	})

	if err := c.store.SaveStations(ctx, stations); err != nil {
		return nil, fmt.Errorf("caching stations: %w", err)
	}
	return stations, nil
}

// FetchStationDaily returns the station's daily observations for the year
// range, consulting the structured cache first and merging new rows into it.
func (c *Client) FetchStationDaily(ctx context.Context, stationID string, startYear, endYear int) ([]models.DailyObservation, error) {
	covered, err := c.store.CoveredYears(ctx, stationID, startYear, endYear)
	if err != nil {
		return nil, err
	}
	if cache.HasAllYears(covered, startYear, endYear) {
		c.log.Info("using structured cache", "station", stationID)
		return c.store.CachedDaily(ctx, stationID, startYear, endYear)
	}

	c.log.Info("fetching daily data", "station", stationID, "start", startYear, "end", endYear)

	var fetched []models.DailyObservation
	offset := 0
	for {
		params := url.Values{}
		params.Set("f", "json")
		params.Set("CLIMATE_IDENTIFIER", stationID)
		params.Set("datetime", fmt.Sprintf("%d-01-01/%d-12-31", startYear, endYear))
		params.Set("limit", strconv.Itoa(c.pageLimit))
		params.Set("offset", strconv.Itoa(offset))

		var fc featureCollection
		if err := c.getJSON(ctx, collectionDaily, params, &fc); err != nil {
			return nil, fmt.Errorf("daily fetch for station %s failed: %w", stationID, err)
		}
		if len(fc.Features) == 0 {
			break
		}

		for _, f := range fc.Features {
			var props dailyProperties
			if err := json.Unmarshal(f.Properties, &props); err != nil {
				continue
			}
			fetched = append(fetched, models.DailyObservation{
				StationID: props.ClimateID,
				Date:      dateOf(props.LocalDate),
				Year:      props.LocalYear,
				Month:     props.LocalMon,
				Day:       props.LocalDay,
				TempMean:  props.TempMean,
				TempMin:   props.TempMin,
				TempMax:   props.TempMax,
				Precip:    props.Precip,
			})
		}

		offset += fc.NumberReturned
		if fc.NumberReturned == 0 || offset >= fc.NumberMatched {
			break
		}
	}

	if err := c.store.SaveDaily(ctx, fetched); err != nil {
		return nil, fmt.Errorf("caching daily data for station %s: %w", stationID, err)
	}

	// The cache merges new rows with whatever was already there and keeps
	// (station, date) unique, so read the combined range back out.
	return c.store.CachedDaily(ctx, stationID, startYear, endYear)
}

func (c *Client) getJSON(ctx context.Context, collection string, params url.Values, out interface{}) error {
	u := fmt.Sprintf("%s/collections/%s/items?%s", c.baseURL, collection, params.Encode())

	body, err := c.breaker.Execute(func() (interface{}, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, collection)
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(body.([]byte), out)
}

// yearOf pulls the leading year out of a GeoMet date string, 0 when absent.
func yearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return y
}

// dateOf normalises "2005-01-15 00:00:00" to "2005-01-15".
func dateOf(localDate string) string {
	if len(localDate) >= 10 {
		return localDate[:10]
	}
	return localDate
}
