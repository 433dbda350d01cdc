package models

import (
	"fmt"
	"math"
	"time"
)

const earthRadiusKm = 6371.0

// Location is a geocoded place.
type Location struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat" parquet:"name=lat, type=DOUBLE"`
	Lon  float64 `json:"lon" parquet:"name=lon, type=DOUBLE"`
}

// Valid reports whether the coordinates are inside the usual ranges.
func (l Location) Valid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lon >= -180 && l.Lon <= 180
}

// Station is a fixed climate observation point, ranked by distance from the
// query location.
type Station struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	DistanceKm float64 `json:"distance_km"`
	FirstYear  int     `json:"first_year,omitempty"`
	LastYear   int     `json:"last_year,omitempty"`
}

// DailyObservation is one station-day of measurements. Measurement fields are
// pointers because any of them can be missing for a given day.
type DailyObservation struct {
	StationID string   `json:"station_id"`
	Date      string   `json:"date"` // YYYY-MM-DD
	Year      int      `json:"year"`
	Month     int      `json:"month"`
	Day       int      `json:"day"`
	TempMean  *float64 `json:"temp_mean"`
	TempMin   *float64 `json:"temp_min"`
	TempMax   *float64 `json:"temp_max"`
	Precip    *float64 `json:"precip"`
}

// Key uniquely identifies an observation within the cache.
func (o DailyObservation) Key() string {
	return o.StationID + "|" + o.Date
}

// ObservationEvent is the envelope written by the exporter.
type ObservationEvent struct {
	EventID   string    `json:"event_id"`
	EmittedAt time.Time `json:"emitted_at"`
	StationID string    `json:"station_id"`
	Date      string    `json:"date"`
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Day       int       `json:"day"`
	TempMean  *float64  `json:"temp_mean"`
	TempMin   *float64  `json:"temp_min"`
	TempMax   *float64  `json:"temp_max"`
	Precip    *float64  `json:"precip"`
}

// ObservationRecord is the parquet projection of a daily observation.
type ObservationRecord struct {
	EventID   string   `parquet:"name=event_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	StationID string   `parquet:"name=station_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Date      string   `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8"`
	Year      int64    `parquet:"name=year, type=INT64"`
	Month     int64    `parquet:"name=month, type=INT64"`
	Day       int64    `parquet:"name=day, type=INT64"`
	TempMean  *float64 `parquet:"name=temp_mean, type=DOUBLE"`
	TempMin   *float64 `parquet:"name=temp_min, type=DOUBLE"`
	TempMax   *float64 `parquet:"name=temp_max, type=DOUBLE"`
	Precip    *float64 `parquet:"name=precip, type=DOUBLE"`
}

// Record converts an event into its parquet projection.
func (e ObservationEvent) Record() ObservationRecord {
	return ObservationRecord{
		EventID:   e.EventID,
		StationID: e.StationID,
		Date:      e.Date,
		Year:      int64(e.Year),
		Month:     int64(e.Month),
		Day:       int64(e.Day),
		TempMean:  e.TempMean,
		TempMin:   e.TempMin,
		TempMax:   e.TempMax,
		Precip:    e.Precip,
	}
}

// HaversineKm returns the great-circle distance between two points in km.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	rlat1 := degreesToRadians(lat1)
	rlon1 := degreesToRadians(lon1)
	rlat2 := degreesToRadians(lat2)
	rlon2 := degreesToRadians(lon2)

	dlat := rlat2 - rlat1
	dlon := rlon2 - rlon1
	a := math.Pow(math.Sin(dlat/2), 2) + math.Cos(rlat1)*math.Cos(rlat2)*math.Pow(math.Sin(dlon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func degreesToRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// BoundingBox returns a lon/lat bbox string ("minLon,minLat,maxLon,maxLat")
// that encloses a circle of radiusKm around the point. One degree of latitude
// is about 111 km; longitude shrinks with the cosine of the latitude.
func BoundingBox(lat, lon, radiusKm float64) string {
	latBuf := radiusKm / 111.0
	lonBuf := radiusKm / (111.0 * math.Cos(degreesToRadians(lat)))
	return fmt.Sprintf("%f,%f,%f,%f", lon-lonBuf, lat-latBuf, lon+lonBuf, lat+latBuf)
}
