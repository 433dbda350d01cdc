package cache

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/cdurand/climatrend/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS stations (
    id TEXT PRIMARY KEY,
    name TEXT,
    latitude REAL,
    longitude REAL,
    last_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS daily_data (
    station_id TEXT,
    date TEXT NOT NULL,
    year INTEGER,
    month INTEGER,
    day INTEGER,
    temp_mean REAL,
    temp_min REAL,
    temp_max REAL,
    precip REAL,
    PRIMARY KEY (station_id, date)
);
CREATE INDEX IF NOT EXISTS idx_daily_station_year ON daily_data (station_id, year);
`

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the cache database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening cache database: %w", err)
	}
	// modernc's driver serializes access; a single connection avoids
	// SQLITE_BUSY on concurrent statements.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initialising cache schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveStations(ctx context.Context, stations []models.Station) error {
	if len(stations) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO stations (id, name, latitude, longitude)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            name=excluded.name,
            latitude=excluded.latitude,
            longitude=excluded.longitude,
            last_seen=CURRENT_TIMESTAMP`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, st := range stations {
		if _, err := stmt.ExecContext(ctx, st.ID, st.Name, st.Latitude, st.Longitude); err != nil {
			return fmt.Errorf("failed to upsert station %s: %w", st.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) SaveDaily(ctx context.Context, obs []models.DailyObservation) error {
	if len(obs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO daily_data
        (station_id, date, year, month, day, temp_mean, temp_min, temp_max, precip)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(station_id, date) DO UPDATE SET
            temp_mean=excluded.temp_mean,
            temp_min=excluded.temp_min,
            temp_max=excluded.temp_max,
            precip=excluded.precip`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, o := range obs {
		if o.Date == "" {
			return fmt.Errorf("observation for station %s has an empty date", o.StationID)
		}
		_, err := stmt.ExecContext(ctx,
			o.StationID, o.Date, o.Year, o.Month, o.Day,
			nullable(o.TempMean), nullable(o.TempMin), nullable(o.TempMax), nullable(o.Precip))
		if err != nil {
			return fmt.Errorf("failed to upsert observation %s/%s: %w", o.StationID, o.Date, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) CachedDaily(ctx context.Context, stationID string, startYear, endYear int) ([]models.DailyObservation, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT station_id, date, year, month, day, temp_mean, temp_min, temp_max, precip
        FROM daily_data
        WHERE station_id = ? AND year BETWEEN ? AND ?
        ORDER BY date`, stationID, startYear, endYear)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var obs []models.DailyObservation
	for rows.Next() {
		var o models.DailyObservation
		var tMean, tMin, tMax, pr sql.NullFloat64
		if err := rows.Scan(&o.StationID, &o.Date, &o.Year, &o.Month, &o.Day, &tMean, &tMin, &tMax, &pr); err != nil {
			return nil, err
		}
		o.TempMean = floatPtr(tMean)
		o.TempMin = floatPtr(tMin)
		o.TempMax = floatPtr(tMax)
		o.Precip = floatPtr(pr)
		obs = append(obs, o)
	}
	return obs, rows.Err()
}

func (s *SQLiteStore) CoveredYears(ctx context.Context, stationID string, startYear, endYear int) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT DISTINCT year FROM daily_data
        WHERE station_id = ? AND year BETWEEN ? AND ?
        ORDER BY year`, stationID, startYear, endYear)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var years []int
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, err
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullable(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
