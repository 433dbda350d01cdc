package cache

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cdurand/climatrend/internal/models"
)

// PostgresStore is the opt-in shared-cache backend for teams that point
// several machines at one database. Schema matches the SQLite layout.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, cfg models.DatabaseConfig) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

func (p *PostgresStore) initSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS stations (
            id TEXT PRIMARY KEY,
            name TEXT,
            latitude DOUBLE PRECISION,
            longitude DOUBLE PRECISION,
            last_seen TIMESTAMPTZ DEFAULT now()
        );
        CREATE TABLE IF NOT EXISTS daily_data (
            station_id TEXT,
            date TEXT NOT NULL,
            year INTEGER,
            month INTEGER,
            day INTEGER,
            temp_mean DOUBLE PRECISION,
            temp_min DOUBLE PRECISION,
            temp_max DOUBLE PRECISION,
            precip DOUBLE PRECISION,
            PRIMARY KEY (station_id, date)
        );
        CREATE INDEX IF NOT EXISTS idx_daily_station_year ON daily_data (station_id, year)`)
	if err != nil {
		return fmt.Errorf("error initialising cache schema: %w", err)
	}
	return nil
}

func (p *PostgresStore) SaveStations(ctx context.Context, stations []models.Station) error {
	if len(stations) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, st := range stations {
		batch.Queue(`
            INSERT INTO stations (id, name, latitude, longitude)
            VALUES ($1, $2, $3, $4)
            ON CONFLICT (id) DO UPDATE SET
                name=excluded.name,
                latitude=excluded.latitude,
                longitude=excluded.longitude,
                last_seen=now()`,
			st.ID, st.Name, st.Latitude, st.Longitude)
	}
	br := p.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range stations {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to upsert station: %w", err)
		}
	}
	return nil
}

func (p *PostgresStore) SaveDaily(ctx context.Context, obs []models.DailyObservation) error {
	if len(obs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, o := range obs {
		if o.Date == "" {
			return fmt.Errorf("observation for station %s has an empty date", o.StationID)
		}
		batch.Queue(`
            INSERT INTO daily_data
            (station_id, date, year, month, day, temp_mean, temp_min, temp_max, precip)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
            ON CONFLICT (station_id, date) DO UPDATE SET
                temp_mean=excluded.temp_mean,
                temp_min=excluded.temp_min,
                temp_max=excluded.temp_max,
                precip=excluded.precip`,
			o.StationID, o.Date, o.Year, o.Month, o.Day,
			o.TempMean, o.TempMin, o.TempMax, o.Precip)
	}
	br := p.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range obs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to upsert observation: %w", err)
		}
	}
	return nil
}

func (p *PostgresStore) CachedDaily(ctx context.Context, stationID string, startYear, endYear int) ([]models.DailyObservation, error) {
	rows, err := p.pool.Query(ctx, `
        SELECT station_id, date, year, month, day, temp_mean, temp_min, temp_max, precip
        FROM daily_data
        WHERE station_id = $1 AND year BETWEEN $2 AND $3
        ORDER BY date`, stationID, startYear, endYear)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var obs []models.DailyObservation
	for rows.Next() {
		var o models.DailyObservation
		if err := rows.Scan(&o.StationID, &o.Date, &o.Year, &o.Month, &o.Day,
			&o.TempMean, &o.TempMin, &o.TempMax, &o.Precip); err != nil {
			return nil, err
		}
		obs = append(obs, o)
	}
	return obs, rows.Err()
}

func (p *PostgresStore) CoveredYears(ctx context.Context, stationID string, startYear, endYear int) ([]int, error) {
	rows, err := p.pool.Query(ctx, `
        SELECT DISTINCT year FROM daily_data
        WHERE station_id = $1 AND year BETWEEN $2 AND $3
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

func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}
