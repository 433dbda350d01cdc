// Package pipeline runs the tool end to end: geocode the location, find
// stations in range, fetch (through the cache) their daily observations,
// aggregate and render the report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/cdurand/climatrend/internal/cache"
	"github.com/cdurand/climatrend/internal/cloudwriter"
	"github.com/cdurand/climatrend/internal/geocode"
	"github.com/cdurand/climatrend/internal/models"
	"github.com/cdurand/climatrend/internal/msc"
	"github.com/cdurand/climatrend/internal/report"
)

var (
	// ErrNoStations means the radius around the location holds no stations.
	ErrNoStations = errors.New("no stations found in radius")
	// ErrNoData means stations exist but none reported in the year range.
	ErrNoData = errors.New("no observations found for year range")
)

// StationSource is the climate-data client the pipeline drives; it is an
// interface so tests can run the pipeline without the network.
type StationSource interface {
	FindStationsNear(ctx context.Context, loc models.Location, radiusKm float64) ([]models.Station, error)
	FetchStationDaily(ctx context.Context, stationID string, startYear, endYear int) ([]models.DailyObservation, error)
}

type Pipeline struct {
	cfg      *models.Config
	log      *slog.Logger
	resolver geocode.Resolver
	source   StationSource

	store     cache.Store
	httpCache *cache.HTTPCache
	progress  bool
}

// New wires the cache, client and geocoder from config.
func New(ctx context.Context, cfg *models.Config, log *slog.Logger) (*Pipeline, error) {
	var (
		store cache.Store
		err   error
	)
	switch cfg.Cache.Driver {
	case "postgres":
		store, err = cache.NewPostgresStore(ctx, cfg.Cache.Postgres)
	default:
		store, err = cache.NewSQLiteStore(cfg.Cache.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}

	httpCache, err := cache.NewHTTPCache(cfg.Cache.HTTPPath, cfg.Cache.HTTPCacheTTL)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("opening http cache: %w", err)
	}

	var resolver geocode.Resolver
	if cfg.Geocode.BaseURL != "" {
		resolver = geocode.New(cfg.Geocode.BaseURL)
	} else {
		resolver = geocode.New()
	}

	return &Pipeline{
		cfg:       cfg,
		log:       log,
		resolver:  resolver,
		source:    msc.NewClient(cfg.API, store, httpCache, log),
		store:     store,
		httpCache: httpCache,
		progress:  true,
	}, nil
}

// NewWithComponents builds a pipeline around explicit collaborators.
func NewWithComponents(cfg *models.Config, log *slog.Logger, resolver geocode.Resolver, source StationSource) *Pipeline {
	return &Pipeline{cfg: cfg, log: log, resolver: resolver, source: source}
}

func (p *Pipeline) Close() error {
	var errs []error
	if p.store != nil {
		errs = append(errs, p.store.Close())
	}
	if p.httpCache != nil {
		errs = append(errs, p.httpCache.Close())
	}
	return errors.Join(errs...)
}

// Stations geocodes the configured location and returns the stations in range.
func (p *Pipeline) Stations(ctx context.Context) (models.Location, []models.Station, error) {
	loc, err := p.resolver.Lookup(p.cfg.Location)
	if err != nil {
		return models.Location{}, nil, err
	}
	p.log.Info("location resolved", "name", loc.Name, "lat", loc.Lat, "lon", loc.Lon)

	stations, err := p.source.FindStationsNear(ctx, loc, p.cfg.RadiusKm)
	if err != nil {
		return loc, nil, err
	}
	if len(stations) == 0 {
		return loc, nil, fmt.Errorf("%w (radius %.0f km around %s)", ErrNoStations, p.cfg.RadiusKm, p.cfg.Location)
	}
	return loc, stations, nil
}

// Observations runs the fetch stage for every station in range.
func (p *Pipeline) Observations(ctx context.Context) (models.Location, []models.Station, []models.DailyObservation, error) {
	loc, stations, err := p.Stations(ctx)
	if err != nil {
		return loc, nil, nil, err
	}

	var bar *progressbar.ProgressBar
	if p.progress {
		bar = progressbar.Default(int64(len(stations)), "fetching daily data")
	}

	var all []models.DailyObservation
	for _, st := range stations {
		obs, err := p.source.FetchStationDaily(ctx, st.ID, p.cfg.StartYear, p.cfg.EndYear)
		if err != nil {
			return loc, stations, nil, fmt.Errorf("station %s: %w", st.ID, err)
		}
		all = append(all, obs...)
		if bar != nil {
			bar.Add(1)
		}
	}

	if len(all) == 0 {
		return loc, stations, nil, fmt.Errorf("%w (%d-%d)", ErrNoData, p.cfg.StartYear, p.cfg.EndYear)
	}
	return loc, stations, all, nil
}

// Run produces the report and returns its path.
func (p *Pipeline) Run(ctx context.Context) (string, error) {
	loc, stations, obs, err := p.Observations(ctx)
	if err != nil {
		return "", err
	}

	data := report.Data{
		Location:       loc,
		RadiusKm:       p.cfg.RadiusKm,
		StartYear:      p.cfg.StartYear,
		EndYear:        p.cfg.EndYear,
		Stations:       stations,
		Observations:   obs,
		ShowTrend:      p.cfg.ShowTrend,
		ShowMedian:     p.cfg.ShowMedian,
		ShadeDeviation: p.cfg.ShadeDeviation,
		ShowAnomaly:    p.cfg.ShadeDeviation && !p.cfg.NoAnomaly,
		GeneratedAt:    time.Now(),
	}

	out := p.cfg.ReportFileName()
	if err := report.WriteFile(out, data); err != nil {
		return "", err
	}
	p.log.Info("report written", "path", out, "stations", len(stations), "observations", len(obs))

	if p.cfg.Cloud.Provider == "s3" && p.cfg.Cloud.BucketName != "" {
		if err := p.uploadReport(out); err != nil {
			return out, fmt.Errorf("report written but upload failed: %w", err)
		}
	}
	return out, nil
}

func (p *Pipeline) uploadReport(localPath string) error {
	factory, err := cloudwriter.NewS3WriterFactory(p.cfg.Cloud.Region)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}

	objectPath := path.Join(p.cfg.Cloud.Prefix, path.Base(localPath))
	w, err := factory.NewWriter(p.cfg.Cloud.BucketName, objectPath, "text/html")
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	p.log.Info("report uploaded", "bucket", p.cfg.Cloud.BucketName, "key", objectPath)
	return nil
}
