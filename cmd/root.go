package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cdurand/climatrend/internal/geocode"
	"github.com/cdurand/climatrend/internal/models"
	"github.com/cdurand/climatrend/internal/pipeline"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "climatrend [location]",
	Short: "Analyses long-term climate trends around a place",
	Long: `climatrend geocodes a place name, finds the climate stations around it,
downloads their historical daily observations from the MSC GeoMet API and
renders an HTML report with monthly temperature and precipitation charts,
long-term trends and anomaly highlighting.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup(args)
		if err != nil {
			return err
		}

		p, err := pipeline.New(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer p.Close()

		out, err := p.Run(cmd.Context())
		if err != nil {
			return describeFailure(err)
		}
		fmt.Printf("Report written to %s\n", out)
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./climatrend.yaml)")

	pf := rootCmd.PersistentFlags()
	pf.String("location", "", "Place name to analyse, e.g. \"De Bilt, Netherlands\"")
	pf.Float64("radius", 100, "Station search radius in kilometres")
	pf.Int("start-year", 1900, "First year of the analysis window")
	pf.Int("end-year", 0, "Last year of the analysis window (0 means current year)")
	pf.Bool("trend", false, "Draw a linear trendline per month")
	pf.Bool("median", false, "Draw the month's long-term median line")
	pf.Bool("shade-deviation", false, "Shade the deviation band around the trendline")
	pf.Bool("no-anomaly", false, "Disable anomaly colouring of data points")
	pf.String("output", "", "Report file path (default derives from the location)")
	pf.String("log-level", "info", "Log level: debug, info, warn or error")
	pf.String("cache-path", "climate_cache.db", "Structured cache database file")
	pf.Duration("http-cache-ttl", 168*time.Hour, "How long cached HTTP responses stay fresh")

	viper.BindPFlag("location", pf.Lookup("location"))
	viper.BindPFlag("radius", pf.Lookup("radius"))
	viper.BindPFlag("start_year", pf.Lookup("start-year"))
	viper.BindPFlag("end_year", pf.Lookup("end-year"))
	viper.BindPFlag("trend", pf.Lookup("trend"))
	viper.BindPFlag("median", pf.Lookup("median"))
	viper.BindPFlag("shade_deviation", pf.Lookup("shade-deviation"))
	viper.BindPFlag("no_anomaly", pf.Lookup("no-anomaly"))
	viper.BindPFlag("output", pf.Lookup("output"))
	viper.BindPFlag("log_level", pf.Lookup("log-level"))
	viper.BindPFlag("cache.path", pf.Lookup("cache-path"))
	viper.BindPFlag("cache.http_cache_ttl", pf.Lookup("http-cache-ttl"))
}

func initConfig() {
	// .env is optional; real environments set variables directly.
	godotenv.Load()
}

// setup loads config, applies the positional location and builds the logger.
func setup(args []string) (*models.Config, *slog.Logger, error) {
	if len(args) == 1 {
		viper.Set("location", args[0])
	}

	cfg, err := models.LoadConfig(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if cfg.Location == "" {
		return nil, nil, errors.New("a location is required, e.g. climatrend \"De Bilt, Netherlands\"")
	}

	return cfg, newLogger(cfg.LogLevel), nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      lvl,
		TimeFormat: time.Kitchen,
	}))
}

// describeFailure turns the known failure modes into actionable messages.
func describeFailure(err error) error {
	switch {
	case errors.Is(err, geocode.ErrNotFound):
		return fmt.Errorf("%w; try a more specific name like \"City, Country\"", err)
	case errors.Is(err, pipeline.ErrNoStations):
		return fmt.Errorf("%w; try a larger --radius", err)
	case errors.Is(err, pipeline.ErrNoData):
		return fmt.Errorf("%w; try a wider --start-year/--end-year window", err)
	}
	return err
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
