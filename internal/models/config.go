package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Config struct {
	Location       string  `mapstructure:"location"`
	RadiusKm       float64 `mapstructure:"radius"`
	StartYear      int     `mapstructure:"start_year"`
	EndYear        int     `mapstructure:"end_year"` // 0 means current year
	ShowTrend      bool    `mapstructure:"trend"`
	ShowMedian     bool    `mapstructure:"median"`
	ShadeDeviation bool    `mapstructure:"shade_deviation"`
	NoAnomaly      bool    `mapstructure:"no_anomaly"`
	OutputPath     string  `mapstructure:"output"`
	LogLevel       string  `mapstructure:"log_level"`

	API     APIConfig     `mapstructure:"api"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Export  ExportConfig  `mapstructure:"export"`
	Demo    DemoConfig    `mapstructure:"demo"`
	Cloud   CloudConfig   `mapstructure:"cloud_storage"`
	Geocode GeocodeConfig `mapstructure:"geocode"`
}

type APIConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	UserAgent         string        `mapstructure:"user_agent"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	PageLimit         int           `mapstructure:"page_limit"`
}

type CacheConfig struct {
	Driver       string         `mapstructure:"driver"` // sqlite or postgres
	Path         string         `mapstructure:"path"`
	HTTPPath     string         `mapstructure:"http_path"`
	HTTPCacheTTL time.Duration  `mapstructure:"http_cache_ttl"`
	Postgres     DatabaseConfig `mapstructure:"postgres"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN renders a pgx-compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

type ExportConfig struct {
	Format          string `mapstructure:"format"` // console, csv, json or parquet
	OutputPath      string `mapstructure:"output_path"`
	KafkaEnabled    bool   `mapstructure:"kafka_enabled"`
	KafkaBrokerList string `mapstructure:"kafka_broker_list"`
	KafkaTopic      string `mapstructure:"kafka_topic"`
}

type DemoConfig struct {
	Seed     int64 `mapstructure:"seed"`
	Stations int   `mapstructure:"stations"`
}

type CloudConfig struct {
	Provider   string `mapstructure:"provider"`
	BucketName string `mapstructure:"bucket_name"`
	Region     string `mapstructure:"region"`
	Prefix     string `mapstructure:"prefix"`
}

type GeocodeConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// LoadConfig initializes and reads the configuration using Viper
func LoadConfig(cfgFile string) (*Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("climatrend")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("climatrend")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// A missing default config file is fine; flags and env cover everything.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	decoderConfigOption := viper.DecoderConfigOption(func(config *mapstructure.DecoderConfig) {
		config.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			config.DecodeHook,
			mapstructure.StringToTimeDurationHookFunc(),
		)
	})
	if err := viper.Unmarshal(&config, decoderConfigOption); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}

	if config.EndYear == 0 {
		config.EndYear = time.Now().Year()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("radius", 100.0)
	viper.SetDefault("start_year", 1900)
	viper.SetDefault("log_level", "info")

	viper.SetDefault("api.base_url", "https://api.weather.gc.ca")
	viper.SetDefault("api.user_agent", "climatrend/1.0")
	viper.SetDefault("api.timeout", "60s")
	viper.SetDefault("api.max_retries", 4)
	viper.SetDefault("api.requests_per_second", 4.0)
	viper.SetDefault("api.page_limit", 10000)

	viper.SetDefault("cache.driver", "sqlite")
	viper.SetDefault("cache.path", "climate_cache.db")
	viper.SetDefault("cache.http_path", "http_cache.db")
	viper.SetDefault("cache.http_cache_ttl", "168h")
	viper.SetDefault("cache.postgres.host", "localhost")
	viper.SetDefault("cache.postgres.port", "5432")
	viper.SetDefault("cache.postgres.sslmode", "disable")

	viper.SetDefault("export.format", "console")
	viper.SetDefault("export.output_path", "output")
	viper.SetDefault("export.kafka_broker_list", "localhost:9092")
	viper.SetDefault("export.kafka_topic", "climate_observations")

	viper.SetDefault("demo.seed", 42)
	viper.SetDefault("demo.stations", 5)
}

// Validate checks the fields every command relies on.
func (cfg *Config) Validate() error {
	if cfg.RadiusKm <= 0 {
		return fmt.Errorf("radius must be positive, got %v", cfg.RadiusKm)
	}
	if cfg.EndYear != 0 && cfg.StartYear > cfg.EndYear {
		return fmt.Errorf("start year %d is after end year %d", cfg.StartYear, cfg.EndYear)
	}
	switch cfg.Cache.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported cache driver: %s", cfg.Cache.Driver)
	}
	return nil
}

// ReportFileName derives the report path, defaulting to a slug of the location.
func (cfg *Config) ReportFileName() string {
	if cfg.OutputPath != "" {
		return cfg.OutputPath
	}
	slug := strings.ToLower(strings.TrimSpace(cfg.Location))
	slug = strings.ReplaceAll(slug, ",", "")
	slug = strings.ReplaceAll(slug, " ", "_")
	return fmt.Sprintf("climate_report_%s.html", slug)
}
