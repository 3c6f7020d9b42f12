package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"

	maxGeoTimeout = 2 * time.Second
)

// Config is read from LINKPULSE_* environment variables.
type Config struct {
	Port    string `env:"PORT" envDefault:"8080"`
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	Storage string `env:"STORAGE" envDefault:"sqlite"`
	DBPath  string `env:"DB_PATH" envDefault:"./linkpulse.db"`

	GeoIPPath    string        `env:"GEOIP_PATH"`
	GeoAPIURL    string        `env:"GEO_API_URL"`
	GeoTimeout   time.Duration `env:"GEO_TIMEOUT" envDefault:"1500ms"`
	GeoCacheTTL  time.Duration `env:"GEO_CACHE_TTL" envDefault:"1h"`
	GeoCacheSize int           `env:"GEO_CACHE_SIZE" envDefault:"10000"`

	CacheSize      int `env:"CACHE_SIZE" envDefault:"10000"`
	BufferSize     int `env:"BUFFER_SIZE" envDefault:"50000"`
	CodeLength     int `env:"CODE_LENGTH" envDefault:"7"`
	MinAliasLength int `env:"MIN_ALIAS_LENGTH" envDefault:"3"`
	Retention      int `env:"RETENTION" envDefault:"10000"`

	CreateRPS   float64 `env:"CREATE_RPS" envDefault:"5"`
	CreateBurst int     `env:"CREATE_BURST" envDefault:"10"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	BloomCapacity uint    `env:"BLOOM_CAPACITY" envDefault:"1000000"`
	BloomFPRate   float64 `env:"BLOOM_FP_RATE" envDefault:"0.001"`
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load() // a missing .env is normal outside development

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "LINKPULSE_"}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Storage != StorageSQLite && c.Storage != StorageMemory {
		errs = append(errs, fmt.Errorf("LINKPULSE_STORAGE must be %q or %q", StorageSQLite, StorageMemory))
	}
	if c.GeoTimeout <= 0 || c.GeoTimeout > maxGeoTimeout {
		errs = append(errs, fmt.Errorf("LINKPULSE_GEO_TIMEOUT must be in (0, %s]", maxGeoTimeout))
	}
	for name, v := range map[string]int{
		"LINKPULSE_GEO_CACHE_SIZE": c.GeoCacheSize,
		"LINKPULSE_CACHE_SIZE":     c.CacheSize,
		"LINKPULSE_BUFFER_SIZE":    c.BufferSize,
		"LINKPULSE_CODE_LENGTH":    c.CodeLength,
		"LINKPULSE_CREATE_BURST":   c.CreateBurst,
	} {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.MinAliasLength < 2 {
		errs = append(errs, errors.New("LINKPULSE_MIN_ALIAS_LENGTH must be at least 2"))
	}
	if c.Retention < 0 {
		errs = append(errs, errors.New("LINKPULSE_RETENTION must not be negative"))
	}
	if c.CreateRPS <= 0 {
		errs = append(errs, errors.New("LINKPULSE_CREATE_RPS must be positive"))
	}
	if c.BloomFPRate <= 0 || c.BloomFPRate >= 1 {
		errs = append(errs, errors.New("LINKPULSE_BLOOM_FP_RATE must be in (0, 1)"))
	}
	return errors.Join(errs...)
}

// Durable reports whether a SQLite store should be opened.
func (c *Config) Durable() bool {
	return c.Storage == StorageSQLite
}
