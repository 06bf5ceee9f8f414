package ops

import (
	"encoding/json"
	"os"
	"time"

	"github.com/yanun0323/errors"

	"main/internal/store"
)

const (
	defaultMatchIntervalSeconds     = 3
	defaultPriceFeedIntervalSeconds = 5
	defaultMaxPriceMovePercent      = 0.02
)

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	MatchIntervalSeconds     int             `json:"matchIntervalSeconds"`
	PriceFeedIntervalSeconds int             `json:"priceFeedIntervalSeconds"`
	MaxPriceMovePercent      float64         `json:"maxPriceMovePercent"`
	Postgres                 PostgresConfig  `json:"postgres"`
	Profiling                ProfilingConfig `json:"profiling"`
}

// PostgresConfig describes the ledger store connection.
type PostgresConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"sslMode"`
}

// ProfilingConfig enables continuous profiling.
type ProfilingConfig struct {
	Enabled       bool   `json:"enabled"`
	ServerAddress string `json:"serverAddress"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	MatchInterval       time.Duration
	PriceFeedInterval   time.Duration
	MaxPriceMovePercent float64
	Postgres            store.PostgresOption
	Profiling           ProfilingConfig
}

// Load reads a JSON config file and resolves defaults. An empty path yields
// the defaults alone.
func Load(path string) (Loaded, error) {
	var cfg FileConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Loaded{}, errors.Wrap(err, "read config")
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Loaded{}, errors.Wrap(err, "parse config")
		}
	}
	return resolve(cfg), nil
}

func resolve(cfg FileConfig) Loaded {
	if cfg.MatchIntervalSeconds <= 0 {
		cfg.MatchIntervalSeconds = defaultMatchIntervalSeconds
	}
	if cfg.PriceFeedIntervalSeconds <= 0 {
		cfg.PriceFeedIntervalSeconds = defaultPriceFeedIntervalSeconds
	}
	if cfg.MaxPriceMovePercent <= 0 {
		cfg.MaxPriceMovePercent = defaultMaxPriceMovePercent
	}
	return Loaded{
		MatchInterval:       time.Duration(cfg.MatchIntervalSeconds) * time.Second,
		PriceFeedInterval:   time.Duration(cfg.PriceFeedIntervalSeconds) * time.Second,
		MaxPriceMovePercent: cfg.MaxPriceMovePercent,
		Postgres: store.PostgresOption{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			Database: cfg.Postgres.Database,
			SSLMode:  cfg.Postgres.SSLMode,
		},
		Profiling: cfg.Profiling,
	}
}
