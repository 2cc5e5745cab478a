package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SweeperConfig configures the expiration sweep job, read from a yaml
// file so the job can be scheduled independently of the API server.
type SweeperConfig struct {
	Database struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"`
	BatchSize       int           `yaml:"batch_size"`
}

func LoadSweeper(path string) (*SweeperConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg SweeperConfig
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.IntervalSeconds <= 0 {
		cfg.IntervalSeconds = 60
	}
	cfg.Interval = time.Duration(cfg.IntervalSeconds) * time.Second

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = os.Getenv("DATABASE_URL")
	}

	return &cfg, nil
}
