package config

import (
	"fmt"
	"time"

	"github.com/yourorg/listing-harvester/internal/env"
)

// Config is the full runtime configuration, read once at startup from the
// environment.
type Config struct {
	// Partition selection.
	States       []string
	ZipCSVPath   string
	CountyFilter string

	// Upstream fetch.
	ProxyURL     string
	UserAgent    string
	PageSize     int
	Retries      int
	BackoffBase  time.Duration
	FetchTimeout time.Duration
	RequestRPS   float64

	// Pipeline.
	Workers          int
	Cooldown         time.Duration
	PartitionTimeout time.Duration
	Interval         time.Duration // 0 means run once and exit

	// Remote photo store. Empty SFTPAddr disables asset sync.
	SFTPAddr     string
	SFTPUser     string
	SFTPPassword string
	AssetDir     string
	AssetWorkers int
	AssetRPS     float64

	// Archive sink. Empty DSN disables it.
	PostgresDSN string

	// Partition cache. Empty addr disables it.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	GeoCacheTTL   time.Duration

	// Status server.
	StatusAddr string
}

func Load() (Config, error) {
	cfg := Config{
		States:       env.GetList("HARVEST_STATES"),
		ZipCSVPath:   env.Get("ZIP_CSV_PATH", "data/uszips.csv"),
		CountyFilter: env.Get("COUNTY_FILTER", ""),

		ProxyURL:     env.Get("PROXY_URL", ""),
		UserAgent:    env.Get("USER_AGENT", ""),
		PageSize:     env.GetInt("PAGE_SIZE", 200),
		Retries:      env.GetInt("FETCH_RETRIES", 3),
		BackoffBase:  env.GetDuration("FETCH_BACKOFF", 500*time.Millisecond),
		FetchTimeout: env.GetDuration("FETCH_TIMEOUT", 30*time.Second),
		RequestRPS:   env.GetFloat("REQUEST_RPS", 0),

		Workers:          env.GetInt("WORKERS", 1),
		Cooldown:         env.GetDuration("PARTITION_COOLDOWN", 10*time.Second),
		PartitionTimeout: env.GetDuration("PARTITION_TIMEOUT", 0),
		Interval:         env.GetDuration("HARVEST_INTERVAL", 0),

		SFTPAddr:     env.Get("SFTP_ADDR", ""),
		SFTPUser:     env.Get("SFTP_USER", ""),
		SFTPPassword: env.Get("SFTP_PASSWORD", ""),
		AssetDir:     env.Get("ASSET_DIR", "photos"),
		AssetWorkers: env.GetInt("ASSET_WORKERS", 4),
		AssetRPS:     env.GetFloat("ASSET_RPS", 0),

		PostgresDSN: env.Get("PG_DSN", ""),

		RedisAddr:     env.Get("REDIS_ADDR", ""),
		RedisPassword: env.Get("REDIS_PASSWORD", ""),
		RedisDB:       env.GetInt("REDIS_DB", 0),
		GeoCacheTTL:   env.GetDuration("GEO_CACHE_TTL", 24*time.Hour),

		StatusAddr: env.Get("STATUS_ADDR", ":8080"),
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if len(c.States) == 0 {
		return fmt.Errorf("config: HARVEST_STATES is required")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("config: PAGE_SIZE must be positive, got %d", c.PageSize)
	}
	if c.Retries < 0 {
		return fmt.Errorf("config: FETCH_RETRIES must not be negative, got %d", c.Retries)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("config: WORKERS must be positive, got %d", c.Workers)
	}
	if c.SFTPAddr != "" && c.SFTPUser == "" {
		return fmt.Errorf("config: SFTP_USER is required when SFTP_ADDR is set")
	}
	return nil
}

// SyncEnabled reports whether a remote photo store is configured.
func (c Config) SyncEnabled() bool { return c.SFTPAddr != "" }

// ArchiveEnabled reports whether the Postgres sink is configured.
func (c Config) ArchiveEnabled() bool { return c.PostgresDSN != "" }
