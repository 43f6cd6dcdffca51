package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/yourorg/listing-harvester/internal/assetsync"
	"github.com/yourorg/listing-harvester/internal/config"
	"github.com/yourorg/listing-harvester/internal/events"
	"github.com/yourorg/listing-harvester/internal/geo"
	"github.com/yourorg/listing-harvester/internal/logger"
	"github.com/yourorg/listing-harvester/internal/pipeline"
	"github.com/yourorg/listing-harvester/internal/progress"
	"github.com/yourorg/listing-harvester/internal/redisx"
	"github.com/yourorg/listing-harvester/internal/store"
	"github.com/yourorg/listing-harvester/realtor"
)

func main() {
	_ = godotenv.Load()
	log := logger.New("harvester")

	cfg, err := config.Load()
	if err != nil {
		log.Error("invalid configuration", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil && err != context.Canceled {
		log.Error("harvester exited with error", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	client, err := realtor.NewClient(realtor.ClientConfig{
		ProxyURL:          cfg.ProxyURL,
		UserAgent:         cfg.UserAgent,
		Retries:           cfg.Retries,
		BackoffBase:       cfg.BackoffBase,
		Timeout:           cfg.FetchTimeout,
		PageSize:          cfg.PageSize,
		RequestsPerSecond: cfg.RequestRPS,
	}, log)
	if err != nil {
		return err
	}

	var src geo.Source = geo.NewCSVSource(cfg.ZipCSVPath)
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer rdb.Close()
		if err := rdb.Ping(ctx); err != nil {
			log.Warn("redis unreachable, partition cache disabled", slog.Any("err", err))
		} else {
			src = geo.NewCachedSource(src, rdb, cfg.GeoCacheTTL, log)
		}
	}

	var archive pipeline.Archiver
	if cfg.ArchiveEnabled() {
		pg, err := store.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer pg.Close()
		if err := pg.Migrate(ctx); err != nil {
			return err
		}
		archive = pg
	}

	var syncer pipeline.Syncer
	var remote *assetsync.SFTPStore
	if cfg.SyncEnabled() {
		remote, err = assetsync.DialSFTP(assetsync.SFTPConfig{
			Addr:     cfg.SFTPAddr,
			User:     cfg.SFTPUser,
			Password: cfg.SFTPPassword,
		})
		if err != nil {
			return err
		}
		defer remote.Close()
		syncer = assetsync.NewEngine(remote, assetsync.EngineConfig{
			Dir:         cfg.AssetDir,
			Workers:     cfg.AssetWorkers,
			DownloadRPS: cfg.AssetRPS,
		}, log)
	}

	pub := events.NewInMemory(0)
	tracker := &progress.Tracker{Pub: pub}
	go tracker.Run(ctx)

	srv := &http.Server{Addr: cfg.StatusAddr, Handler: BuildRouter(tracker)}
	go func() {
		log.Info("status server listening", slog.String("addr", cfg.StatusAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("status server failed", slog.Any("err", err))
		}
	}()
	defer func() {
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	orch := &pipeline.Orchestrator{
		Fetcher: client,
		Syncer:  syncer,
		Archive: archive,
		Pub:     pub,
		Log:     log,
		Config: pipeline.Config{
			Workers:          cfg.Workers,
			Cooldown:         cfg.Cooldown,
			PartitionTimeout: cfg.PartitionTimeout,
		},
	}

	harvest := func() error {
		partitions, err := geo.Enumerate(ctx, src, cfg.States, cfg.CountyFilter)
		if err != nil {
			return err
		}
		_, err = orch.Run(ctx, partitions)
		return err
	}

	if cfg.Interval <= 0 {
		return harvest()
	}

	// Interval mode runs immediately, then on every tick until shutdown.
	if err := harvest(); err != nil && ctx.Err() == nil {
		log.Error("harvest run failed", slog.Any("err", err))
	}
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := harvest(); err != nil && ctx.Err() == nil {
				log.Error("harvest run failed", slog.Any("err", err))
			}
		}
	}
}
