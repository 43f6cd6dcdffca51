// Command assetgc reconciles the remote photo store against the archived
// listing set without running a harvest. Useful after restoring the archive
// or when a run was interrupted mid-sync.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/yourorg/listing-harvester/internal/assetsync"
	"github.com/yourorg/listing-harvester/internal/env"
	"github.com/yourorg/listing-harvester/internal/logger"
	"github.com/yourorg/listing-harvester/internal/store"
)

func main() {
	_ = godotenv.Load()
	log := logger.New("assetgc")

	dsn := env.Must("PG_DSN")
	sftpAddr := env.Must("SFTP_ADDR")
	sftpUser := env.Must("SFTP_USER")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := store.Open(ctx, dsn)
	if err != nil {
		log.Error("postgres open failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer pg.Close()

	current, err := pg.ListPhotoAssets(ctx)
	if err != nil {
		log.Error("archived photo set unavailable", slog.Any("err", err))
		os.Exit(1)
	}

	remote, err := assetsync.DialSFTP(assetsync.SFTPConfig{
		Addr:     sftpAddr,
		User:     sftpUser,
		Password: env.Get("SFTP_PASSWORD", ""),
	})
	if err != nil {
		log.Error("sftp dial failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer remote.Close()

	eng := assetsync.NewEngine(remote, assetsync.EngineConfig{
		Dir:         env.Get("ASSET_DIR", "photos"),
		Workers:     env.GetInt("ASSET_WORKERS", 4),
		DownloadRPS: env.GetFloat("ASSET_RPS", 0),
	}, log)

	stats, err := eng.Sync(ctx, current)
	if err != nil {
		log.Error("reconcile failed", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("reconcile complete",
		slog.Int("archived", len(current)),
		slog.Int("remote", stats.RemoteCount),
		slog.Int("uploaded", stats.Uploaded),
		slog.Int("deleted", stats.Deleted),
		slog.Int("skipped", stats.SkippedUpload),
		slog.Int("failed_deletes", stats.FailedDelete),
	)
}
