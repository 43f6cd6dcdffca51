package assetsync

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/yourorg/listing-harvester/realtor"
)

const maxImageBytes = 16 << 20

// EngineConfig tunes the apply phase.
type EngineConfig struct {
	Dir            string // remote directory holding the photo set
	Workers        int    // concurrent uploads, default 4
	RetriesPerItem int    // upload attempts per asset before skipping, default 3
	RequestTimeout time.Duration
	DownloadRPS    float64 // bound on image downloads, 0 = unlimited
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.RetriesPerItem <= 0 {
		c.RetriesPerItem = 3
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	return c
}

// Stats summarizes one apply pass.
type Stats struct {
	RemoteCount   int
	Uploaded      int
	Deleted       int
	SkippedUpload int
	FailedDelete  int
}

// Engine reconciles the remote photo inventory against the current set.
type Engine struct {
	store   Store
	cfg     EngineConfig
	http    *retryablehttp.Client
	limiter *rate.Limiter
	log     *slog.Logger
}

func NewEngine(store Store, cfg EngineConfig, log *slog.Logger) *Engine {
	cfg = cfg.withDefaults()
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 250 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = cfg.RequestTimeout
	rc.Logger = nil
	var limiter *rate.Limiter
	if cfg.DownloadRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.DownloadRPS), 1)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{store: store, cfg: cfg, http: rc, limiter: limiter, log: log}
}

// Sync lists the remote inventory, reconciles it against the current photo
// set, and applies the resulting diff. Running it twice with an unchanged
// photo set makes the second pass a no-op.
func (e *Engine) Sync(ctx context.Context, current []realtor.PhotoAsset) (Stats, error) {
	remote, err := e.store.List(ctx, e.cfg.Dir)
	if err != nil {
		return Stats{}, fmt.Errorf("list remote inventory: %w", err)
	}
	diff := Reconcile(remote, current)
	stats := e.Apply(ctx, diff)
	stats.RemoteCount = len(remote)
	return stats, nil
}

// Apply uploads missing assets through a bounded worker pool, then removes
// orphans. Per-asset failures are logged and skipped; nothing here aborts the
// run.
func (e *Engine) Apply(ctx context.Context, diff Diff) Stats {
	var (
		mu    sync.Mutex
		stats Stats
	)

	jobs := make(chan realtor.PhotoAsset)
	var wg sync.WaitGroup
	for i := 0; i < e.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for asset := range jobs {
				err := e.transfer(ctx, asset)
				mu.Lock()
				if err != nil {
					stats.SkippedUpload++
				} else {
					stats.Uploaded++
				}
				mu.Unlock()
				if err != nil {
					e.log.Warn("skipping asset upload", slog.String("filename", asset.Filename), slog.Any("err", err))
				}
			}
		}()
	}

feed:
	for _, asset := range diff.ToUpload {
		select {
		case jobs <- asset:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	for _, name := range diff.ToDelete {
		if ctx.Err() != nil {
			break
		}
		if err := e.store.Remove(ctx, path.Join(e.cfg.Dir, name)); err != nil {
			stats.FailedDelete++
			delErr := &RemoteDeleteError{Filename: name, Err: err}
			e.log.Warn("orphan cleanup failed", slog.Any("err", delErr))
			continue
		}
		stats.Deleted++
	}
	return stats
}

// transfer downloads one image and writes it to the remote store, retrying
// the whole download+put up to the per-item budget.
func (e *Engine) transfer(ctx context.Context, asset realtor.PhotoAsset) error {
	var lastErr error
	for attempt := 0; attempt < e.cfg.RetriesPerItem; attempt++ {
		if ctx.Err() != nil {
			return &AssetTransferError{Filename: asset.Filename, Err: ctx.Err()}
		}
		lastErr = e.transferOnce(ctx, asset)
		if lastErr == nil {
			return nil
		}
	}
	return &AssetTransferError{Filename: asset.Filename, Err: lastErr}
}

func (e *Engine) transferOnce(ctx context.Context, asset realtor.PhotoAsset) error {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	reqCtx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(reqCtx, http.MethodGet, asset.URL, nil)
	if err != nil {
		return err
	}
	resp, err := e.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download status %d", resp.StatusCode)
	}
	body, err := readAllLimit(resp.Body, maxImageBytes)
	if err != nil {
		return err
	}
	return e.store.Put(ctx, path.Join(e.cfg.Dir, asset.Filename), bytes.NewReader(body))
}

func readAllLimit(r io.Reader, limit int64) ([]byte, error) {
	lr := io.LimitReader(r, limit+1)
	b, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, fmt.Errorf("image larger than %d bytes", limit)
	}
	return b, nil
}
