package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yourorg/listing-harvester/internal/assetsync"
	"github.com/yourorg/listing-harvester/internal/events"
	"github.com/yourorg/listing-harvester/internal/geo"
	"github.com/yourorg/listing-harvester/realtor"
)

// Fetcher pulls every raw entry for one postal code. Partial accumulations
// come back alongside typed errors.
type Fetcher interface {
	FetchPartition(ctx context.Context, postalCode string) ([]realtor.RawEntry, error)
}

// Syncer reconciles the remote photo store against the run's photo set.
type Syncer interface {
	Sync(ctx context.Context, current []realtor.PhotoAsset) (assetsync.Stats, error)
}

// Archiver persists normalized records. Optional sink; errors are logged,
// never fatal.
type Archiver interface {
	UpsertListing(ctx context.Context, rec realtor.ListingRecord) error
}

type Config struct {
	Workers          int           // concurrent partitions, default 1
	Cooldown         time.Duration // pause after a failed partition, default 10s
	PartitionTimeout time.Duration // per-partition fetch deadline, 0 = none
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 10 * time.Second
	}
	return c
}

// PartitionFailure records one contained partition-level error.
type PartitionFailure struct {
	Partition geo.Partition
	Err       string
}

// Report is the outcome of one harvest run. Records are ordered by list date.
type Report struct {
	RunID    string
	Started  time.Time
	Finished time.Time

	Partitions       int
	Records          []realtor.ListingRecord
	FailedPartitions []PartitionFailure
	DroppedRecords   int

	SyncRan   bool
	SyncStats assetsync.Stats
}

// Orchestrator drives partitions through fetch and normalization, aggregates
// the records, and hands the photo union to the sync engine. It is the only
// component that catches and contains partition-level errors.
type Orchestrator struct {
	Fetcher Fetcher
	Syncer  Syncer   // nil disables asset sync
	Archive Archiver // nil disables the archive sink
	Pub     events.Publisher
	Log     *slog.Logger
	Config  Config
}

func (o *Orchestrator) Run(ctx context.Context, partitions []geo.Partition) (*Report, error) {
	if o.Fetcher == nil {
		return nil, errors.New("orchestrator requires a fetcher")
	}
	cfg := o.Config.withDefaults()
	log := o.Log
	if log == nil {
		log = slog.Default()
	}

	report := &Report{
		RunID:      uuid.NewString(),
		Started:    time.Now().UTC(),
		Partitions: len(partitions),
	}
	log = log.With(slog.String("run_id", report.RunID))
	log.Info("harvest starting",
		slog.Int("partitions", len(partitions)),
		slog.Int("workers", cfg.Workers),
	)

	var (
		mu   sync.Mutex
		seen = make(map[string]struct{})
	)

	jobs := make(chan geo.Partition)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				records, dropped, fetchErr := o.harvestPartition(ctx, log, cfg, p)

				mu.Lock()
				report.DroppedRecords += dropped
				for _, rec := range records {
					if _, dup := seen[rec.ID]; dup {
						continue
					}
					seen[rec.ID] = struct{}{}
					report.Records = append(report.Records, rec)
				}
				if fetchErr != nil {
					report.FailedPartitions = append(report.FailedPartitions, PartitionFailure{Partition: p, Err: fetchErr.Error()})
				}
				mu.Unlock()

				if o.Pub != nil {
					o.Pub.PublishPartitionCompleted(ctx, events.PartitionCompleted{
						RunID:      report.RunID,
						PostalCode: p.PostalCode,
						State:      p.State,
						Records:    len(records),
						Dropped:    dropped,
						Failed:     fetchErr != nil,
					})
				}

				// Back off before the next partition so a blocked or flaky
				// upstream is not hammered by an immediate follow-up.
				if fetchErr != nil && ctx.Err() == nil {
					select {
					case <-time.After(cfg.Cooldown):
					case <-ctx.Done():
					}
				}
			}
		}()
	}

schedule:
	for _, p := range partitions {
		select {
		case jobs <- p:
		case <-ctx.Done():
			// Stop scheduling; in-flight partitions finish and keep their
			// results.
			break schedule
		}
	}
	close(jobs)
	wg.Wait()

	sort.SliceStable(report.Records, func(i, j int) bool {
		return report.Records[i].ListDate.Before(report.Records[j].ListDate)
	})

	if o.Syncer != nil && ctx.Err() == nil {
		photos := photoUnion(report.Records)
		stats, err := o.Syncer.Sync(ctx, photos)
		if err != nil {
			log.Error("asset sync failed", slog.Any("err", err))
		} else {
			report.SyncRan = true
			report.SyncStats = stats
		}
	}

	report.Finished = time.Now().UTC()
	log.Info("harvest finished",
		slog.Int("records", len(report.Records)),
		slog.Int("failed_partitions", len(report.FailedPartitions)),
		slog.Int("dropped_records", report.DroppedRecords),
		slog.Duration("elapsed", report.Finished.Sub(report.Started)),
	)

	if ctx.Err() != nil {
		return report, ctx.Err()
	}
	return report, nil
}

// harvestPartition fetches and normalizes one partition. A fetch error is
// returned for the report but any accumulated entries are still normalized:
// partial results are kept, individual invalid records are dropped and
// counted.
func (o *Orchestrator) harvestPartition(ctx context.Context, log *slog.Logger, cfg Config, p geo.Partition) ([]realtor.ListingRecord, int, error) {
	fetchCtx := ctx
	if cfg.PartitionTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, cfg.PartitionTimeout)
		defer cancel()
	}

	entries, fetchErr := o.Fetcher.FetchPartition(fetchCtx, p.PostalCode)
	if fetchErr != nil {
		var malformed *realtor.MalformedResponseError
		var transient *realtor.TransientError
		switch {
		case errors.As(fetchErr, &malformed):
			log.Warn("partition returned malformed response, keeping partial results",
				slog.String("postal_code", p.PostalCode),
				slog.String("state", p.State),
				slog.String("detail", malformed.Detail),
				slog.Int("partial", len(entries)),
			)
		case errors.As(fetchErr, &transient):
			log.Warn("partition fetch exhausted retries, keeping partial results",
				slog.String("postal_code", p.PostalCode),
				slog.String("state", p.State),
				slog.Any("err", transient.Unwrap()),
				slog.Int("partial", len(entries)),
			)
		default:
			log.Warn("partition fetch failed",
				slog.String("postal_code", p.PostalCode),
				slog.String("state", p.State),
				slog.Any("err", fetchErr),
			)
		}
	}

	var (
		records []realtor.ListingRecord
		dropped int
	)
	for _, entry := range entries {
		rec, err := realtor.Normalize(entry)
		if err != nil {
			dropped++
			log.Warn("dropping record",
				slog.String("postal_code", p.PostalCode),
				slog.String("property_id", entry.PropertyID),
				slog.Any("err", err),
			)
			continue
		}
		if o.Archive != nil {
			if err := o.Archive.UpsertListing(ctx, rec); err != nil {
				log.Warn("archive upsert failed",
					slog.String("property_id", rec.ID),
					slog.Any("err", err),
				)
			}
		}
		records = append(records, rec)
	}
	return records, dropped, fetchErr
}

func photoUnion(records []realtor.ListingRecord) []realtor.PhotoAsset {
	seen := make(map[string]struct{})
	var out []realtor.PhotoAsset
	for _, rec := range records {
		for _, asset := range rec.Assets() {
			if _, ok := seen[asset.Filename]; ok {
				continue
			}
			seen[asset.Filename] = struct{}{}
			out = append(out, asset)
		}
	}
	return out
}
