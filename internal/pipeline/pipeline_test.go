package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yourorg/listing-harvester/internal/assetsync"
	"github.com/yourorg/listing-harvester/internal/events"
	"github.com/yourorg/listing-harvester/internal/geo"
	"github.com/yourorg/listing-harvester/realtor"
)

type fetchResult struct {
	entries []realtor.RawEntry
	err     error
}

type fakeFetcher struct {
	mu      sync.Mutex
	results map[string]fetchResult
	calls   []string
}

func (f *fakeFetcher) FetchPartition(_ context.Context, postalCode string) ([]realtor.RawEntry, error) {
	f.mu.Lock()
	f.calls = append(f.calls, postalCode)
	f.mu.Unlock()
	res := f.results[postalCode]
	return res.entries, res.err
}

type fakeSyncer struct {
	mu      sync.Mutex
	current []realtor.PhotoAsset
	stats   assetsync.Stats
	err     error
}

func (s *fakeSyncer) Sync(_ context.Context, current []realtor.PhotoAsset) (assetsync.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = current
	return s.stats, s.err
}

type fakeArchive struct {
	mu  sync.Mutex
	ids []string
}

func (a *fakeArchive) UpsertListing(_ context.Context, rec realtor.ListingRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ids = append(a.ids, rec.ID)
	return nil
}

func entry(id, listDate string, photos ...string) realtor.RawEntry {
	price := 300000.0
	raw := realtor.RawEntry{
		PropertyID: id,
		ListPrice:  &price,
		ListDate:   listDate,
		Location: &realtor.RawLocation{
			Address: &realtor.RawAddress{
				Line:       "1 Elm St",
				City:       "Springfield",
				StateCode:  "OH",
				PostalCode: "45501",
			},
		},
	}
	for _, p := range photos {
		raw.Photos = append(raw.Photos, realtor.RawPhoto{Href: p})
	}
	return raw
}

func partitions(codes ...string) []geo.Partition {
	out := make([]geo.Partition, 0, len(codes))
	for _, c := range codes {
		out = append(out, geo.Partition{PostalCode: c, State: "OH"})
	}
	return out
}

func testOrchestrator(f Fetcher) *Orchestrator {
	return &Orchestrator{
		Fetcher: f,
		Config:  Config{Workers: 1, Cooldown: time.Millisecond},
	}
}

func TestRunAggregatesAcrossPartitions(t *testing.T) {
	fetcher := &fakeFetcher{results: map[string]fetchResult{
		"45501": {entries: []realtor.RawEntry{entry("A1", "2026-08-02T00:00:00Z"), entry("A2", "2026-08-01T00:00:00Z")}},
		"45502": {entries: []realtor.RawEntry{entry("B1", "2026-08-03T00:00:00Z")}},
	}}

	report, err := testOrchestrator(fetcher).Run(context.Background(), partitions("45501", "45502"))
	require.NoError(t, err)
	require.Len(t, report.Records, 3)
	require.Empty(t, report.FailedPartitions)
	require.Equal(t, 0, report.DroppedRecords)
	require.NotEmpty(t, report.RunID)

	// Ordered by list date across partitions.
	require.Equal(t, "A2", report.Records[0].ID)
	require.Equal(t, "A1", report.Records[1].ID)
	require.Equal(t, "B1", report.Records[2].ID)
}

func TestRunContainsPartitionFailure(t *testing.T) {
	fetcher := &fakeFetcher{results: map[string]fetchResult{
		"45501": {entries: []realtor.RawEntry{entry("A1", "2026-08-01T00:00:00Z")}},
		"45502": {
			// Partial results survive the malformed page.
			entries: []realtor.RawEntry{entry("B1", "2026-08-02T00:00:00Z")},
			err:     &realtor.MalformedResponseError{PostalCode: "45502", Detail: "data.home_search missing"},
		},
		"45503": {entries: []realtor.RawEntry{entry("C1", "2026-08-03T00:00:00Z")}},
	}}

	report, err := testOrchestrator(fetcher).Run(context.Background(), partitions("45501", "45502", "45503"))
	require.NoError(t, err)
	require.Len(t, report.Records, 3)
	require.Len(t, report.FailedPartitions, 1)
	require.Equal(t, "45502", report.FailedPartitions[0].Partition.PostalCode)
	require.Contains(t, report.FailedPartitions[0].Err, "malformed")
}

func TestRunDropsInvalidRecords(t *testing.T) {
	bad := entry("", "2026-08-01T00:00:00Z") // missing property id
	fetcher := &fakeFetcher{results: map[string]fetchResult{
		"45501": {entries: []realtor.RawEntry{entry("A1", "2026-08-01T00:00:00Z"), bad}},
	}}

	report, err := testOrchestrator(fetcher).Run(context.Background(), partitions("45501"))
	require.NoError(t, err)
	require.Len(t, report.Records, 1)
	require.Equal(t, 1, report.DroppedRecords)
}

func TestRunDeduplicatesAcrossPartitions(t *testing.T) {
	fetcher := &fakeFetcher{results: map[string]fetchResult{
		"45501": {entries: []realtor.RawEntry{entry("A1", "2026-08-01T00:00:00Z")}},
		"45502": {entries: []realtor.RawEntry{entry("A1", "2026-08-01T00:00:00Z"), entry("B1", "2026-08-02T00:00:00Z")}},
	}}

	report, err := testOrchestrator(fetcher).Run(context.Background(), partitions("45501", "45502"))
	require.NoError(t, err)
	require.Len(t, report.Records, 2)
}

func TestRunHandsPhotoUnionToSyncer(t *testing.T) {
	fetcher := &fakeFetcher{results: map[string]fetchResult{
		"45501": {entries: []realtor.RawEntry{
			entry("A1", "2026-08-01T00:00:00Z", "https://ap.rdcpix.com/a.jpg", "https://ap.rdcpix.com/shared.jpg"),
			entry("A2", "2026-08-02T00:00:00Z", "https://ap.rdcpix.com/shared.jpg"),
		}},
	}}
	syncer := &fakeSyncer{stats: assetsync.Stats{Uploaded: 2}}

	orch := testOrchestrator(fetcher)
	orch.Syncer = syncer
	report, err := orch.Run(context.Background(), partitions("45501"))
	require.NoError(t, err)
	require.True(t, report.SyncRan)
	require.Equal(t, 2, report.SyncStats.Uploaded)
	// shared.jpg appears once in the union.
	require.Len(t, syncer.current, 2)
}

func TestRunSyncFailureIsNotFatal(t *testing.T) {
	fetcher := &fakeFetcher{results: map[string]fetchResult{
		"45501": {entries: []realtor.RawEntry{entry("A1", "2026-08-01T00:00:00Z")}},
	}}
	orch := testOrchestrator(fetcher)
	orch.Syncer = &fakeSyncer{err: context.DeadlineExceeded}

	report, err := orch.Run(context.Background(), partitions("45501"))
	require.NoError(t, err)
	require.False(t, report.SyncRan)
	require.Len(t, report.Records, 1)
}

func TestRunArchivesEveryRecord(t *testing.T) {
	fetcher := &fakeFetcher{results: map[string]fetchResult{
		"45501": {entries: []realtor.RawEntry{entry("A1", "2026-08-01T00:00:00Z"), entry("A2", "2026-08-02T00:00:00Z")}},
	}}
	archive := &fakeArchive{}
	orch := testOrchestrator(fetcher)
	orch.Archive = archive

	_, err := orch.Run(context.Background(), partitions("45501"))
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"A1", "A2"}, archive.ids)
}

func TestRunPublishesPartitionEvents(t *testing.T) {
	fetcher := &fakeFetcher{results: map[string]fetchResult{
		"45501": {entries: []realtor.RawEntry{entry("A1", "2026-08-01T00:00:00Z")}},
		"45502": {err: &realtor.TransientError{PostalCode: "45502", Err: context.DeadlineExceeded}},
	}}
	pub := events.NewInMemory(8)
	orch := testOrchestrator(fetcher)
	orch.Pub = pub

	report, err := orch.Run(context.Background(), partitions("45501", "45502"))
	require.NoError(t, err)

	sub := pub.SubscribePartitionCompleted()
	byZip := map[string]events.PartitionCompleted{}
	for i := 0; i < 2; i++ {
		evt := <-sub
		require.Equal(t, report.RunID, evt.RunID)
		byZip[evt.PostalCode] = evt
	}
	require.Equal(t, 1, byZip["45501"].Records)
	require.False(t, byZip["45501"].Failed)
	require.True(t, byZip["45502"].Failed)
}

func TestRunStopsSchedulingOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := &cancelingFetcher{cancel: cancel}
	report, err := orchestratorForCancel(fetcher).Run(ctx, partitions("45501", "45502", "45503"))
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	// The first partition's results survive the shutdown.
	require.Len(t, report.Records, 1)
	require.Equal(t, 1, fetcher.calls)
}

func orchestratorForCancel(f Fetcher) *Orchestrator {
	return &Orchestrator{Fetcher: f, Config: Config{Workers: 1, Cooldown: time.Millisecond}}
}

// cancelingFetcher cancels the run context during the first fetch, then stays
// busy long enough for the scheduler to observe the cancellation.
type cancelingFetcher struct {
	cancel context.CancelFunc
	calls  int
}

func (c *cancelingFetcher) FetchPartition(context.Context, string) ([]realtor.RawEntry, error) {
	c.calls++
	c.cancel()
	time.Sleep(50 * time.Millisecond)
	return []realtor.RawEntry{entry("A1", "2026-08-01T00:00:00Z")}, nil
}
