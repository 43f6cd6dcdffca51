package progress

import (
	"context"
	"sync"
	"time"

	"github.com/yourorg/listing-harvester/internal/events"
)

// Snapshot is the last-known state of the current (or most recent) run, as
// served by the status endpoint.
type Snapshot struct {
	RunID            string    `json:"run_id"`
	Partitions       int       `json:"partitions"`
	FailedPartitions int       `json:"failed_partitions"`
	Records          int       `json:"records"`
	DroppedRecords   int       `json:"dropped_records"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Tracker consumes partition.completed events and maintains a run snapshot.
type Tracker struct {
	Pub events.Publisher

	mu   sync.Mutex
	snap Snapshot
}

func (t *Tracker) Run(ctx context.Context) {
	sub := t.Pub.SubscribePartitionCompleted()
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-sub:
			t.mu.Lock()
			if evt.RunID != t.snap.RunID {
				t.snap = Snapshot{RunID: evt.RunID}
			}
			t.snap.Partitions++
			if evt.Failed {
				t.snap.FailedPartitions++
			}
			t.snap.Records += evt.Records
			t.snap.DroppedRecords += evt.Dropped
			t.snap.UpdatedAt = time.Now().UTC()
			t.mu.Unlock()
		}
	}
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}
