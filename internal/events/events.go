package events

import (
	"context"
)

// PartitionCompleted is emitted by the pipeline after each partition finishes,
// whether or not its fetch failed.
type PartitionCompleted struct {
	RunID      string
	PostalCode string
	State      string
	Records    int
	Dropped    int
	Failed     bool
}

type Publisher interface {
	PublishPartitionCompleted(ctx context.Context, evt PartitionCompleted)
	SubscribePartitionCompleted() <-chan PartitionCompleted
}

type inMemory struct{ ch chan PartitionCompleted }

func NewInMemory(buffer int) Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &inMemory{ch: make(chan PartitionCompleted, buffer)}
}

func (m *inMemory) PublishPartitionCompleted(_ context.Context, evt PartitionCompleted) {
	select {
	case m.ch <- evt:
	default:
	}
}

func (m *inMemory) SubscribePartitionCompleted() <-chan PartitionCompleted { return m.ch }
