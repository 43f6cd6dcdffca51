package geo

import (
	"context"
	"fmt"
)

// Partition is one postal-code-scoped unit of scrape work, fixed at
// enumeration time.
type Partition struct {
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
	County     string `json:"county"`
	State      string `json:"state"`
}

// Source looks up the postal-code partitions of one state from reference
// geography data.
type Source interface {
	ZipCodes(ctx context.Context, state string) ([]Partition, error)
}

// Enumerate flattens the partitions of the target states, optionally keeping
// only one county (the everyday harvest runs against a single operating
// county; full-state runs leave the filter empty).
func Enumerate(ctx context.Context, src Source, states []string, countyFilter string) ([]Partition, error) {
	var out []Partition
	for _, state := range states {
		parts, err := src.ZipCodes(ctx, state)
		if err != nil {
			return nil, fmt.Errorf("enumerate %s: %w", state, err)
		}
		for _, p := range parts {
			if countyFilter != "" && p.County != countyFilter {
				continue
			}
			out = append(out, p)
		}
	}
	return out, nil
}
