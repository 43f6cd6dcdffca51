package geo

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// CSVSource reads the zip-code reference dataset from a local CSV with a
// zip,city,county,state header. The file is parsed once and indexed by state.
type CSVSource struct {
	Path string

	once    sync.Once
	byState map[string][]Partition
	loadErr error
}

func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path}
}

func (s *CSVSource) ZipCodes(_ context.Context, state string) ([]Partition, error) {
	s.once.Do(s.load)
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.byState[strings.ToUpper(strings.TrimSpace(state))], nil
}

func (s *CSVSource) load() {
	f, err := os.Open(s.Path)
	if err != nil {
		s.loadErr = fmt.Errorf("zip dataset: %w", err)
		return
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		s.loadErr = fmt.Errorf("zip dataset header: %w", err)
		return
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, want := range []string{"zip", "city", "county", "state"} {
		if _, ok := col[want]; !ok {
			s.loadErr = fmt.Errorf("zip dataset missing %q column", want)
			return
		}
	}

	s.byState = make(map[string][]Partition)
	for {
		row, err := r.Read()
		if err == io.EOF {
			return
		}
		if err != nil {
			s.loadErr = fmt.Errorf("zip dataset row: %w", err)
			return
		}
		maxIdx := col["zip"]
		for _, i := range col {
			if i > maxIdx {
				maxIdx = i
			}
		}
		if len(row) <= maxIdx {
			continue
		}
		p := Partition{
			PostalCode: strings.TrimSpace(row[col["zip"]]),
			City:       strings.TrimSpace(row[col["city"]]),
			County:     strings.TrimSpace(row[col["county"]]),
			State:      strings.ToUpper(strings.TrimSpace(row[col["state"]])),
		}
		if p.PostalCode == "" || p.State == "" {
			continue
		}
		s.byState[p.State] = append(s.byState[p.State], p)
	}
}
