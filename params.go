package harvester

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Params holds the fixed inputs of a run
type Params struct {
	Subreddits []string
	Queries    []string
	After      time.Time
	Before     time.Time
	Limit      int // 0 means unbounded
	Fields     []string
	Metadata   bool
}

// Validate checks that the parameters describe a runnable job
func (p *Params) Validate() error {
	if len(p.Subreddits) == 0 {
		return errors.New("no subreddits")
	}
	if len(p.Queries) == 0 {
		return errors.New("no query terms")
	}
	if p.After.IsZero() || p.Before.IsZero() {
		return errors.New("time window is not set")
	}
	if !p.Before.After(p.After) {
		return fmt.Errorf("before (%s) must be later than after (%s)",
			p.Before.Format(time.RFC3339), p.After.Format(time.RFC3339))
	}
	if p.Limit < 0 {
		return fmt.Errorf("invalid limit: %d", p.Limit)
	}
	if len(p.Fields) == 0 {
		return errors.New("no fields requested")
	}
	for _, f := range p.Fields {
		if !IsCommentField(f) {
			return fmt.Errorf("unknown field: %s", f)
		}
	}
	return nil
}

// SearchRequest builds the archive request for a query term
func (p *Params) SearchRequest(query string) SearchRequest {
	return SearchRequest{
		Query:      query,
		Subreddits: p.Subreddits,
		Limit:      p.Limit,
		After:      p.After,
		Before:     p.Before,
		Fields:     p.Fields,
		Metadata:   p.Metadata,
	}
}

// LoadTable reads the first column of a comma-separated file, skipping the
// header row and blank cells. Values are kept exactly as written.
func LoadTable(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadTable(f)
}

// ReadTable is LoadTable over an arbitrary reader
func ReadTable(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var values []string
	header := true
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read table: %w", err)
		}
		if header {
			header = false
			continue
		}
		if len(record) == 0 {
			continue
		}
		if strings.TrimSpace(record[0]) == "" {
			continue
		}
		values = append(values, record[0])
	}

	return values, nil
}
