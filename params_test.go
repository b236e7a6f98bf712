package harvester

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validParams() Params {
	return Params{
		Subreddits: []string{"golang"},
		Queries:    []string{"generics"},
		After:      time.Date(2020, 12, 14, 0, 0, 0, 0, time.UTC),
		Before:     time.Date(2022, 8, 1, 0, 0, 0, 0, time.UTC),
		Fields:     DefaultFields,
		Metadata:   true,
	}
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Params)
		wantErr bool
	}{
		{"valid", func(p *Params) {}, false},
		{"no subreddits", func(p *Params) { p.Subreddits = nil }, true},
		{"empty subreddit list", func(p *Params) { p.Subreddits = []string{} }, true},
		{"no queries", func(p *Params) { p.Queries = nil }, true},
		{"zero window", func(p *Params) { p.After = time.Time{} }, true},
		{"before equals after", func(p *Params) { p.Before = p.After }, true},
		{"before earlier than after", func(p *Params) { p.After, p.Before = p.Before, p.After }, true},
		{"negative limit", func(p *Params) { p.Limit = -1 }, true},
		{"no fields", func(p *Params) { p.Fields = nil }, true},
		{"unknown field", func(p *Params) { p.Fields = []string{"body", "score"} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			tt.mutate(&p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParams_SearchRequest(t *testing.T) {
	p := validParams()
	p.Limit = 50

	req := p.SearchRequest("rust")
	if req.Query != "rust" || req.Limit != 50 || !req.Metadata {
		t.Errorf("Unexpected request: %+v", req)
	}
	if !req.After.Equal(p.After) || !req.Before.Equal(p.Before) {
		t.Errorf("Expected window to be copied, got %s-%s", req.After, req.Before)
	}
}

func TestReadTable(t *testing.T) {
	input := "query\n moderna \n\"pfizer, booster\"\n\n,ignored\n   \nj&j,extra column\n"

	values, err := ReadTable(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadTable failed: %v", err)
	}

	want := []string{" moderna ", "pfizer, booster", "j&j"}
	if strings.Join(values, "|") != strings.Join(want, "|") {
		t.Errorf("Expected %q, got %q", want, values)
	}
}

func TestReadTable_HeaderOnly(t *testing.T) {
	values, err := ReadTable(strings.NewReader("subreddit\n"))
	if err != nil {
		t.Fatalf("ReadTable failed: %v", err)
	}
	if len(values) != 0 {
		t.Errorf("Expected no values, got %q", values)
	}
}

func TestParams_EmptySubredditTable(t *testing.T) {
	subreddits, err := ReadTable(strings.NewReader("subreddit\n\n  \n"))
	if err != nil {
		t.Fatalf("ReadTable failed: %v", err)
	}

	p := validParams()
	p.Subreddits = subreddits
	if err := p.Validate(); err == nil {
		t.Error("Expected a blank subreddit table to be rejected")
	}
}

func TestLoadTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subreddits.csv")
	if err := os.WriteFile(path, []byte("subreddit\nCOVID19\nCoronavirus\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	values, err := LoadTable(path)
	if err != nil {
		t.Fatalf("LoadTable failed: %v", err)
	}
	if len(values) != 2 || values[0] != "COVID19" {
		t.Errorf("Unexpected values: %q", values)
	}

	if _, err := LoadTable(path + ".missing"); err == nil {
		t.Error("Expected error for missing file")
	}
}
