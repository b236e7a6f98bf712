// Package pushshift is a client for Pushshift-compatible comment archive
// search APIs.
package pushshift

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	harvester "github.com/jamesprial/go-reddit-harvester"
)

const (
	DefaultBaseURL   = "https://api.pushshift.io"
	DefaultUserAgent = "reddit-harvester/1.0"
	searchPath       = "/reddit/search/comment"
)

// Config configures the archive client
type Config struct {
	BaseURL   string
	Token     string // sent as a bearer token when set
	UserAgent string

	// PageSize is the number of records requested per page
	PageSize int

	// MaxPageSize caps the page used to read every record of a single
	// second. It should not exceed what the archive accepts.
	MaxPageSize int

	// RequestsPerMinute paces outgoing requests. Zero or less disables pacing.
	RequestsPerMinute int

	Timeout time.Duration
}

// DefaultConfig returns the settings used when nothing is configured
func DefaultConfig() Config {
	return Config{
		BaseURL:           DefaultBaseURL,
		UserAgent:         DefaultUserAgent,
		PageSize:          100,
		MaxPageSize:       1000,
		RequestsPerMinute: 60,
		Timeout:           60 * time.Second,
	}
}

// Client searches the comment archive
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a client, filling unset fields from DefaultConfig
func NewClient(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = def.MaxPageSize
	}
	if cfg.MaxPageSize < cfg.PageSize {
		cfg.MaxPageSize = cfg.PageSize
	}

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, 1),
	}
}

// SearchComments pages backwards through the time window until the archive
// runs dry or the request limit is reached. Records are returned in the
// order the archive served them, without duplicates.
func (c *Client) SearchComments(ctx context.Context, req harvester.SearchRequest) (*harvester.SearchResult, error) {
	s := &search{
		req:    req,
		result: &harvester.SearchResult{},
		seen:   make(map[string]struct{}),
	}
	before := req.Before
	first := true

	for !s.full() {
		size := s.pageSize(c.cfg.PageSize)

		page, err := c.fetchPage(ctx, req, req.After, before, size)
		if err != nil {
			return nil, err
		}

		if first {
			first = false
			if req.Metadata && page.Metadata != nil {
				s.result.Metadata = page.Metadata.toMetadata()
			}
		}

		if len(page.Data) == 0 {
			break
		}

		oldest, added, err := s.collect(page.Data)
		if err != nil {
			return nil, err
		}
		// the archive ignored before and served the same page again
		if added == 0 || oldest >= before.Unix() {
			break
		}

		// A full page may have cut the oldest second short. before is
		// exclusive, so that second has to be read on its own.
		if len(page.Data) >= size && !s.full() {
			if err := c.drainSecond(ctx, s, oldest); err != nil {
				return nil, err
			}
		}

		before = time.Unix(oldest, 0)
	}

	// some archive mirrors ignore size
	if req.Limit > 0 && len(s.result.Comments) > req.Limit {
		s.result.Comments = s.result.Comments[:req.Limit]
	}

	return s.result, nil
}

// drainSecond collects every record created in second ts, growing the page
// until the archive answers with a short one or MaxPageSize is reached.
func (c *Client) drainSecond(ctx context.Context, s *search, ts int64) error {
	after, before := time.Unix(ts-1, 0), time.Unix(ts+1, 0)

	for size := c.cfg.PageSize; !s.full(); size = min(size*2, c.cfg.MaxPageSize) {
		page, err := c.fetchPage(ctx, s.req, after, before, size)
		if err != nil {
			return err
		}
		if _, _, err := s.collect(page.Data); err != nil {
			return err
		}

		if len(page.Data) < size {
			return nil
		}
		if size >= c.cfg.MaxPageSize {
			log.Printf("Warning: more than %d comments for %q at %s; some may be missing",
				size, s.req.Query, time.Unix(ts, 0).UTC().Format(time.RFC3339))
			return nil
		}
	}
	return nil
}

// search accumulates the records of one SearchComments call
type search struct {
	req    harvester.SearchRequest
	result *harvester.SearchResult
	seen   map[string]struct{}
}

func (s *search) full() bool {
	return s.req.Limit > 0 && len(s.result.Comments) >= s.req.Limit
}

func (s *search) pageSize(size int) int {
	if s.req.Limit > 0 {
		if remaining := s.req.Limit - len(s.result.Comments); remaining < size {
			return remaining
		}
	}
	return size
}

// collect appends records not seen before and reports the oldest
// created_utc on the page along with how many records were new.
func (s *search) collect(data []rawComment) (oldest int64, added int, err error) {
	oldest = s.req.Before.Unix()
	for _, rc := range data {
		cm, err := rc.toComment()
		if err != nil {
			return 0, 0, &harvester.HarvestError{Op: "decode_comment", Err: err}
		}
		if cm.CreatedUTC < oldest {
			oldest = cm.CreatedUTC
		}
		if _, dup := s.seen[cm.ID]; dup {
			continue
		}
		s.seen[cm.ID] = struct{}{}
		s.result.Comments = append(s.result.Comments, cm)
		added++
	}
	return oldest, added, nil
}

func (c *Client) fetchPage(ctx context.Context, req harvester.SearchRequest, after, before time.Time, size int) (*searchResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := c.cfg.BaseURL + searchPath + "?" + c.queryParams(req, after, before, size).Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &harvester.HarvestError{Op: "build_request", Err: err}
	}
	httpReq.Header.Set("User-Agent", c.cfg.UserAgent)
	httpReq.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &harvester.HarvestError{Op: "fetch_page", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &harvester.HarvestError{
			Op:  "fetch_page",
			Err: &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))},
		}
	}

	var page searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, &harvester.HarvestError{Op: "decode_page", Err: err}
	}

	return &page, nil
}

func (c *Client) queryParams(req harvester.SearchRequest, after, before time.Time, size int) url.Values {
	params := url.Values{
		"q":         {req.Query},
		"after":     {strconv.FormatInt(after.Unix(), 10)},
		"before":    {strconv.FormatInt(before.Unix(), 10)},
		"size":      {strconv.Itoa(size)},
		"sort":      {"desc"},
		"sort_type": {"created_utc"},
	}
	if len(req.Subreddits) > 0 {
		params.Set("subreddit", strings.Join(req.Subreddits, ","))
	}
	if fields := requestFields(req.Fields); len(fields) > 0 {
		params.Set("fields", strings.Join(fields, ","))
	}
	if req.Metadata {
		params.Set("metadata", "true")
	}
	return params
}

// requestFields adds the columns paging depends on
func requestFields(fields []string) []string {
	if len(fields) == 0 {
		return nil
	}
	out := append([]string(nil), fields...)
	for _, required := range []string{"id", "created_utc"} {
		found := false
		for _, f := range fields {
			if f == required {
				found = true
				break
			}
		}
		if !found {
			out = append(out, required)
		}
	}
	return out
}

// StatusError is returned when the archive answers with a non-200 status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("archive returned http %d", e.StatusCode)
	}
	return fmt.Sprintf("archive returned http %d: %s", e.StatusCode, e.Body)
}
