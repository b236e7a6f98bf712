package config

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	harvester "github.com/jamesprial/go-reddit-harvester"
	"github.com/jamesprial/go-reddit-harvester/pushshift"
)

// Config holds the application configuration
type Config struct {
	Input     InputConfig     `mapstructure:"input"`
	Output    OutputConfig    `mapstructure:"output"`
	Search    SearchConfig    `mapstructure:"search"`
	Pushshift PushshiftConfig `mapstructure:"pushshift"`
	Storage   StorageConfig   `mapstructure:"storage"`
}

// InputConfig points at the two input tables
type InputConfig struct {
	SubredditsFile string `mapstructure:"subreddits_file"`
	QueriesFile    string `mapstructure:"queries_file"`
}

// OutputConfig controls where CSV files go
type OutputConfig struct {
	Dir    string `mapstructure:"dir"`
	Suffix string `mapstructure:"suffix"`
}

// SearchConfig holds the fixed search window and request shape
type SearchConfig struct {
	After    string   `mapstructure:"after"`
	Before   string   `mapstructure:"before"`
	Limit    int      `mapstructure:"limit"`
	Fields   []string `mapstructure:"fields"`
	Metadata bool     `mapstructure:"metadata"`
}

// PushshiftConfig configures the archive client
type PushshiftConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	Token             string        `mapstructure:"token"`
	UserAgent         string        `mapstructure:"user_agent"`
	PageSize          int           `mapstructure:"page_size"`
	MaxPageSize       int           `mapstructure:"max_page_size"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// StorageConfig selects an optional database mirror
type StorageConfig struct {
	Type string `mapstructure:"type"` // "", "sqlite" or "postgres"
	DSN  string `mapstructure:"dsn"`
}

// Load reads configuration from path, or from harvester.yaml in the working
// directory when path is empty, then applies environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("HARVESTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.BindEnv("pushshift.token", "PUSHSHIFT_TOKEN")
	v.BindEnv("storage.dsn", "DATABASE_URL")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("harvester")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
			log.Println("No config file found, using defaults and environment variables")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := pushshift.DefaultConfig()

	v.SetDefault("input.subreddits_file", "./data/raw/subreddits.csv")
	v.SetDefault("input.queries_file", "./data/raw/query_terms.csv")
	v.SetDefault("output.dir", "./data/raw")
	v.SetDefault("output.suffix", harvester.DefaultSuffix)
	v.SetDefault("search.after", "2020-12-14")
	v.SetDefault("search.before", "2022-08-01")
	v.SetDefault("search.limit", 0)
	v.SetDefault("search.fields", harvester.DefaultFields)
	v.SetDefault("search.metadata", true)
	v.SetDefault("pushshift.base_url", def.BaseURL)
	v.SetDefault("pushshift.token", "")
	v.SetDefault("pushshift.user_agent", def.UserAgent)
	v.SetDefault("pushshift.page_size", def.PageSize)
	v.SetDefault("pushshift.max_page_size", def.MaxPageSize)
	v.SetDefault("pushshift.requests_per_minute", def.RequestsPerMinute)
	v.SetDefault("pushshift.timeout", def.Timeout)
	v.SetDefault("storage.type", "")
	v.SetDefault("storage.dsn", "")
}

// Window parses the configured search window
func (c *Config) Window() (after, before time.Time, err error) {
	if after, err = ParseTime(c.Search.After); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("search.after: %w", err)
	}
	if before, err = ParseTime(c.Search.Before); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("search.before: %w", err)
	}
	return after, before, nil
}

// Params loads the input tables and builds the run parameters
func (c *Config) Params() (harvester.Params, error) {
	after, before, err := c.Window()
	if err != nil {
		return harvester.Params{}, err
	}

	subreddits, err := harvester.LoadTable(c.Input.SubredditsFile)
	if err != nil {
		return harvester.Params{}, fmt.Errorf("load subreddits: %w", err)
	}

	queries, err := harvester.LoadTable(c.Input.QueriesFile)
	if err != nil {
		return harvester.Params{}, fmt.Errorf("load queries: %w", err)
	}

	p := harvester.Params{
		Subreddits: subreddits,
		Queries:    queries,
		After:      after,
		Before:     before,
		Limit:      c.Search.Limit,
		Fields:     c.Search.Fields,
		Metadata:   c.Search.Metadata,
	}
	if err := p.Validate(); err != nil {
		return harvester.Params{}, err
	}

	return p, nil
}

// ClientConfig converts the archive settings for pushshift.NewClient
func (c *Config) ClientConfig() pushshift.Config {
	return pushshift.Config{
		BaseURL:           c.Pushshift.BaseURL,
		Token:             c.Pushshift.Token,
		UserAgent:         c.Pushshift.UserAgent,
		PageSize:          c.Pushshift.PageSize,
		MaxPageSize:       c.Pushshift.MaxPageSize,
		RequestsPerMinute: c.Pushshift.RequestsPerMinute,
		Timeout:           c.Pushshift.Timeout,
	}
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// ParseTime accepts RFC 3339, a date with optional time, or Unix seconds.
// Values without a zone are taken as UTC. Sub-second precision is dropped.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty time")
	}

	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}

	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Truncate(time.Second), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
