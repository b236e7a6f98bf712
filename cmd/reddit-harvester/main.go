package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	harvester "github.com/jamesprial/go-reddit-harvester"
	"github.com/jamesprial/go-reddit-harvester/csvout"
	"github.com/jamesprial/go-reddit-harvester/internal/config"
	"github.com/jamesprial/go-reddit-harvester/postgres"
	"github.com/jamesprial/go-reddit-harvester/pushshift"
	"github.com/jamesprial/go-reddit-harvester/sqlite"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to config file (default: ./harvester.yaml if present)")
		subreddits = flag.String("subreddits", "", "CSV file listing subreddits")
		queries    = flag.String("queries", "", "CSV file listing query terms")
		outDir     = flag.String("out", "", "Directory for per-query CSV files")
		after      = flag.String("after", "", "Start of the search window (date, RFC 3339 or Unix seconds)")
		before     = flag.String("before", "", "End of the search window (date, RFC 3339 or Unix seconds)")
		limit      = flag.Int("limit", 0, "Max comments per query (0 = unbounded)")
		dbType     = flag.String("db-type", "", "Optional archive database: sqlite or postgres")
		dbURL      = flag.String("db", "", "Archive database connection string")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Explicit flags win over config and environment
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "subreddits":
			cfg.Input.SubredditsFile = *subreddits
		case "queries":
			cfg.Input.QueriesFile = *queries
		case "out":
			cfg.Output.Dir = *outDir
		case "after":
			cfg.Search.After = *after
		case "before":
			cfg.Search.Before = *before
		case "limit":
			cfg.Search.Limit = *limit
		case "db-type":
			cfg.Storage.Type = *dbType
		case "db":
			cfg.Storage.DSN = *dbURL
		}
	})

	params, err := cfg.Params()
	if err != nil {
		log.Fatalf("Error loading parameters: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Error initializing storage: %v", err)
	}

	// The CSV file goes last so a query that fails in the database never
	// leaves its file behind.
	var sinks []harvester.Sink
	if store != nil {
		defer store.Close()
		sinks = append(sinks, store)
	}
	sinks = append(sinks, csvout.New(cfg.Output.Dir, cfg.Output.Suffix, params.Fields))

	client := pushshift.NewClient(cfg.ClientConfig())
	h := harvester.NewHarvester(client, sinks...)

	stats, err := h.Run(ctx, params)
	if err != nil {
		if store != nil {
			store.Close()
		}
		log.Fatalf("Error during harvest: %v", err)
	}

	log.Printf("Run %s finished: %s comments across %d queries in %s",
		stats.RunID, humanize.Comma(int64(stats.Comments)), len(stats.Queries),
		stats.Elapsed.Round(time.Second))
}

// openStore returns nil when no archive database is configured
func openStore(ctx context.Context, cfg config.StorageConfig) (harvester.Store, error) {
	var (
		store harvester.Store
		err   error
	)

	switch strings.ToLower(cfg.Type) {
	case "":
		return nil, nil
	case "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "./harvest.db"
		}
		store, err = sqlite.New(dsn)
	case "postgres", "postgresql":
		if cfg.DSN == "" {
			log.Fatal("Error: -db flag or DATABASE_URL environment variable required for postgres")
		}
		store, err = postgres.New(cfg.DSN)
	default:
		log.Fatalf("Error: unsupported database type: %s", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	if err := store.RunMigrations(ctx); err != nil {
		store.Close()
		return nil, err
	}

	return store, nil
}
