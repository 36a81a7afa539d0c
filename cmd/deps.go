package main

import (
	"context"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/cafe-sync/internal/config"
	"github.com/sells-group/cafe-sync/internal/extract"
	"github.com/sells-group/cafe-sync/internal/fetcher"
	"github.com/sells-group/cafe-sync/internal/overpass"
	"github.com/sells-group/cafe-sync/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "cafes.db"
		}
		return store.NewSQLite(dsn, cfg.Load.Table)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Load.Table, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// fetcherOptions builds the HTTP options for the Overpass endpoint. A
// configured rate replaces the adaptive default for the endpoint host.
func fetcherOptions(c config.OverpassConfig) fetcher.HTTPOptions {
	opts := fetcher.HTTPOptions{
		UserAgent:   c.UserAgent,
		Timeout:     time.Duration(c.HTTPTimeoutSecs) * time.Second,
		MaxAttempts: c.MaxAttempts,
		Headers:     map[string]string{"Accept": "application/json"},
	}
	if u, err := url.Parse(c.Endpoint); err == nil && u.Host != "" && c.RatePerSec > 0 {
		opts.RateLimiters = map[string]*rate.Limiter{
			u.Host: rate.NewLimiter(rate.Limit(c.RatePerSec), 1),
		}
	}
	return opts
}

func initExtractor() *extract.Extractor {
	f := fetcher.NewHTTPFetcher(fetcherOptions(cfg.Overpass))
	client := overpass.NewClient(f, overpass.WithEndpoint(cfg.Overpass.Endpoint))

	return extract.New(client, extract.Options{
		Area:            cfg.Extract.Area,
		Boundary:        cfg.Extract.Boundary,
		TagKey:          cfg.Extract.TagKey,
		TagValue:        cfg.Extract.TagValue,
		Limit:           cfg.Extract.Limit,
		QueryTimeout:    time.Duration(cfg.Overpass.QueryTimeoutSecs) * time.Second,
		PlaceholderName: cfg.Extract.PlaceholderName,
	})
}

// pipelineName keys the run log; one pipeline per destination table.
func pipelineName() string {
	return cfg.Load.Table
}
