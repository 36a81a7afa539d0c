package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/sells-group/cafe-sync/internal/config"
	"github.com/sells-group/cafe-sync/internal/fetcher"
	"github.com/sells-group/cafe-sync/internal/model"
	"github.com/sells-group/cafe-sync/internal/monitoring"
	"github.com/sells-group/cafe-sync/internal/overpass"
	"github.com/sells-group/cafe-sync/internal/store"
)

func TestFetcherOptions(t *testing.T) {
	opts := fetcherOptions(config.OverpassConfig{
		Endpoint:        "https://overpass.example.org/api/interpreter",
		UserAgent:       "cafe-sync/test",
		HTTPTimeoutSecs: 30,
		MaxAttempts:     1,
		RatePerSec:      0.5,
	})

	assert.Equal(t, "cafe-sync/test", opts.UserAgent)
	assert.Equal(t, 30*time.Second, opts.Timeout)
	assert.Equal(t, 1, opts.MaxAttempts)
	require.Contains(t, opts.RateLimiters, "overpass.example.org")
	assert.Equal(t, rate.Limit(0.5), opts.RateLimiters["overpass.example.org"].Limit())
	assert.Equal(t, "application/json", opts.Headers["Accept"])
}

func TestFetcherOptions_HeadersReachOverpass(t *testing.T) {
	var accept, agent string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accept = r.Header.Get("Accept")
		agent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"version":0.6,"elements":[]}`))
	}))
	defer ts.Close()

	f := fetcher.NewHTTPFetcher(fetcherOptions(config.OverpassConfig{
		Endpoint:        ts.URL,
		UserAgent:       "cafe-sync/test",
		HTTPTimeoutSecs: 5,
		MaxAttempts:     1,
	}))
	client := overpass.NewClient(f, overpass.WithEndpoint(ts.URL))

	resp, err := client.Query(context.Background(), "[out:json];node(1);out;")
	require.NoError(t, err)
	assert.Empty(t, resp.Elements)
	assert.Equal(t, "application/json", accept)
	assert.Equal(t, "cafe-sync/test", agent)
}

func TestFetcherOptions_NoRate(t *testing.T) {
	opts := fetcherOptions(config.OverpassConfig{Endpoint: "https://overpass-api.de/api/interpreter"})
	assert.Empty(t, opts.RateLimiters)
}

func TestInitStore_SQLite(t *testing.T) {
	cfg = &config.Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = filepath.Join(t.TempDir(), "cafes.db")
	cfg.Load.Table = "berlin_cafes"

	st, err := initStore(context.Background())
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	require.NoError(t, st.EnsureSchema(context.Background()))
}

func TestInitStore_UnsupportedDriver(t *testing.T) {
	cfg = &config.Config{}
	cfg.Store.Driver = "mysql"

	_, err := initStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}

func TestInitExtractor_Query(t *testing.T) {
	cfg = &config.Config{}
	cfg.Overpass.Endpoint = "https://overpass-api.de/api/interpreter"
	cfg.Overpass.QueryTimeoutSecs = 25
	cfg.Extract.Area = "Berlin"
	cfg.Extract.Boundary = "administrative"
	cfg.Extract.TagKey = "amenity"
	cfg.Extract.TagValue = "cafe"
	cfg.Extract.Limit = 50

	q := initExtractor().Query()
	assert.Contains(t, q, `[out:json][timeout:25];`)
	assert.Contains(t, q, `area["name"="Berlin"]["boundary"="administrative"]->.searchArea;`)
	assert.Contains(t, q, `out 50;`)
}

func TestReadAllCafes(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "cafes.db"), "")
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	ctx := context.Background()
	require.NoError(t, st.EnsureSchema(ctx))

	batch := make([]model.Cafe, 0, 5)
	for i := int64(1); i <= 5; i++ {
		batch = append(batch, model.Cafe{OSMID: i, Name: "c"})
	}
	_, err = st.InsertCafes(ctx, batch)
	require.NoError(t, err)

	all, err := readAllCafes(ctx, st, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	some, err := readAllCafes(ctx, st, 3)
	require.NoError(t, err)
	require.Len(t, some, 3)
	assert.Equal(t, int64(3), some[2].OSMID)
}

func TestFormatRunsList(t *testing.T) {
	started := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	done := started.Add(1500 * time.Millisecond)

	var buf bytes.Buffer
	formatRunsList(&buf, []model.Run{
		{ID: "0f8c7a1e-aaaa-bbbb", Status: model.RunStatusComplete, StartedAt: started, CompletedAt: &done, Extracted: 50, Inserted: 12, Skipped: 38},
		{ID: "short", Status: model.RunStatusFailed, StartedAt: started, Error: strings.Repeat("x", 60)},
	})

	out := buf.String()
	assert.Contains(t, out, "0f8c7a1e ")
	assert.NotContains(t, out, "0f8c7a1e-aaaa")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "2026-10-18 00:00")
	assert.Contains(t, out, strings.Repeat("x", 37)+"...")
}

func TestFormatStatus(t *testing.T) {
	last := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)

	var ok bytes.Buffer
	formatStatus(&ok, &monitoring.Status{
		Healthy: true,
		Snapshot: &monitoring.MetricsSnapshot{
			Pipeline: "berlin_cafes", Cafes: 50, RunsTotal: 2, RunsComplete: 2,
			LastSuccess: &last, HoursSinceSuccess: 24, LookbackHours: 168,
		},
	})
	assert.Contains(t, ok.String(), "berlin_cafes")
	assert.Contains(t, ok.String(), "2026-10-17T00:00:00Z (24.0h ago)")
	assert.Contains(t, ok.String(), "Health:        ok")

	var bad bytes.Buffer
	formatStatus(&bad, &monitoring.Status{
		Snapshot: &monitoring.MetricsSnapshot{Pipeline: "berlin_cafes", HoursSinceSuccess: -1},
		Alerts: []monitoring.Alert{
			{Type: monitoring.AlertStaleSync, Severity: "high", Message: "Pipeline berlin_cafes has never completed a sync"},
		},
	})
	assert.Contains(t, bad.String(), "Last success:  never")
	assert.Contains(t, bad.String(), "[high] stale_sync: Pipeline berlin_cafes has never completed a sync")
}

func TestExtractCmd_RejectsUnknownFormat(t *testing.T) {
	cfg = &config.Config{}
	cfg.Overpass.Endpoint = "http://127.0.0.1:1/api/interpreter"
	cfg.Extract.Area = "Berlin"
	cfg.Extract.TagKey = "amenity"
	cfg.Extract.TagValue = "cafe"
	cfg.Extract.Limit = 50

	extractFormat = "xml"
	t.Cleanup(func() { extractFormat = "yaml" })

	extractCmd.SetContext(context.Background())
	err := extractCmd.RunE(extractCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported format "xml"`)
}

func TestExtractCmd_PrintsQueryInAnyFormat(t *testing.T) {
	cfg = &config.Config{}
	cfg.Overpass.Endpoint = "http://127.0.0.1:1/api/interpreter"
	cfg.Extract.Area = "Berlin"
	cfg.Extract.Boundary = "administrative"
	cfg.Extract.TagKey = "amenity"
	cfg.Extract.TagValue = "cafe"
	cfg.Extract.Limit = 50

	extractFormat = "json"
	extractShowQuery = true
	t.Cleanup(func() { extractFormat, extractShowQuery = "yaml", false })

	var out bytes.Buffer
	extractCmd.SetOut(&out)
	t.Cleanup(func() { extractCmd.SetOut(nil) })
	extractCmd.SetContext(context.Background())

	require.NoError(t, extractCmd.RunE(extractCmd, nil))
	assert.Contains(t, out.String(), `"amenity"="cafe"`)
}

func TestServeUntilDone_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second}

	done := make(chan error, 1)
	go func() { done <- serveUntilDone(ctx, srv) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
