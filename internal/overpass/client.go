// Package overpass provides a client for the Overpass API, the read-only
// query service over OpenStreetMap data.
package overpass

import (
	"context"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cafe-sync/internal/fetcher"
)

// DefaultEndpoint is the main public Overpass instance.
const DefaultEndpoint = "https://overpass-api.de/api/interpreter"

// Client defines the Overpass operations.
type Client interface {
	// Query runs an Overpass QL query and returns the decoded JSON response.
	Query(ctx context.Context, ql string) (*Response, error)
}

// Response is the JSON envelope returned by [out:json] queries.
type Response struct {
	Version   float64   `json:"version"`
	Generator string    `json:"generator"`
	OSM3S     OSM3S     `json:"osm3s"`
	Elements  []Element `json:"elements"`
	Remark    string    `json:"remark,omitempty"`
}

// OSM3S carries dataset metadata.
type OSM3S struct {
	TimestampOSMBase string `json:"timestamp_osm_base"`
	Copyright        string `json:"copyright"`
}

// Element is a node, way or relation. Only nodes carry Lat/Lon directly.
type Element struct {
	Type string            `json:"type"`
	ID   int64             `json:"id"`
	Lat  float64           `json:"lat"`
	Lon  float64           `json:"lon"`
	Tags map[string]string `json:"tags,omitempty"`
}

// Tag returns the value of key and whether it was present.
func (e Element) Tag(key string) (string, bool) {
	v, ok := e.Tags[key]
	return v, ok
}

// Option configures the Overpass client.
type Option func(*httpClient)

// WithEndpoint sets a custom interpreter URL (mirrors, tests).
func WithEndpoint(endpoint string) Option {
	return func(c *httpClient) {
		c.endpoint = endpoint
	}
}

type httpClient struct {
	endpoint string
	fetcher  fetcher.Fetcher
}

// NewClient creates an Overpass client that sends queries through f.
func NewClient(f fetcher.Fetcher, opts ...Option) Client {
	c := &httpClient{
		endpoint: DefaultEndpoint,
		fetcher:  f,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Query(ctx context.Context, ql string) (*Response, error) {
	reqURL := c.endpoint + "?data=" + url.QueryEscape(ql)

	zap.L().Debug("overpass: query",
		zap.String("endpoint", c.endpoint),
		zap.String("ql", ql),
	)

	body, err := c.fetcher.Download(ctx, reqURL)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: request failed")
	}
	defer body.Close() //nolint:errcheck

	resp, err := fetcher.DecodeJSONObject[Response](body)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: decode response")
	}

	// Query timeouts and memory exhaustion come back as HTTP 200 with a
	// partial (often empty) element list and a runtime remark.
	if isRuntimeError(resp.Remark) {
		return nil, eris.Errorf("overpass: %s", resp.Remark)
	}

	return resp, nil
}

func isRuntimeError(remark string) bool {
	return strings.Contains(remark, "runtime error")
}
