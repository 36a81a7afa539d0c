// Package extract turns Overpass query results into café records.
package extract

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cafe-sync/internal/model"
	"github.com/sells-group/cafe-sync/internal/overpass"
)

// DefaultPlaceholderName is used when a node has no name tag.
const DefaultPlaceholderName = "Unnamed"

// Options selects what to extract.
type Options struct {
	Area            string
	Boundary        string
	TagKey          string
	TagValue        string
	Limit           int
	QueryTimeout    time.Duration
	PlaceholderName string
}

// Extractor queries Overpass for one area and tag filter.
type Extractor struct {
	client overpass.Client
	opts   Options
}

// New creates an Extractor.
func New(client overpass.Client, opts Options) *Extractor {
	if opts.PlaceholderName == "" {
		opts.PlaceholderName = DefaultPlaceholderName
	}
	return &Extractor{client: client, opts: opts}
}

// Query returns the Overpass QL this extractor sends.
func (e *Extractor) Query() string {
	return overpass.AreaQuery{
		Area:     e.opts.Area,
		Boundary: e.opts.Boundary,
		TagKey:   e.opts.TagKey,
		TagValue: e.opts.TagValue,
		Limit:    e.opts.Limit,
		Timeout:  e.opts.QueryTimeout,
	}.String()
}

// Extract runs the query and maps every returned node to a Cafe. The result
// never holds more than Limit records, whatever the server returns.
func (e *Extractor) Extract(ctx context.Context) ([]model.Cafe, error) {
	if e.opts.Limit <= 0 {
		return nil, eris.Errorf("extract: limit must be positive, got %d", e.opts.Limit)
	}

	log := zap.L().With(
		zap.String("component", "extract"),
		zap.String("area", e.opts.Area),
	)

	resp, err := e.client.Query(ctx, e.Query())
	if err != nil {
		return nil, eris.Wrapf(err, "extract: query %s", e.opts.Area)
	}

	cafes := make([]model.Cafe, 0, min(len(resp.Elements), e.opts.Limit))
	for _, el := range resp.Elements {
		if len(cafes) >= e.opts.Limit {
			break
		}
		if el.Type != "node" {
			continue
		}
		cafes = append(cafes, FromElement(el, e.opts.PlaceholderName))
	}

	log.Info("extracted cafes",
		zap.Int("returned", len(resp.Elements)),
		zap.Int("kept", len(cafes)),
		zap.String("osm_base", resp.OSM3S.TimestampOSMBase),
	)

	return cafes, nil
}

// FromElement maps one Overpass node to a Cafe.
func FromElement(el overpass.Element, placeholder string) model.Cafe {
	name, ok := el.Tag("name")
	if !ok {
		name = placeholder
	}

	return model.Cafe{
		OSMID:           el.ID,
		Name:            name,
		Lat:             el.Lat,
		Lon:             el.Lon,
		Phone:           firstNonEmpty(el, "phone", "contact:phone"),
		Website:         firstNonEmpty(el, "website", "contact:website"),
		AddrStreet:      optional(el, "addr:street"),
		AddrHousenumber: optional(el, "addr:housenumber"),
		AddrPostcode:    optional(el, "addr:postcode"),
		AddrCity:        optional(el, "addr:city"),
	}
}

// firstNonEmpty returns the first tag among keys with a non-empty value.
func firstNonEmpty(el overpass.Element, keys ...string) *string {
	for _, k := range keys {
		if v, ok := el.Tag(k); ok && v != "" {
			return &v
		}
	}
	return nil
}

func optional(el overpass.Element, key string) *string {
	v, ok := el.Tag(key)
	if !ok {
		return nil
	}
	return &v
}
