package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cafe-sync/internal/overpass"
	"github.com/sells-group/cafe-sync/internal/overpass/mocks"
)

func berlinOpts(limit int) Options {
	return Options{
		Area:         "Berlin",
		Boundary:     "administrative",
		TagKey:       "amenity",
		TagValue:     "cafe",
		Limit:        limit,
		QueryTimeout: 25 * time.Second,
	}
}

func node(id int64, tags map[string]string) overpass.Element {
	return overpass.Element{Type: "node", ID: id, Lat: 52.52, Lon: 13.40, Tags: tags}
}

func TestExtract_Scenario(t *testing.T) {
	client := mocks.NewMockClient(t)
	e := New(client, berlinOpts(50))

	client.On("Query", mock.Anything, e.Query()).Return(&overpass.Response{
		Elements: []overpass.Element{
			node(123, map[string]string{"amenity": "cafe", "contact:phone": "+49-30-1111"}),
		},
	}, nil)

	cafes, err := e.Extract(context.Background())
	require.NoError(t, err)
	require.Len(t, cafes, 1)

	c := cafes[0]
	assert.Equal(t, int64(123), c.OSMID)
	assert.Equal(t, "Unnamed", c.Name)
	assert.InDelta(t, 52.52, c.Lat, 1e-9)
	assert.InDelta(t, 13.40, c.Lon, 1e-9)
	require.NotNil(t, c.Phone)
	assert.Equal(t, "+49-30-1111", *c.Phone)
	assert.Nil(t, c.Website)
	assert.Nil(t, c.AddrStreet)
	assert.Nil(t, c.AddrHousenumber)
	assert.Nil(t, c.AddrPostcode)
	assert.Nil(t, c.AddrCity)
	assert.Nil(t, c.Timestamp)
}

func TestExtract_BoundsToLimit(t *testing.T) {
	client := mocks.NewMockClient(t)
	e := New(client, berlinOpts(2))

	client.On("Query", mock.Anything, mock.Anything).Return(&overpass.Response{
		Elements: []overpass.Element{
			node(1, nil), node(2, nil), node(3, nil), node(4, nil),
		},
	}, nil)

	cafes, err := e.Extract(context.Background())
	require.NoError(t, err)
	require.Len(t, cafes, 2)
	assert.Equal(t, int64(1), cafes[0].OSMID)
	assert.Equal(t, int64(2), cafes[1].OSMID)
}

func TestExtract_SkipsNonNodes(t *testing.T) {
	client := mocks.NewMockClient(t)
	e := New(client, berlinOpts(10))

	client.On("Query", mock.Anything, mock.Anything).Return(&overpass.Response{
		Elements: []overpass.Element{
			{Type: "way", ID: 9},
			node(1, map[string]string{"name": "Café Einstein"}),
		},
	}, nil)

	cafes, err := e.Extract(context.Background())
	require.NoError(t, err)
	require.Len(t, cafes, 1)
	assert.Equal(t, "Café Einstein", cafes[0].Name)
}

func TestExtract_QueryErrorPropagates(t *testing.T) {
	client := mocks.NewMockClient(t)
	e := New(client, berlinOpts(10))

	client.On("Query", mock.Anything, mock.Anything).Return(nil, errors.New("http 504 from overpass-api.de"))

	_, err := e.Extract(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extract: query Berlin")
	assert.Contains(t, err.Error(), "http 504")
}

func TestExtract_InvalidLimit(t *testing.T) {
	client := mocks.NewMockClient(t)
	e := New(client, berlinOpts(0))

	_, err := e.Extract(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit must be positive")
}

func TestExtractor_Query(t *testing.T) {
	e := New(nil, berlinOpts(50))
	assert.Equal(t, `[out:json][timeout:25];
area["name"="Berlin"]["boundary"="administrative"]->.searchArea;
node(area.searchArea)["amenity"="cafe"];
out 50;`, e.Query())
}

func TestFromElement_PhonePrecedence(t *testing.T) {
	tests := []struct {
		name string
		tags map[string]string
		want *string
	}{
		{"both present", map[string]string{"phone": "+49-1", "contact:phone": "+49-2"}, ptr("+49-1")},
		{"only contact", map[string]string{"contact:phone": "+49-2"}, ptr("+49-2")},
		{"empty preferred falls through", map[string]string{"phone": "", "contact:phone": "+49-2"}, ptr("+49-2")},
		{"neither", map[string]string{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := FromElement(node(1, tt.tags), DefaultPlaceholderName)
			assert.Equal(t, tt.want, c.Phone)
		})
	}
}

func TestFromElement_WebsitePrecedence(t *testing.T) {
	c := FromElement(node(1, map[string]string{
		"website":         "https://a.example",
		"contact:website": "https://b.example",
	}), DefaultPlaceholderName)
	require.NotNil(t, c.Website)
	assert.Equal(t, "https://a.example", *c.Website)

	c = FromElement(node(1, map[string]string{"contact:website": "https://b.example"}), DefaultPlaceholderName)
	require.NotNil(t, c.Website)
	assert.Equal(t, "https://b.example", *c.Website)
}

func TestFromElement_Name(t *testing.T) {
	c := FromElement(node(1, map[string]string{"name": "  Father Carpenter "}), DefaultPlaceholderName)
	assert.Equal(t, "  Father Carpenter ", c.Name)

	c = FromElement(node(1, nil), "Anonymous")
	assert.Equal(t, "Anonymous", c.Name)
}

func TestFromElement_Address(t *testing.T) {
	c := FromElement(node(1, map[string]string{
		"addr:street":      "Münzstraße",
		"addr:housenumber": "23",
		"addr:postcode":    "10178",
		"addr:city":        "Berlin",
	}), DefaultPlaceholderName)

	assert.Equal(t, ptr("Münzstraße"), c.AddrStreet)
	assert.Equal(t, ptr("23"), c.AddrHousenumber)
	assert.Equal(t, ptr("10178"), c.AddrPostcode)
	assert.Equal(t, ptr("Berlin"), c.AddrCity)
}

func TestNew_DefaultPlaceholder(t *testing.T) {
	e := New(nil, Options{})
	assert.Equal(t, "Unnamed", e.opts.PlaceholderName)
}

func ptr(s string) *string { return &s }
