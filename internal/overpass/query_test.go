package overpass

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAreaQuery_String(t *testing.T) {
	q := AreaQuery{
		Area:     "Berlin",
		Boundary: "administrative",
		TagKey:   "amenity",
		TagValue: "cafe",
		Limit:    50,
		Timeout:  25 * time.Second,
	}

	want := `[out:json][timeout:25];
area["name"="Berlin"]["boundary"="administrative"]->.searchArea;
node(area.searchArea)["amenity"="cafe"];
out 50;`
	assert.Equal(t, want, q.String())
}

func TestAreaQuery_NoBoundaryNoLimitNoTimeout(t *testing.T) {
	q := AreaQuery{Area: "Hamburg", TagKey: "amenity", TagValue: "cafe"}

	want := `[out:json];
area["name"="Hamburg"]->.searchArea;
node(area.searchArea)["amenity"="cafe"];
out;`
	assert.Equal(t, want, q.String())
}

func TestAreaQuery_EscapesValues(t *testing.T) {
	q := AreaQuery{Area: `Saint "Quoted" \ Town`, TagKey: "amenity", TagValue: "cafe", Limit: 1}
	assert.Contains(t, q.String(), `area["name"="Saint \"Quoted\" \\ Town"]`)
}
