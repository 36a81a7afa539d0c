package model

import "time"

// Cafe is a single café point of interest as extracted from OpenStreetMap
// and persisted in the destination table.
type Cafe struct {
	OSMID           int64      `json:"osm_id" yaml:"osm_id"`
	Name            string     `json:"name" yaml:"name"`
	Lat             float64    `json:"lat" yaml:"lat"`
	Lon             float64    `json:"lon" yaml:"lon"`
	Phone           *string    `json:"phone" yaml:"phone"`
	Website         *string    `json:"website" yaml:"website"`
	AddrStreet      *string    `json:"addr_street" yaml:"addr_street"`
	AddrHousenumber *string    `json:"addr_housenumber" yaml:"addr_housenumber"`
	AddrPostcode    *string    `json:"addr_postcode" yaml:"addr_postcode"`
	AddrCity        *string    `json:"addr_city" yaml:"addr_city"`
	Timestamp       *time.Time `json:"timestamp,omitempty" yaml:"timestamp,omitempty"` // set by the store on insert
}

// CafeColumns lists the insertable columns in table order. The timestamp
// column is omitted because the store assigns it.
var CafeColumns = []string{
	"osm_id", "name", "lat", "lon", "phone", "website",
	"addr_street", "addr_housenumber", "addr_postcode", "addr_city",
}

// Values returns the insertable column values in CafeColumns order.
func (c Cafe) Values() []any {
	return []any{
		c.OSMID, c.Name, c.Lat, c.Lon, c.Phone, c.Website,
		c.AddrStreet, c.AddrHousenumber, c.AddrPostcode, c.AddrCity,
	}
}

// StringOrEmpty dereferences an optional field, returning "" for nil.
func StringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
