package pipeline

import (
	"github.com/twpayne/go-geom"

	"github.com/sells-group/cafe-sync/internal/model"
)

// BatchBounds returns the lon/lat extent of cafes as
// [min_lon, min_lat, max_lon, max_lat], or nil for an empty batch.
func BatchBounds(cafes []model.Cafe) []float64 {
	if len(cafes) == 0 {
		return nil
	}

	flat := make([]float64, 0, 2*len(cafes))
	for _, c := range cafes {
		flat = append(flat, c.Lon, c.Lat)
	}
	b := geom.NewMultiPointFlat(geom.XY, flat).SetSRID(4326).Bounds()

	return []float64{b.Min(0), b.Min(1), b.Max(0), b.Max(1)}
}
