package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/cafe-sync/internal/model"
)

func TestBatchBounds(t *testing.T) {
	assert.Nil(t, BatchBounds(nil))

	got := BatchBounds([]model.Cafe{{Lat: 52.52, Lon: 13.40}})
	assert.Equal(t, []float64{13.40, 52.52, 13.40, 52.52}, got)

	got = BatchBounds([]model.Cafe{
		{Lat: 52.45, Lon: 13.50},
		{Lat: 52.60, Lon: 13.20},
		{Lat: 52.50, Lon: 13.35},
	})
	assert.Equal(t, []float64{13.20, 52.45, 13.50, 52.60}, got)
}
