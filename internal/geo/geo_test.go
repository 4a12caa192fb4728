package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceProperties(t *testing.T) {
	lausanne := NewPoint(6.6323, 46.5197)
	geneva := NewPoint(6.1432, 46.2044)

	assert.Equal(t, 0.0, Distance(lausanne, lausanne))
	assert.Equal(t, Distance(lausanne, geneva), Distance(geneva, lausanne))
	assert.Greater(t, Distance(lausanne, geneva), 0.0)
}

func TestDistanceKnownValues(t *testing.T) {
	// Lausanne to Geneva is roughly 50 km as the crow flies.
	lausanne := NewPoint(6.6323, 46.5197)
	geneva := NewPoint(6.1432, 46.2044)
	assert.InDelta(t, 50500, Distance(lausanne, geneva), 1500)

	// One degree of latitude on the sphere.
	assert.InDelta(t, 111195, Distance(NewPoint(0, 0), NewPoint(0, 1)), 1)
}

func TestPointValid(t *testing.T) {
	for _, tt := range []struct {
		name  string
		point Point
		want  bool
	}{
		{"origin", NewPoint(0, 0), true},
		{"lausanne", NewPoint(6.6323, 46.5197), true},
		{"lon boundary", NewPoint(180, 0), true},
		{"lat boundary", NewPoint(0, -90), true},
		{"with altitude", Point{Type: "Point", Coordinates: []float64{6.63, 46.52, 495}}, true},
		{"lat out of range", NewPoint(10, 95), false},
		{"lon out of range", NewPoint(-181, 0), false},
		{"wrong type", Point{Type: "Polygon", Coordinates: []float64{0, 0}}, false},
		{"missing coordinates", Point{Type: "Point"}, false},
		{"single coordinate", Point{Type: "Point", Coordinates: []float64{6.63}}, false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.point.Valid())
		})
	}
}
