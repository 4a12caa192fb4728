// Package geo holds the GeoJSON point type used for player and base positions
// and the great-circle distance between two points.
package geo

import "math"

const earthRadiusMeters = 6371000.0

// Point is a GeoJSON Point geometry. Coordinates are longitude first, then
// latitude, in decimal degrees.
type Point struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

func NewPoint(lon, lat float64) Point {
	return Point{Type: "Point", Coordinates: []float64{lon, lat}}
}

func (p Point) Lon() float64 { return p.Coordinates[0] }
func (p Point) Lat() float64 { return p.Coordinates[1] }

// Valid reports whether the point is a well-formed GeoJSON Point with
// coordinates on the globe. A third coordinate (altitude) is tolerated and
// ignored.
func (p Point) Valid() bool {
	if p.Type != "Point" {
		return false
	}
	if len(p.Coordinates) < 2 || len(p.Coordinates) > 3 {
		return false
	}
	return IsLongitude(p.Coordinates[0]) && IsLatitude(p.Coordinates[1])
}

func IsLatitude(lat float64) bool { return lat >= -90 && lat <= 90 }

func IsLongitude(lon float64) bool { return lon >= -180 && lon <= 180 }

// Distance returns the great-circle distance between two points in meters,
// using the haversine formula on a spherical earth.
func Distance(a, b Point) float64 {
	lat1 := a.Lat() * math.Pi / 180
	lat2 := b.Lat() * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Lon() - a.Lon()) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}
