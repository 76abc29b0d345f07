package models

import (
	"fmt"
	"math"

	"github.com/mmcloughlin/geohash"
)

// GeoPoint представляет географическую точку
type GeoPoint struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Validate проверяет корректность координат
func (p GeoPoint) Validate() error {
	if p.Latitude < -90 || p.Latitude > 90 {
		return fmt.Errorf("invalid latitude: %f", p.Latitude)
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("invalid longitude: %f", p.Longitude)
	}
	return nil
}

// DistanceTo вычисляет расстояние до другой точки в метрах (формула Haversine)
func (p GeoPoint) DistanceTo(other GeoPoint) float64 {
	const earthRadius = 6371000.0 // м

	lat1Rad := p.Latitude * math.Pi / 180
	lat2Rad := other.Latitude * math.Pi / 180
	deltaLat := (other.Latitude - p.Latitude) * math.Pi / 180
	deltaLon := (other.Longitude - p.Longitude) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

// Geohash возвращает geohash для точки с заданной точностью
func (p GeoPoint) Geohash(precision int) string {
	return geohash.EncodeWithPrecision(p.Latitude, p.Longitude, uint(precision))
}
