package entity

import "math"

const earthRadiusKm = 6371.0

// Location is a resolved coordinate pair. Geocoding happens outside the
// service; only the result is stored.
type Location struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lon float64 `bson:"lon" json:"lon"`
}

// DistanceKm returns the great-circle distance to other using the haversine
// formula on a spherical-earth approximation.
func (l Location) DistanceKm(other Location) float64 {
	lat1 := l.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	dLat := (other.Lat - l.Lat) * math.Pi / 180
	dLon := (other.Lon - l.Lon) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// WithinKm reports whether other lies within radiusKm, inclusive at the
// boundary.
func (l Location) WithinKm(other Location, radiusKm float64) bool {
	return l.DistanceKm(other) <= radiusKm
}
