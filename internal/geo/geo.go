package geo

import (
	"math"
)

// EarthRadiusMeters is the mean earth radius used for great-circle distances.
const EarthRadiusMeters = 6_371_000.0

// KmPerDegree is the approximate length of one degree of latitude.
const KmPerDegree = 111.0

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Box is an axis-aligned latitude/longitude rectangle. Bounds are inclusive.
type Box struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lng"`
	MaxLon float64 `json:"max_lng"`
}

// Haversine returns the great-circle distance between a and b in meters.
func Haversine(a, b Point) float64 {
	phi1 := radians(a.Lat)
	phi2 := radians(b.Lat)
	dPhi := radians(b.Lat - a.Lat)
	dLambda := radians(b.Lon - a.Lon)

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

// BoundingBox returns a rectangle that contains every point within radiusKm
// of center. The corners reach slightly past the radius, so the box is a
// prefilter only; refine with Haversine.
func BoundingBox(center Point, radiusKm float64) Box {
	latOffset := radiusKm / KmPerDegree

	box := Box{
		MinLat: center.Lat - latOffset,
		MaxLat: center.Lat + latOffset,
		MinLon: -180,
		MaxLon: 180,
	}

	cosLat := math.Cos(radians(center.Lat))
	if cosLat > 1e-9 {
		lonOffset := radiusKm / (KmPerDegree * cosLat)
		if lonOffset < 180 {
			box.MinLon = center.Lon - lonOffset
			box.MaxLon = center.Lon + lonOffset
		}
	}
	return box
}

// Contains reports whether p lies inside the box.
func (b Box) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// Valid reports whether the box has a positive extent on both axes.
func (b Box) Valid() bool {
	return b.MinLat < b.MaxLat && b.MinLon < b.MaxLon
}

// ValidLatLon reports whether lat/lon are inside the WGS84 ranges.
func ValidLatLon(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180 &&
		!math.IsNaN(lat) && !math.IsNaN(lon)
}

// Destination returns the point reached by travelling distanceMeters from
// origin along the given initial bearing (degrees clockwise from north).
func Destination(origin Point, bearingDeg, distanceMeters float64) Point {
	delta := distanceMeters / EarthRadiusMeters
	theta := radians(bearingDeg)
	phi1 := radians(origin.Lat)
	lambda1 := radians(origin.Lon)

	phi2 := math.Asin(math.Sin(phi1)*math.Cos(delta) +
		math.Cos(phi1)*math.Sin(delta)*math.Cos(theta))
	lambda2 := lambda1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(phi1),
		math.Cos(delta)-math.Sin(phi1)*math.Sin(phi2),
	)
	return Point{Lat: degrees(phi2), Lon: degrees(lambda2)}
}

// RoundTo rounds v to the given number of decimal places.
func RoundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func radians(d float64) float64 { return d * math.Pi / 180 }

func degrees(r float64) float64 { return r * 180 / math.Pi }
