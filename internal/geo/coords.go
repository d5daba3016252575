package geo

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Coordinates is a WGS84 latitude/longitude pair.
type Coordinates struct {
	Lat float64
	Lng float64
}

const earthRadiusKm = 6371.0

// Valid reports whether the pair lies inside the WGS84 ranges.
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

var coordinatePairRe = regexp.MustCompile(`^(-?\d+(?:\.\d+)?)\s*[,;]\s*(-?\d+(?:\.\d+)?)$`)

// ParseCoordinates accepts a literal "lat,lng" (or "lat;lng") pair. Values
// outside the valid latitude/longitude ranges are rejected.
func ParseCoordinates(value string) (Coordinates, bool) {
	text := strings.TrimSpace(value)
	if text == "" {
		return Coordinates{}, false
	}
	match := coordinatePairRe.FindStringSubmatch(text)
	if match == nil {
		return Coordinates{}, false
	}
	lat, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return Coordinates{}, false
	}
	lng, err := strconv.ParseFloat(match[2], 64)
	if err != nil {
		return Coordinates{}, false
	}
	coords := Coordinates{Lat: lat, Lng: lng}
	if !coords.Valid() {
		return Coordinates{}, false
	}
	return coords, true
}

// HaversineKm returns the great-circle distance between two points in
// kilometers.
func HaversineKm(from, to Coordinates) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(to.Lat - from.Lat)
	dLng := toRad(to.Lng - from.Lng)
	lat1 := toRad(from.Lat)
	lat2 := toRad(to.Lat)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}
