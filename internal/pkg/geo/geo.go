package geo

import (
	"math"
	"strconv"
	"strings"
)

const earthRadiusKm = 6371.0

// UnknownGPS is the sentinel value used when a location was not captured.
const UnknownGPS = "0|0"

// Parse splits a "lat|lng" pair into coordinates. Returns ok=false for the
// "0|0" sentinel, malformed strings, and out-of-range coordinates.
func Parse(gps string) (lat, lng float64, ok bool) {
	if gps == "" || gps == UnknownGPS {
		return 0, 0, false
	}
	parts := strings.Split(gps, "|")
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, false
	}
	lng, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, false
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return 0, 0, false
	}
	if lat == 0 && lng == 0 {
		return 0, 0, false
	}
	return lat, lng, true
}

// HaversineKm returns the great-circle distance in kilometers.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
