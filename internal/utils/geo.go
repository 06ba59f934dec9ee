package utils

import (
	"math"
	"strings"

	"routeplanner/pkg/maps"
)

// EncodePolyline encodes points with the encoded polyline algorithm at
// five decimal places.
func EncodePolyline(points []maps.Location) string {
	var b strings.Builder
	prevLat, prevLng := 0, 0

	for _, point := range points {
		lat := int(math.Round(point.Latitude * 1e5))
		lng := int(math.Round(point.Longitude * 1e5))

		encodeSignedNumber(&b, lat-prevLat)
		encodeSignedNumber(&b, lng-prevLng)

		prevLat, prevLng = lat, lng
	}

	return b.String()
}

func encodeSignedNumber(b *strings.Builder, num int) {
	shifted := num << 1
	if num < 0 {
		shifted = ^shifted
	}
	encodeNumber(b, shifted)
}

func encodeNumber(b *strings.Builder, num int) {
	for num >= 0x20 {
		b.WriteByte(byte((0x20 | (num & 0x1f)) + 63))
		num >>= 5
	}
	b.WriteByte(byte(num + 63))
}
