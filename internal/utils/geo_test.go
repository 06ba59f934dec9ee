package utils

import (
	"testing"

	"routeplanner/pkg/maps"
)

func TestEncodePolyline(t *testing.T) {
	points := []maps.Location{
		{Latitude: 38.5, Longitude: -120.2},
		{Latitude: 40.7, Longitude: -120.95},
		{Latitude: 43.252, Longitude: -126.453},
	}

	if got, want := EncodePolyline(points), "_p~iF~ps|U_ulLnnqC_mqNvxq`@"; got != want {
		t.Fatalf("EncodePolyline = %q, want %q", got, want)
	}
	if got := EncodePolyline(nil); got != "" {
		t.Fatalf("EncodePolyline(nil) = %q", got)
	}
}
