package models

import (
	"fmt"
	"math"
)

type Coordinates struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lon float64 `json:"lon" bson:"lon"`
}

func (c Coordinates) Validate() error {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) {
		return fmt.Errorf("coordinates must be numbers")
	}
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude %.6f out of range [-90, 90]", c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("longitude %.6f out of range [-180, 180]", c.Lon)
	}
	return nil
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// PlaceCandidate is one geocoding result offered to the user.
type PlaceCandidate struct {
	DisplayName string      `json:"display_name" bson:"display_name"`
	Coordinates Coordinates `json:"coordinates" bson:"coordinates"`
}

type MapConfig struct {
	Center      Coordinates `json:"center"`
	Zoom        int         `json:"zoom"`
	TileURL     string      `json:"tile_url"`
	Attribution string      `json:"attribution"`
}
