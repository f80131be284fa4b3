package models

import "errors"

// GeoPoint is a GeoJSON point; Coordinates are [longitude, latitude].
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
}

func NewGeoPoint(lat, lng float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: []float64{lng, lat}}
}

func (p GeoPoint) Longitude() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[0]
}

func (p GeoPoint) Latitude() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[1]
}

// Location is the wire form clients send. Pointers distinguish "absent" from zero.
type Location struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

var (
	ErrLocationMissing    = errors.New("location must include latitude and longitude")
	ErrLocationOutOfRange = errors.New("latitude must be within [-90, 90] and longitude within [-180, 180]")
)

func (l *Location) Point() (GeoPoint, error) {
	if l == nil || l.Latitude == nil || l.Longitude == nil {
		return GeoPoint{}, ErrLocationMissing
	}
	lat, lng := *l.Latitude, *l.Longitude
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return GeoPoint{}, ErrLocationOutOfRange
	}
	return NewGeoPoint(lat, lng), nil
}
