package types

import "strings"

// GeoPoint is an optional drop location.
type GeoPoint struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

// DeliveryAddress is stored as JSON on the order row.
type DeliveryAddress struct {
	Street      string    `json:"street" validate:"required,max=200"`
	City        string    `json:"city" validate:"required,max=100"`
	State       string    `json:"state" validate:"required,max=100"`
	Pincode     string    `json:"pincode" validate:"required,len=6,numeric"`
	Coordinates *GeoPoint `json:"coordinates,omitempty" validate:"omitempty"`
}

// Normalize trims surrounding whitespace from every text field.
func (a DeliveryAddress) Normalize() DeliveryAddress {
	a.Street = strings.TrimSpace(a.Street)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.Pincode = strings.TrimSpace(a.Pincode)
	return a
}
