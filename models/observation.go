package models

import (
	"encoding/json"
	"time"
)

// Observation is one normalized listing as reported by a crawl pass.
// Field extraction, translation and geocoding happen upstream; this core
// only decides identity and change.
type Observation struct {
	Source     string `json:"source"`
	ExternalID string `json:"external_id"`
	URL        string `json:"url"`

	Title        string   `json:"title"`
	Description  string   `json:"description"`
	PropertyType string   `json:"property_type"`
	DealType     string   `json:"deal_type"`
	Country      string   `json:"country"`
	County       string   `json:"county"`
	City         string   `json:"city"`
	Neighborhood string   `json:"neighborhood"`
	Address      string   `json:"address"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	SquareMeters *int     `json:"square_meters"`
	RoomCount    *int     `json:"room_count"`
	Floor        *int     `json:"floor"`

	PriceRON *float64 `json:"price_ron"`
	PriceEUR *float64 `json:"price_eur"`
	Currency string   `json:"currency"`

	Status     PropertyStatus  `json:"status"`
	ObservedAt time.Time       `json:"observed_at"`
	RawData    json.RawMessage `json:"raw_data,omitempty"`
}

// Validate rejects malformed observations before they reach
// reconciliation. A rejected observation is logged, not retried.
func (o *Observation) Validate() error {
	if o.Source == "" {
		return &ValidationError{Field: "source", Reason: "required"}
	}
	if o.ExternalID == "" && o.URL == "" && o.Address == "" {
		return &ValidationError{Field: "external_id", Reason: "no stable identity key (external_id, url or address)"}
	}
	if o.Latitude != nil && (*o.Latitude < -90 || *o.Latitude > 90) {
		return &ValidationError{Field: "latitude", Reason: "out of range"}
	}
	if o.Longitude != nil && (*o.Longitude < -180 || *o.Longitude > 180) {
		return &ValidationError{Field: "longitude", Reason: "out of range"}
	}
	if o.SquareMeters != nil && *o.SquareMeters <= 0 {
		return &ValidationError{Field: "square_meters", Reason: "must be positive"}
	}
	if o.PriceRON != nil && *o.PriceRON < 0 {
		return &ValidationError{Field: "price_ron", Reason: "negative"}
	}
	if o.PriceEUR != nil && *o.PriceEUR < 0 {
		return &ValidationError{Field: "price_eur", Reason: "negative"}
	}
	return nil
}
