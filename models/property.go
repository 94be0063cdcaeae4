package models

import (
	"time"

	"github.com/google/uuid"
)

// PropertyStatus is the lifecycle state of a tracked record. Records are
// never hard-deleted; disappearance from crawl results is a status
// transition reported by the crawl layer.
type PropertyStatus string

const (
	StatusActive      PropertyStatus = "active"
	StatusInactive    PropertyStatus = "inactive"
	StatusUnavailable PropertyStatus = "unavailable"
)

// PropertyRecord is one persistent entity per physical listing, keyed by
// fingerprint. The price-tracking scalars are a denormalized cache of the
// two most recent price history entries.
type PropertyRecord struct {
	ID             uuid.UUID `json:"id" db:"id"`
	Fingerprint    string    `json:"fingerprint" db:"fingerprint"`
	ExternalSource string    `json:"external_source" db:"external_source"`
	ExternalID     string    `json:"external_id" db:"external_id"`
	ExternalURL    string    `json:"external_url" db:"external_url"`

	Title        string   `json:"title" db:"title"`
	Description  string   `json:"description" db:"description"`
	PropertyType string   `json:"property_type" db:"property_type"`
	DealType     string   `json:"deal_type" db:"deal_type"`
	Country      string   `json:"country" db:"country"`
	County       string   `json:"county" db:"county"`
	City         string   `json:"city" db:"city"`
	Neighborhood string   `json:"neighborhood" db:"neighborhood"`
	Address      string   `json:"address" db:"address"`
	Latitude     *float64 `json:"latitude" db:"latitude"`
	Longitude    *float64 `json:"longitude" db:"longitude"`
	SquareMeters *int     `json:"square_meters" db:"square_meters"`
	RoomCount    *int     `json:"room_count" db:"room_count"`
	Floor        *int     `json:"floor" db:"floor"`

	PriceRON *float64 `json:"price_ron" db:"price_ron"`
	PriceEUR *float64 `json:"price_eur" db:"price_eur"`
	Currency string   `json:"currency" db:"currency"`

	PreviousPriceRON      *float64   `json:"previous_price_ron" db:"previous_price_ron"`
	PreviousPriceEUR      *float64   `json:"previous_price_eur" db:"previous_price_eur"`
	PriceChangeRON        *float64   `json:"price_change_ron" db:"price_change_ron"`
	PriceChangeEUR        *float64   `json:"price_change_eur" db:"price_change_eur"`
	PriceChangePercentage *float64   `json:"price_change_percentage" db:"price_change_percentage"`
	PriceLastChanged      *time.Time `json:"price_last_changed" db:"price_last_changed"`
	PriceChangeCount      int        `json:"price_change_count" db:"price_change_count"`
	PriceDropAlert        bool       `json:"price_drop_alert" db:"price_drop_alert"`
	HighestPriceRON       *float64   `json:"highest_price_ron" db:"highest_price_ron"`
	LowestPriceRON        *float64   `json:"lowest_price_ron" db:"lowest_price_ron"`

	Status    PropertyStatus `json:"status" db:"status"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}

// PriceHistoryEntry is one append-only price snapshot for a record.
// Entries are never mutated after insertion.
type PriceHistoryEntry struct {
	Fingerprint string    `json:"fingerprint" db:"fingerprint"`
	ObservedAt  time.Time `json:"observed_at" db:"observed_at"`
	PriceRON    *float64  `json:"price_ron" db:"price_ron"`
	PriceEUR    *float64  `json:"price_eur" db:"price_eur"`
}
