package models

// CityStats aggregates price movement per (city, property_type) over
// active records with a known change percentage.
type CityStats struct {
	City           string  `json:"city" db:"city"`
	PropertyType   string  `json:"property_type" db:"property_type"`
	Count          int     `json:"count" db:"count"`
	Drops          int     `json:"drops" db:"drops"`
	Increases      int     `json:"increases" db:"increases"`
	AvgChangePct   float64 `json:"avg_change_pct" db:"avg_change_pct"`
	MinChangePct   float64 `json:"min_change_pct" db:"min_change_pct"`
	MaxChangePct   float64 `json:"max_change_pct" db:"max_change_pct"`
}

// CreationStats counts records by creation time.
type CreationStats struct {
	Total   int `json:"total"`
	Last24h int `json:"last_24h"`
	Last7d  int `json:"last_7d"`
}
