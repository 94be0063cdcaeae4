package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

func TestObservationValidate(t *testing.T) {
	valid := Observation{Source: "imobiliare", ExternalID: "A100"}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name  string
		obs   Observation
		field string
	}{
		{"missing source", Observation{ExternalID: "A100"}, "source"},
		{"no identity key", Observation{Source: "imobiliare"}, "external_id"},
		{"latitude out of range", Observation{Source: "s", ExternalID: "1", Latitude: fptr(91)}, "latitude"},
		{"longitude out of range", Observation{Source: "s", ExternalID: "1", Longitude: fptr(-181)}, "longitude"},
		{"zero square meters", Observation{Source: "s", ExternalID: "1", SquareMeters: iptr(0)}, "square_meters"},
		{"negative price", Observation{Source: "s", ExternalID: "1", PriceRON: fptr(-1)}, "price_ron"},
		{"negative eur price", Observation{Source: "s", ExternalID: "1", PriceEUR: fptr(-1)}, "price_eur"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.obs.Validate()
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.field, validationErr.Field)
		})
	}
}

func TestObservationIdentityFallbacks(t *testing.T) {
	// Any one of the three identity keys is enough.
	assert.NoError(t, (&Observation{Source: "s", URL: "https://x/1"}).Validate())
	assert.NoError(t, (&Observation{Source: "s", Address: "Strada Victoriei 12"}).Validate())
}
