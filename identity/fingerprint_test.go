package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Landmarklens/ImobiliareScraper/models"
)

func TestFingerprintFromExternalID(t *testing.T) {
	obs := &models.Observation{Source: "imobiliare", ExternalID: "X9AB1200F"}

	got := Fingerprint(obs)

	want := sha256.Sum256([]byte("imobiliare_X9AB1200F"))
	assert.Equal(t, hex.EncodeToString(want[:]), got)
	assert.Len(t, got, 64)
}

func TestFingerprintIsDeterministic(t *testing.T) {
	obs := &models.Observation{Source: "olx", ExternalID: "12345"}
	assert.Equal(t, Fingerprint(obs), Fingerprint(obs))
}

func TestFingerprintScopedBySource(t *testing.T) {
	a := &models.Observation{Source: "imobiliare", ExternalID: "12345"}
	b := &models.Observation{Source: "olx", ExternalID: "12345"}
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprintFallbackIgnoresVolatileFields(t *testing.T) {
	size := 75
	a := &models.Observation{
		Source:       "storia",
		URL:          "https://storia.ro/oferta/apartament-3-camere/",
		Address:      "Strada Victoriei 12, București",
		SquareMeters: &size,
		Title:        "Apartament superb!",
	}
	b := &models.Observation{
		Source:       "storia",
		URL:          "https://storia.ro/oferta/apartament-3-camere",
		Address:      "strada victoriei 12, bucurești",
		SquareMeters: &size,
		Title:        "PRET REDUS - apartament 3 camere",
	}

	// Same listing re-scraped with a retitled ad and a trailing slash.
	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprintFallbackDistinguishesAddresses(t *testing.T) {
	size := 75
	a := &models.Observation{Source: "storia", Address: "Strada Victoriei 12", SquareMeters: &size}
	b := &models.Observation{Source: "storia", Address: "Strada Victoriei 14", SquareMeters: &size}
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Strada Victoriei 12, București", "strada victoriei 12 bucuresti"},
		{"  Şoseaua   Ştefan cel Mare  ", "soseaua stefan cel mare"},
		{"Bd. Unirii nr. 7, ap. 3", "bd unirii nr 7 ap 3"},
		{"Țara Românească", "tara romaneasca"},
		{"", ""},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, NormalizeAddress(tt.in), "input %q", tt.in)
	}
}
