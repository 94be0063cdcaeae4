package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/Landmarklens/ImobiliareScraper/models"
)

var (
	diacriticReplacements = map[string]string{
		"ă": "a",
		"â": "a",
		"î": "i",
		"ș": "s",
		"ş": "s",
		"ț": "t",
		"ţ": "t",
	}
	multiSpaceRegex = regexp.MustCompile(`\s+`)
	nonAlnumRegex   = regexp.MustCompile(`[^a-z0-9\s]`)
)

// Fingerprint derives the stable identity key for an observation. Two
// observations of the same physical listing must hash to the same value
// across crawls, so the input is either the source-scoped external id or
// a canonicalized set of stable descriptive fields.
func Fingerprint(obs *models.Observation) string {
	var input string
	if obs.ExternalID != "" {
		input = fmt.Sprintf("%s_%s", obs.Source, obs.ExternalID)
	} else {
		size := 0
		if obs.SquareMeters != nil {
			size = *obs.SquareMeters
		}
		input = fmt.Sprintf("%s|%s|%s|%d",
			obs.Source,
			urlPath(obs.URL),
			NormalizeAddress(obs.Address),
			size,
		)
	}
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])
}

// NormalizeAddress collapses an address into a stable comparison form:
// lowercase, ASCII folded, punctuation stripped, single-spaced.
func NormalizeAddress(addr string) string {
	addr = strings.ToLower(strings.TrimSpace(addr))
	for from, to := range diacriticReplacements {
		addr = strings.ReplaceAll(addr, from, to)
	}
	addr = nonAlnumRegex.ReplaceAllString(addr, " ")
	addr = multiSpaceRegex.ReplaceAllString(addr, " ")
	return strings.TrimSpace(addr)
}

func urlPath(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return strings.ToLower(raw)
	}
	return strings.ToLower(strings.TrimSuffix(u.Path, "/"))
}
