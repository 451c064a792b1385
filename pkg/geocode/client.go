// Package geocode resolves Korean place strings to WGS84 coordinates via
// VWorld (primary) and Naver (fallback), with layered retry strategies.
package geocode

import (
	"context"

	"github.com/rotisserie/eris"
)

// AddressKind selects the structured-geocoding precision level.
type AddressKind string

const (
	// KindRoad geocodes against road-name addresses (도로명주소).
	KindRoad AddressKind = "ROAD"
	// KindParcel geocodes against land-parcel addresses (지번주소).
	KindParcel AddressKind = "PARCEL"
)

// Result holds the geocoding output for one address.
type Result struct {
	Longitude float64
	Latitude  float64
	Address   string // provider's refined display address
	Source    string // "vworld" or "naver"
	Matched   bool
}

// Provider is a single geocoding backend. Forward performs structured-address
// geocoding; Search performs free-text place/POI lookup and returns the
// highest-ranked hit.
//
// Adapters convert remote rejections (non-OK status, malformed JSON, empty
// result lists) into an unmatched Result with a nil error. Only connectivity
// failures surface as errors, and callers treat those the same way: move on
// to the next fallback. Adapters hold no cache and no fallback logic.
type Provider interface {
	Name() string
	Forward(ctx context.Context, addr string, kind AddressKind) (*Result, error)
	Search(ctx context.Context, query string) (*Result, error)
	Available() bool
}

// ErrMissingCredentials is returned before any network attempt when the
// requested provider has no API credentials configured.
var ErrMissingCredentials = eris.New("geocode: provider credentials not configured")
