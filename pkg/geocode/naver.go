package geocode

import (
	"context"
	"net/http"
	"net/url"
)

const (
	naverGeocodeURL = "https://maps.apigw.ntruss.com/map-geocode/v2/geocode"

	naverName = "naver"
)

// Naver geocodes via the NCP Maps geocode API. The API is geocode-only:
// Search always reports no match and the resolver defers to downstream
// fallback strategies instead.
type Naver struct {
	clientID     string
	clientSecret string
	tr           *transport
}

// NaverOption configures the Naver adapter.
type NaverOption func(*Naver)

// WithNaverHTTPClient sets a custom HTTP client (tests rewrite URLs here).
func WithNaverHTTPClient(hc *http.Client) NaverOption {
	return func(n *Naver) {
		n.tr.client = hc
	}
}

// NewNaver creates a Naver provider with the given API key pair.
func NewNaver(clientID, clientSecret string, opts ...NaverOption) *Naver {
	n := &Naver{
		clientID:     clientID,
		clientSecret: clientSecret,
		tr:           newTransport(naverName, 10),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Name implements Provider.
func (n *Naver) Name() string { return naverName }

// Available implements Provider.
func (n *Naver) Available() bool { return n.clientID != "" && n.clientSecret != "" }

// naverGeocodeResponse is the JSON body of the geocode endpoint. A failed
// lookup carries an errorMessage instead of addresses.
type naverGeocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"errorMessage"`
	Addresses    []struct {
		X            string `json:"x"`
		Y            string `json:"y"`
		RoadAddress  string `json:"roadAddress"`
		JibunAddress string `json:"jibunAddress"`
	} `json:"addresses"`
}

// Forward implements Provider. Naver has a single precision level; kind is
// accepted for interface uniformity and ignored.
func (n *Naver) Forward(ctx context.Context, addr string, _ AddressKind) (*Result, error) {
	params := url.Values{"query": {addr}}
	header := http.Header{
		"X-NCP-APIGW-API-KEY-ID": {n.clientID},
		"X-NCP-APIGW-API-KEY":    {n.clientSecret},
		"Accept":                 {"application/json"},
	}

	var out naverGeocodeResponse
	if err := n.tr.getJSON(ctx, naverGeocodeURL+"?"+params.Encode(), header, &out); err != nil {
		if isUnusable(err) {
			return &Result{Matched: false, Source: naverName}, nil
		}
		return nil, err
	}

	if out.Status != "OK" || out.ErrorMessage != "" || len(out.Addresses) == 0 {
		return &Result{Matched: false, Source: naverName}, nil
	}

	first := out.Addresses[0]
	lon, lat, ok := parseXY(first.X, first.Y)
	if !ok {
		return &Result{Matched: false, Source: naverName}, nil
	}

	display := first.RoadAddress
	if display == "" {
		display = first.JibunAddress
	}
	return &Result{Longitude: lon, Latitude: lat, Address: display, Source: naverName, Matched: true}, nil
}

// Search implements Provider. Naver exposes no POI search in this design.
func (n *Naver) Search(_ context.Context, _ string) (*Result, error) {
	return &Result{Matched: false, Source: naverName}, nil
}
