package geocode

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"
)

const (
	vworldGeocodeURL = "http://api.vworld.kr/req/address"
	vworldSearchURL  = "http://api.vworld.kr/req/search"

	vworldName = "vworld"
)

// VWorld geocodes via the national spatial data portal (vworld.kr).
// It offers both structured-address geocoding and free-text place search.
type VWorld struct {
	key string
	tr  *transport
}

// VWorldOption configures the VWorld adapter.
type VWorldOption func(*VWorld)

// WithVWorldHTTPClient sets a custom HTTP client (tests rewrite URLs here).
func WithVWorldHTTPClient(hc *http.Client) VWorldOption {
	return func(v *VWorld) {
		v.tr.client = hc
	}
}

// NewVWorld creates a VWorld provider with the given API key.
func NewVWorld(key string, opts ...VWorldOption) *VWorld {
	v := &VWorld{
		key: key,
		tr:  newTransport(vworldName, 10),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Name implements Provider.
func (v *VWorld) Name() string { return vworldName }

// Available implements Provider.
func (v *VWorld) Available() bool { return v.key != "" }

// vworldGeocodeResponse is the JSON envelope of the getCoord endpoint.
// Coordinates arrive as strings.
type vworldGeocodeResponse struct {
	Response struct {
		Status  string `json:"status"`
		Refined struct {
			Text string `json:"text"`
		} `json:"refined"`
		Result struct {
			Point struct {
				X string `json:"x"`
				Y string `json:"y"`
			} `json:"point"`
		} `json:"result"`
	} `json:"response"`
}

// Forward implements Provider via the structured-address getCoord endpoint.
func (v *VWorld) Forward(ctx context.Context, addr string, kind AddressKind) (*Result, error) {
	params := url.Values{
		"service": {"address"},
		"request": {"getCoord"},
		"version": {"2.0"},
		"crs":     {"epsg:4326"},
		"address": {addr},
		"format":  {"json"},
		"type":    {string(kind)},
		"key":     {v.key},
	}

	var out vworldGeocodeResponse
	if err := v.tr.getJSON(ctx, vworldGeocodeURL+"?"+params.Encode(), nil, &out); err != nil {
		if isUnusable(err) {
			return &Result{Matched: false, Source: vworldName}, nil
		}
		return nil, err
	}

	if out.Response.Status != "OK" {
		return &Result{Matched: false, Source: vworldName}, nil
	}

	lon, lat, ok := parseXY(out.Response.Result.Point.X, out.Response.Result.Point.Y)
	if !ok {
		return &Result{Matched: false, Source: vworldName}, nil
	}

	display := out.Response.Refined.Text
	if display == "" {
		display = addr
	}
	return &Result{Longitude: lon, Latitude: lat, Address: display, Source: vworldName, Matched: true}, nil
}

// vworldSearchResponse is the JSON envelope of the search endpoint.
type vworldSearchResponse struct {
	Response struct {
		Status string `json:"status"`
		Result struct {
			Items []struct {
				Point struct {
					X string `json:"x"`
					Y string `json:"y"`
				} `json:"point"`
				RoadAddress string `json:"roadAddress"`
				Address     struct {
					Road   string `json:"road"`
					Parcel string `json:"parcel"`
				} `json:"address"`
			} `json:"items"`
		} `json:"result"`
	} `json:"response"`
}

// Search implements Provider via the free-text place search endpoint.
// It returns the first (highest-ranked) item; no geometric re-ranking.
func (v *VWorld) Search(ctx context.Context, query string) (*Result, error) {
	params := url.Values{
		"service": {"search"},
		"request": {"search"},
		"version": {"2.0"},
		"crs":     {"epsg:4326"},
		"query":   {query},
		"type":    {"place"},
		"format":  {"json"},
		"size":    {"10"},
		"key":     {v.key},
	}

	var out vworldSearchResponse
	if err := v.tr.getJSON(ctx, vworldSearchURL+"?"+params.Encode(), nil, &out); err != nil {
		if isUnusable(err) {
			return &Result{Matched: false, Source: vworldName}, nil
		}
		return nil, err
	}

	if out.Response.Status != "OK" || len(out.Response.Result.Items) == 0 {
		return &Result{Matched: false, Source: vworldName}, nil
	}

	item := out.Response.Result.Items[0]
	lon, lat, ok := parseXY(item.Point.X, item.Point.Y)
	if !ok {
		return &Result{Matched: false, Source: vworldName}, nil
	}

	display := item.RoadAddress
	if display == "" {
		display = item.Address.Road
	}
	if display == "" {
		display = item.Address.Parcel
	}

	zap.L().Debug("vworld search hit", zap.String("query", query), zap.String("address", display))
	return &Result{Longitude: lon, Latitude: lat, Address: display, Source: vworldName, Matched: true}, nil
}

// parseXY parses provider coordinate strings; ok is false when either fails.
func parseXY(xs, ys string) (lon, lat float64, ok bool) {
	lon, errX := strconv.ParseFloat(xs, 64)
	lat, errY := strconv.ParseFloat(ys, 64)
	if errX != nil || errY != nil {
		return 0, 0, false
	}
	return lon, lat, true
}
