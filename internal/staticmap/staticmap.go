// Package staticmap fetches rendered basemap images from the VWorld and
// Naver static map services.
package staticmap

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/placemap/internal/retry"
)

const (
	vworldImageURL  = "http://api.vworld.kr/req/image"
	naverRasterURL  = "https://maps.apigw.ntruss.com/map-static/v2/raster"
	requestTimeout  = 30 * time.Second
	defaultBasemap  = "GRAPHIC"
	defaultCacheTTL = 10 * time.Minute
	defaultCacheCap = 32
)

// Spec names one basemap request. Zoom is the integer upstream level; the
// fractional fit zoom is floored before fetching.
type Spec struct {
	CenterLon float64
	CenterLat float64
	Zoom      int
	Width     int
	Height    int
}

// Source fetches encoded basemap images from one upstream provider.
type Source interface {
	Name() string
	Fetch(ctx context.Context, s Spec) ([]byte, error)
	Available() bool
}

// Fetcher wraps a Source with an image cache and retry on transient upstream
// failures.
type Fetcher struct {
	source Source
	client *http.Client
	cache  *Cache
	retry  retry.Config
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithCache replaces the default cache.
func WithCache(c *Cache) Option {
	return func(f *Fetcher) { f.cache = c }
}

// WithHTTPClient replaces the HTTP client used by the wrapped source.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithRetry overrides the retry policy.
func WithRetry(cfg retry.Config) Option {
	return func(f *Fetcher) { f.retry = cfg }
}

// NewFetcher builds a caching fetcher over a source constructor. kind is
// "vworld" or "naver"; credentials are positional: VWorld takes (key),
// Naver takes (clientID, clientSecret).
func NewFetcher(kind string, creds []string, opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		client: &http.Client{Timeout: requestTimeout},
		cache:  NewCache(defaultCacheCap, defaultCacheTTL),
	}
	for _, opt := range opts {
		opt(f)
	}

	switch kind {
	case "vworld":
		if len(creds) < 1 {
			return nil, eris.New("staticmap: vworld requires an api key")
		}
		f.source = &vworldSource{key: creds[0], client: f.client}
	case "naver":
		if len(creds) < 2 {
			return nil, eris.New("staticmap: naver requires client id and secret")
		}
		f.source = &naverSource{clientID: creds[0], clientSecret: creds[1], client: f.client}
	default:
		return nil, eris.Errorf("staticmap: unknown source %q", kind)
	}
	return f, nil
}

// Name reports the wrapped source name.
func (f *Fetcher) Name() string { return f.source.Name() }

// Available reports whether the wrapped source has credentials.
func (f *Fetcher) Available() bool { return f.source.Available() }

// Stats exposes cache counters.
func (f *Fetcher) Stats() CacheStats { return f.cache.Stats() }

// Fetch returns the basemap for the spec, consulting the cache first.
func (f *Fetcher) Fetch(ctx context.Context, s Spec) (image.Image, error) {
	if cached := f.cache.Get(f.source.Name(), s); cached != nil {
		img, _, err := image.Decode(bytes.NewReader(cached))
		if err == nil {
			return img, nil
		}
		// A corrupt cache entry falls through to a fresh fetch.
	}

	data, err := retry.Do(ctx, f.retry, "staticmap."+f.source.Name(),
		func(ctx context.Context) ([]byte, error) {
			return f.source.Fetch(ctx, s)
		})
	if err != nil {
		return nil, err
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, eris.Wrapf(err, "staticmap: decode %s image", f.source.Name())
	}

	f.cache.Put(f.source.Name(), s, data)
	zap.L().Debug("staticmap: fetched basemap",
		zap.String("source", f.source.Name()),
		zap.String("format", format),
		zap.Int("bytes", len(data)))
	return img, nil
}

type vworldSource struct {
	key    string
	client *http.Client
}

func (v *vworldSource) Name() string    { return "vworld" }
func (v *vworldSource) Available() bool { return v.key != "" }

func (v *vworldSource) Fetch(ctx context.Context, s Spec) ([]byte, error) {
	params := url.Values{}
	params.Set("service", "image")
	params.Set("request", "getmap")
	params.Set("version", "2.0")
	params.Set("crs", "epsg:4326")
	params.Set("center", fmt.Sprintf("%f,%f", s.CenterLon, s.CenterLat))
	params.Set("zoom", fmt.Sprintf("%d", s.Zoom))
	params.Set("size", fmt.Sprintf("%d,%d", s.Width, s.Height))
	params.Set("basemap", defaultBasemap)
	params.Set("format", "png")
	params.Set("key", v.key)

	return fetchBytes(ctx, v.client, vworldImageURL+"?"+params.Encode(), nil, "vworld")
}

type naverSource struct {
	clientID     string
	clientSecret string
	client       *http.Client
}

func (n *naverSource) Name() string    { return "naver" }
func (n *naverSource) Available() bool { return n.clientID != "" && n.clientSecret != "" }

func (n *naverSource) Fetch(ctx context.Context, s Spec) ([]byte, error) {
	params := url.Values{}
	params.Set("center", fmt.Sprintf("%f,%f", s.CenterLon, s.CenterLat))
	params.Set("level", fmt.Sprintf("%d", s.Zoom))
	params.Set("w", fmt.Sprintf("%d", s.Width))
	params.Set("h", fmt.Sprintf("%d", s.Height))
	params.Set("format", "png")

	headers := map[string]string{
		"X-NCP-APIGW-API-KEY-ID": n.clientID,
		"X-NCP-APIGW-API-KEY":    n.clientSecret,
	}
	return fetchBytes(ctx, n.client, naverRasterURL+"?"+params.Encode(), headers, "naver")
}

func fetchBytes(ctx context.Context, client *http.Client, rawURL string, headers map[string]string, name string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "staticmap: create %s request", name)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "staticmap: fetch %s basemap", name)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("staticmap: %s upstream returned %d", name, resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, &retry.Transient{Err: err, StatusCode: resp.StatusCode}
		}
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "staticmap: read %s body", name)
	}
	return data, nil
}
