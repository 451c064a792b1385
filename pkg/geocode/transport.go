package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const defaultTimeout = 5 * time.Second

// errUnusable marks a response the provider produced but we cannot use:
// non-2xx status or a body that does not decode. Adapters map it to an
// unmatched Result rather than an error.
var errUnusable = eris.New("geocode: unusable provider response")

// transport bundles the HTTP client, rate limiter and circuit breaker shared
// by a provider's endpoints.
type transport struct {
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

func newTransport(name string, rps float64) *transport {
	return &transport{
		client:  &http.Client{Timeout: defaultTimeout},
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    name,
			Timeout: 30 * time.Second,
		}),
	}
}

// getJSON performs a rate-limited, breaker-guarded GET and decodes the JSON
// body into out. Returns errUnusable (wrapped) for remote rejections and a
// plain error for connectivity failures, breaker-open included.
func (t *transport) getJSON(ctx context.Context, url string, header http.Header, out any) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "geocode: rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return eris.Wrap(err, "geocode: build request")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	body, err := t.breaker.Execute(func() (any, error) {
		resp, doErr := t.client.Do(req)
		if doErr != nil {
			return nil, doErr
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode != http.StatusOK {
			return nil, eris.Wrapf(errUnusable, "status %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body.([]byte), out); err != nil {
		return eris.Wrap(errUnusable, "decode body")
	}
	return nil
}

// isUnusable reports whether err is a remote rejection rather than a
// connectivity failure.
func isUnusable(err error) bool {
	return eris.Is(err, errUnusable)
}
