package geocode

import (
	"net/http"
	"strings"
)

// newRewriteClient creates an HTTP client that redirects requests matching
// any of the target prefixes to the mapped test server URL.
func newRewriteClient(rewrites map[string]string) *http.Client {
	return &http.Client{
		Transport: &rewriteTransport{
			base:     http.DefaultTransport,
			rewrites: rewrites,
		},
	}
}

type rewriteTransport struct {
	base     http.RoundTripper
	rewrites map[string]string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	origURL := req.URL.String()
	for prefix, testURL := range t.rewrites {
		if strings.HasPrefix(origURL, prefix) {
			newURL := testURL + origURL[len(prefix):]
			newReq := req.Clone(req.Context())
			parsed, err := req.URL.Parse(newURL)
			if err != nil {
				return nil, err
			}
			newReq.URL = parsed
			newReq.Host = parsed.Host
			return t.base.RoundTrip(newReq)
		}
	}
	return t.base.RoundTrip(req)
}
