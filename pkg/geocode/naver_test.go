package geocode

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const naverGeocodeOK = `{
	"status": "OK",
	"addresses": [
		{"x": "126.9779451", "y": "37.5663245", "roadAddress": "서울특별시 중구 세종대로 110", "jibunAddress": "서울특별시 중구 태평로1가 31"}
	]
}`

func newTestNaver(srvURL string) *Naver {
	return NewNaver("test-id", "test-secret", WithNaverHTTPClient(newRewriteClient(map[string]string{
		naverGeocodeURL: srvURL,
	})))
}

func TestNaverForward_Match(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-id", r.Header.Get("X-NCP-APIGW-API-KEY-ID"))
		assert.Equal(t, "test-secret", r.Header.Get("X-NCP-APIGW-API-KEY"))
		assert.Equal(t, "서울특별시 중구 세종대로 110", r.URL.Query().Get("query"))
		_, _ = io.WriteString(w, naverGeocodeOK)
	}))
	defer srv.Close()

	n := newTestNaver(srv.URL)
	res, err := n.Forward(context.Background(), "서울특별시 중구 세종대로 110", KindRoad)
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.InDelta(t, 126.9779451, res.Longitude, 1e-9)
	assert.InDelta(t, 37.5663245, res.Latitude, 1e-9)
	assert.Equal(t, "서울특별시 중구 세종대로 110", res.Address)
	assert.Equal(t, "naver", res.Source)
}

func TestNaverForward_JibunFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{
			"status": "OK",
			"addresses": [{"x": "127.0", "y": "37.0", "jibunAddress": "세종특별자치시 조치원읍 123"}]
		}`)
	}))
	defer srv.Close()

	n := newTestNaver(srv.URL)
	res, err := n.Forward(context.Background(), "조치원읍 123", KindRoad)
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Equal(t, "세종특별자치시 조치원읍 123", res.Address)
}

func TestNaverForward_ErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"status": "INVALID_REQUEST", "errorMessage": "query is empty", "addresses": []}`)
	}))
	defer srv.Close()

	n := newTestNaver(srv.URL)
	res, err := n.Forward(context.Background(), "", KindRoad)
	require.NoError(t, err)
	assert.False(t, res.Matched)
}

func TestNaverForward_EmptyAddresses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"status": "OK", "addresses": []}`)
	}))
	defer srv.Close()

	n := newTestNaver(srv.URL)
	res, err := n.Forward(context.Background(), "없는 주소", KindRoad)
	require.NoError(t, err)
	assert.False(t, res.Matched)
}

func TestNaverSearch_AlwaysUnmatched(t *testing.T) {
	n := NewNaver("id", "secret")
	res, err := n.Search(context.Background(), "강남역")
	require.NoError(t, err)
	assert.False(t, res.Matched, "naver exposes no POI search")
}

func TestNaverAvailable(t *testing.T) {
	assert.True(t, NewNaver("id", "secret").Available())
	assert.False(t, NewNaver("id", "").Available())
	assert.False(t, NewNaver("", "").Available())
}
