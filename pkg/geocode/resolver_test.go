package geocode

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type forwardCall struct {
	addr string
	kind AddressKind
}

// stubProvider scripts Forward/Search outcomes and records every call.
type stubProvider struct {
	name        string
	unavailable bool

	forwardFn func(addr string, kind AddressKind) (*Result, error)
	searchFn  func(query string) (*Result, error)

	forwardCalls []forwardCall
	searchCalls  []string
}

func (s *stubProvider) Name() string    { return s.name }
func (s *stubProvider) Available() bool { return !s.unavailable }

func (s *stubProvider) Forward(_ context.Context, addr string, kind AddressKind) (*Result, error) {
	s.forwardCalls = append(s.forwardCalls, forwardCall{addr, kind})
	if s.forwardFn == nil {
		return &Result{Matched: false, Source: s.name}, nil
	}
	return s.forwardFn(addr, kind)
}

func (s *stubProvider) Search(_ context.Context, query string) (*Result, error) {
	s.searchCalls = append(s.searchCalls, query)
	if s.searchFn == nil {
		return &Result{Matched: false, Source: s.name}, nil
	}
	return s.searchFn(query)
}

func match(lon, lat float64, addr, source string) *Result {
	return &Result{Longitude: lon, Latitude: lat, Address: addr, Source: source, Matched: true}
}

func TestResolver_StructuredSuccessShortCircuits(t *testing.T) {
	p := &stubProvider{
		name: "vworld",
		forwardFn: func(addr string, kind AddressKind) (*Result, error) {
			if kind == KindRoad {
				return match(126.9779, 37.5662, "서울특별시 중구 세종대로 110", "vworld"), nil
			}
			return &Result{Matched: false, Source: "vworld"}, nil
		},
	}
	r := NewResolver(p)

	res, err := r.Geocode(context.Background(), "서울시 중구 세종대로 110")
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Contains(t, res.Address, "세종대로")

	// Province name normalized before the provider sees it.
	require.Len(t, p.forwardCalls, 1)
	assert.Equal(t, "서울특별시 중구 세종대로 110", p.forwardCalls[0].addr)
	assert.Equal(t, KindRoad, p.forwardCalls[0].kind)

	// Short-circuit: structured success means search is never attempted.
	assert.Empty(t, p.searchCalls)
}

func TestResolver_POISkipsStructuredGeocoding(t *testing.T) {
	p := &stubProvider{
		name: "vworld",
		searchFn: func(query string) (*Result, error) {
			return match(127.0276, 37.4979, "서울특별시 강남구 강남대로 396", "vworld"), nil
		},
	}
	r := NewResolver(p)

	res, err := r.Geocode(context.Background(), "강남역")
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.NotZero(t, res.Longitude)
	assert.NotZero(t, res.Latitude)

	assert.Empty(t, p.forwardCalls, "bare place names skip structured geocoding")
	assert.Equal(t, []string{"강남역"}, p.searchCalls)
}

func TestResolver_RoadThenParcelThenSearch(t *testing.T) {
	p := &stubProvider{
		name: "vworld",
		forwardFn: func(addr string, kind AddressKind) (*Result, error) {
			if kind == KindParcel {
				return match(127.1, 37.2, addr, "vworld"), nil
			}
			return &Result{Matched: false, Source: "vworld"}, nil
		},
	}
	r := NewResolver(p)

	res, err := r.Geocode(context.Background(), "부산광역시 중구 중앙동 1가")
	require.NoError(t, err)
	assert.True(t, res.Matched)

	require.Len(t, p.forwardCalls, 2)
	assert.Equal(t, KindRoad, p.forwardCalls[0].kind)
	assert.Equal(t, KindParcel, p.forwardCalls[1].kind)
	assert.Empty(t, p.searchCalls)
}

func TestResolver_SearchTokenWindows(t *testing.T) {
	p := &stubProvider{
		name: "vworld",
		searchFn: func(query string) (*Result, error) {
			if query == "타워" {
				return match(127.1025, 37.5126, "서울특별시 송파구 올림픽로 300", "vworld"), nil
			}
			return &Result{Matched: false, Source: "vworld"}, nil
		},
	}
	r := NewResolver(p)

	res, err := r.Geocode(context.Background(), "잠실 롯데월드 타워")
	require.NoError(t, err)
	assert.True(t, res.Matched)

	// Full query first, then right-anchored windows down to the last token.
	assert.Equal(t, []string{"잠실 롯데월드 타워", "롯데월드 타워", "타워"}, p.searchCalls)
}

func TestResolver_SejongShortFormRetry(t *testing.T) {
	p := &stubProvider{
		name: "vworld",
		searchFn: func(query string) (*Result, error) {
			if query == "세종 호수공원" {
				return match(127.2890, 36.5040, "세종특별자치시 연기면", "vworld"), nil
			}
			return &Result{Matched: false, Source: "vworld"}, nil
		},
	}
	r := NewResolver(p)

	res, err := r.Geocode(context.Background(), "세종시 호수공원")
	require.NoError(t, err)
	assert.True(t, res.Matched)

	// Normalized long form is tried first, then the short-form retry.
	assert.Contains(t, p.searchCalls, "세종특별자치시 호수공원")
	assert.Contains(t, p.searchCalls, "세종 호수공원")
}

func TestResolver_WordLevelPrefixDropping(t *testing.T) {
	p := &stubProvider{
		name: "vworld",
		forwardFn: func(addr string, kind AddressKind) (*Result, error) {
			if addr == "중구 세종대로 110" && kind == KindRoad {
				return match(126.9779, 37.5662, "서울특별시 중구 세종대로 110", "vworld"), nil
			}
			return &Result{Matched: false, Source: "vworld"}, nil
		},
	}
	r := NewResolver(p)

	res, err := r.Geocode(context.Background(), "옛도청앞 서울특별시 중구 세종대로 110")
	require.NoError(t, err)
	assert.True(t, res.Matched)

	var addrs []string
	for _, c := range p.forwardCalls {
		addrs = append(addrs, c.addr)
	}
	assert.Contains(t, addrs, "중구 세종대로 110")
}

func TestResolver_CacheCorrectness(t *testing.T) {
	calls := 0
	p := &stubProvider{
		name: "vworld",
		forwardFn: func(addr string, kind AddressKind) (*Result, error) {
			calls++
			return match(126.9779, 37.5662, "서울특별시 중구 세종대로 110", "vworld"), nil
		},
	}
	cache := NewMemoryCache()
	r := NewResolver(p, WithCache(cache))

	first, err := r.Geocode(context.Background(), "서울시 중구 세종대로 110")
	require.NoError(t, err)
	require.True(t, first.Matched)
	assert.Equal(t, 1, calls)

	second, err := r.Geocode(context.Background(), "서울시 중구 세종대로 110")
	require.NoError(t, err)
	assert.Equal(t, first, second, "second call must return the identical cached tuple")
	assert.Equal(t, 1, calls, "second call must issue no network call")

	// Memoized under the raw pre-normalization string.
	_, ok := cache.Get("vworld", "서울시 중구 세종대로 110")
	assert.True(t, ok)
}

func TestResolver_CrossProviderFallback(t *testing.T) {
	primary := &stubProvider{name: "vworld"}
	alternate := &stubProvider{
		name: "naver",
		forwardFn: func(addr string, kind AddressKind) (*Result, error) {
			return match(126.4407, 37.4601, "인천광역시 중구 공항로 272", "naver"), nil
		},
	}
	cache := NewMemoryCache()
	r := NewResolver(primary, WithAlternate(alternate), WithCache(cache))

	res, err := r.Geocode(context.Background(), "인천국제공힝")
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Equal(t, "naver", res.Source)

	// Cached under the requesting provider's key, not the alternate's.
	_, ok := cache.Get("vworld", "인천국제공힝")
	assert.True(t, ok)
	_, ok = cache.Get("naver", "인천국제공힝")
	assert.False(t, ok)
}

func TestResolver_CrossProviderFallbackDisabled(t *testing.T) {
	primary := &stubProvider{name: "vworld"}
	alternate := &stubProvider{
		name: "naver",
		forwardFn: func(addr string, kind AddressKind) (*Result, error) {
			return match(1, 1, "어딘가", "naver"), nil
		},
	}
	r := NewResolver(primary, WithAlternate(alternate), WithCrossProviderFallback(false))

	res, err := r.Geocode(context.Background(), "강남역")
	require.NoError(t, err)
	assert.False(t, res.Matched)
	assert.Empty(t, alternate.forwardCalls)
}

func TestResolver_NaverOrchestration(t *testing.T) {
	p := &stubProvider{name: "naver"}
	r := NewResolver(p)

	res, err := r.Geocode(context.Background(), "강남역")
	require.NoError(t, err)
	assert.False(t, res.Matched)

	// Geocode-only provider: exactly one structured attempt, no search.
	assert.Len(t, p.forwardCalls, 1)
	assert.Empty(t, p.searchCalls)
}

func TestResolver_MissingCredentials(t *testing.T) {
	p := &stubProvider{name: "vworld", unavailable: true}
	r := NewResolver(p)

	_, err := r.Geocode(context.Background(), "강남역")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrMissingCredentials))
	assert.Empty(t, p.forwardCalls)
	assert.Empty(t, p.searchCalls)
}

func TestResolver_ExhaustedChainIsUnmatchedNotError(t *testing.T) {
	p := &stubProvider{name: "vworld"}
	r := NewResolver(p)

	res, err := r.Geocode(context.Background(), "존재하지 않는 주소 어딘가")
	require.NoError(t, err)
	assert.False(t, res.Matched)
}

func TestResolver_FailureArtifactsStripped(t *testing.T) {
	p := &stubProvider{
		name: "vworld",
		searchFn: func(query string) (*Result, error) {
			return match(127.0276, 37.4979, "서울특별시 강남구", "vworld"), nil
		},
	}
	r := NewResolver(p)

	res, err := r.Geocode(context.Background(), "강남역 (위치를 찾을 수 없음)")
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Equal(t, "강남역", p.searchCalls[0])
}

func TestResolver_NetworkErrorsAbsorbed(t *testing.T) {
	p := &stubProvider{
		name: "vworld",
		forwardFn: func(addr string, kind AddressKind) (*Result, error) {
			return nil, eris.New("connection refused")
		},
		searchFn: func(query string) (*Result, error) {
			return match(127.0, 37.0, "어딘가", "vworld"), nil
		},
	}
	r := NewResolver(p)

	res, err := r.Geocode(context.Background(), "서울특별시 중구 세종대로 110")
	require.NoError(t, err, "network failures are strategy-step failures, not call failures")
	assert.True(t, res.Matched)
	assert.NotEmpty(t, p.searchCalls)
}

func TestResolver_EmptyAddress(t *testing.T) {
	p := &stubProvider{name: "vworld"}
	r := NewResolver(p)

	res, err := r.Geocode(context.Background(), "   ")
	require.NoError(t, err)
	assert.False(t, res.Matched)
	assert.Empty(t, p.forwardCalls)
	assert.Empty(t, p.searchCalls)
}

func TestMemoryCache_WriteOnce(t *testing.T) {
	c := NewMemoryCache()
	first := match(127.0, 37.0, "첫번째", "vworld")
	second := match(128.0, 38.0, "두번째", "vworld")

	c.Put("vworld", "주소", first)
	c.Put("vworld", "주소", second)

	got, ok := c.Get("vworld", "주소")
	require.True(t, ok)
	assert.Equal(t, "첫번째", got.Address, "first stored result wins")
	assert.Equal(t, 1, c.Len())

	// Keys are provider-scoped.
	_, ok = c.Get("naver", "주소")
	assert.False(t, ok)
}
