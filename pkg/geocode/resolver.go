package geocode

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// addressTokens are unit markers whose presence means a string is a
// structured address rather than a bare place name. The trailing space
// matters: it anchors the marker to the end of a word.
var addressTokens = []string{"시 ", "구 ", "로 ", "길 ", "동 ", "읍 ", "면 "}

func addressLike(addr string) bool {
	for _, tok := range addressTokens {
		if strings.Contains(addr, tok) {
			return true
		}
	}
	return false
}

// Resolver orchestrates providers with fallback strategies and memoizes
// successful resolutions. It owns no mutable per-call state, so a single
// Resolver is safe for concurrent use when its Cache is.
type Resolver struct {
	primary       Provider
	alternate     Provider
	cache         Cache
	crossFallback bool
}

// ResolverOption configures the Resolver.
type ResolverOption func(*Resolver)

// WithAlternate registers a second provider for cross-provider fallback.
func WithAlternate(p Provider) ResolverOption {
	return func(r *Resolver) {
		r.alternate = p
	}
}

// WithCache injects the memoization cache. Defaults to a fresh MemoryCache.
func WithCache(c Cache) ResolverOption {
	return func(r *Resolver) {
		r.cache = c
	}
}

// WithCrossProviderFallback toggles retrying the whole chain against the
// alternate provider after the primary exhausts every strategy. On by
// default when an alternate is configured.
func WithCrossProviderFallback(enabled bool) ResolverOption {
	return func(r *Resolver) {
		r.crossFallback = enabled
	}
}

// NewResolver creates a Resolver around a primary provider.
func NewResolver(primary Provider, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		primary:       primary,
		crossFallback: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = NewMemoryCache()
	}
	return r
}

// Geocode resolves a raw address through the full strategy chain of the
// primary provider, then (when enabled) of the alternate. An exhausted chain
// returns an unmatched Result, never an error; the only pre-flight error is
// ErrMissingCredentials.
func (r *Resolver) Geocode(ctx context.Context, rawAddr string) (*Result, error) {
	rawAddr = strings.TrimSpace(rawAddr)
	if rawAddr == "" {
		return &Result{Matched: false}, nil
	}

	if !r.primary.Available() {
		return nil, eris.Wrap(ErrMissingCredentials, r.primary.Name())
	}

	if cached, ok := r.cache.Get(r.primary.Name(), rawAddr); ok {
		zap.L().Debug("geocode cache hit",
			zap.String("provider", r.primary.Name()),
			zap.String("address", rawAddr),
		)
		return cached, nil
	}

	res, err := r.resolveWithProvider(ctx, rawAddr, r.primary)
	if err != nil {
		return nil, err
	}

	if !res.Matched && r.crossFallback && r.alternate != nil && r.alternate.Available() {
		res, err = r.resolveWithProvider(ctx, rawAddr, r.alternate)
		if err != nil {
			return nil, err
		}
		if res.Matched {
			zap.L().Info("resolved via alternate provider",
				zap.String("address", rawAddr),
				zap.String("requested", r.primary.Name()),
				zap.String("alternate", r.alternate.Name()),
			)
		}
	}

	if res.Matched {
		// Cross-provider hits are stored under the requesting provider's key
		// so repeat lookups for the same raw string stay pure cache reads.
		r.cache.Put(r.primary.Name(), rawAddr, res)
	}
	return res, nil
}

// resolveWithProvider runs the per-provider strategy chain for one address.
// It is a pure parameterized call: no provider field is swapped, so the
// cross-provider retry cannot re-enter shared state.
func (r *Resolver) resolveWithProvider(ctx context.Context, rawAddr string, p Provider) (*Result, error) {
	addr := StandardizeProvinceName(stripFailureArtifacts(rawAddr))
	if addr == "" {
		return &Result{Matched: false, Source: p.Name()}, nil
	}

	res := r.orchestrate(ctx, p, addr)

	// The search index prefers Sejong's short form for POI queries.
	if !res.Matched && strings.Contains(addr, "세종") {
		if fb := SejongShortForm(addr); fb != addr {
			zap.L().Debug("retrying with sejong short form", zap.String("address", fb))
			res = r.orchestrate(ctx, p, fb)
		}
	}

	// Drop leading words one at a time; never shrink to the final token
	// alone (that pass belongs to the search-side token windows).
	if !res.Matched {
		words := strings.Fields(addr)
		for i := 1; i <= len(words)-2 && !res.Matched; i++ {
			if ctx.Err() != nil {
				return nil, eris.Wrap(ctx.Err(), "geocode: resolve cancelled")
			}
			shrunk := strings.Join(words[i:], " ")
			zap.L().Debug("retrying with shortened address", zap.String("address", shrunk))
			res = r.orchestrate(ctx, p, shrunk)
		}
	}

	return res, nil
}

// orchestrate applies the provider-specific call ordering for one candidate
// string. Structured geocoding always precedes free-text search for
// address-like strings.
func (r *Resolver) orchestrate(ctx context.Context, p Provider, addr string) *Result {
	if p.Name() == naverName {
		// Geocode-only provider: one structured attempt, then defer
		// entirely to the resolver's downstream fallbacks.
		return r.attemptForward(ctx, p, addr, KindRoad)
	}

	if addressLike(addr) {
		if res := r.attemptForward(ctx, p, addr, KindRoad); res.Matched {
			return res
		}
		if res := r.attemptForward(ctx, p, addr, KindParcel); res.Matched {
			return res
		}
		return r.searchShrinking(ctx, p, addr)
	}

	// Bare place names skip structured geocoding entirely.
	return r.searchShrinking(ctx, p, addr)
}

// searchShrinking runs free-text search on the full query, then on
// progressively shorter right-anchored token windows. The rightmost token is
// never dropped; the final window is that token alone.
func (r *Resolver) searchShrinking(ctx context.Context, p Provider, query string) *Result {
	if res := r.attemptSearch(ctx, p, query); res.Matched {
		return res
	}

	tokens := strings.Fields(query)
	for i := 1; i < len(tokens); i++ {
		if ctx.Err() != nil {
			break
		}
		window := strings.Join(tokens[i:], " ")
		if res := r.attemptSearch(ctx, p, window); res.Matched {
			zap.L().Debug("search token window hit",
				zap.String("query", query),
				zap.String("window", window),
			)
			return res
		}
	}
	return &Result{Matched: false, Source: p.Name()}
}

func (r *Resolver) attemptForward(ctx context.Context, p Provider, addr string, kind AddressKind) *Result {
	res, err := p.Forward(ctx, addr, kind)
	if err != nil {
		zap.L().Debug("forward geocode failed, trying next strategy",
			zap.String("provider", p.Name()),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		return &Result{Matched: false, Source: p.Name()}
	}
	return res
}

func (r *Resolver) attemptSearch(ctx context.Context, p Provider, query string) *Result {
	res, err := p.Search(ctx, query)
	if err != nil {
		zap.L().Debug("place search failed, trying next strategy",
			zap.String("provider", p.Name()),
			zap.Error(err),
		)
		return &Result{Matched: false, Source: p.Name()}
	}
	return res
}
