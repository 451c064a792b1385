package main

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/placemap/internal/config"
	"github.com/sells-group/placemap/internal/staticmap"
	"github.com/sells-group/placemap/internal/store"
	"github.com/sells-group/placemap/pkg/geocode"
)

// newResolver wires the configured primary provider, the other provider as a
// cross-provider alternate when its credentials exist, and the on-disk
// cache. The returned cleanup closes the cache.
func newResolver(cfg *config.Config) (*geocode.Resolver, func(), error) {
	vworld := geocode.NewVWorld(cfg.VWorld.Key)
	naver := geocode.NewNaver(cfg.Naver.ClientID, cfg.Naver.ClientSecret)

	var primary, alternate geocode.Provider
	switch cfg.Provider {
	case "vworld":
		primary, alternate = vworld, naver
	case "naver":
		primary, alternate = naver, vworld
	default:
		return nil, nil, eris.Errorf("unknown provider %q (want vworld or naver)", cfg.Provider)
	}

	if !primary.Available() {
		return nil, nil, eris.Wrapf(geocode.ErrMissingCredentials, "provider %s", primary.Name())
	}

	opts := []geocode.ResolverOption{}
	if alternate.Available() {
		opts = append(opts, geocode.WithAlternate(alternate))
	}

	cleanup := func() {}
	if cfg.Cache.Path != "" {
		cache, err := store.Open(cfg.Cache.Path)
		if err != nil {
			// A broken cache file degrades to uncached operation.
			zap.L().Warn("geocode cache unavailable",
				zap.String("path", cfg.Cache.Path),
				zap.Error(err))
		} else {
			opts = append(opts, geocode.WithCache(cache))
			cleanup = func() { _ = cache.Close() }
		}
	}

	return geocode.NewResolver(primary, opts...), cleanup, nil
}

// newBasemapFetcher builds the static map fetcher for the configured
// provider.
func newBasemapFetcher(cfg *config.Config) (*staticmap.Fetcher, error) {
	switch cfg.Provider {
	case "vworld":
		return staticmap.NewFetcher("vworld", []string{cfg.VWorld.Key})
	case "naver":
		return staticmap.NewFetcher("naver", []string{cfg.Naver.ClientID, cfg.Naver.ClientSecret})
	default:
		return nil, eris.Errorf("unknown provider %q (want vworld or naver)", cfg.Provider)
	}
}
