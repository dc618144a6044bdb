package geoip

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	lookupFromCache = "cache"
	lookupFromFetch = "fetch"
)

// Lookuper resolves an address to provider metadata, memoizing successful
// results in its Cache.
type Lookuper struct {
	fetcher   Fetcher
	cache     Cache
	extractor Extractor
	observer  Observer
	group     *singleflight.Group
}

type Option func(*Lookuper)

func WithObserver(observer Observer) Option {
	return func(l *Lookuper) { l.observer = observer }
}

func WithExtractor(extractor Extractor) Option {
	return func(l *Lookuper) { l.extractor = extractor }
}

// WithCoalescing makes concurrent misses for the same address share a
// single fetch.
func WithCoalescing() Option {
	return func(l *Lookuper) { l.group = &singleflight.Group{} }
}

func NewLookuper(fetcher Fetcher, cache Cache, opts ...Option) *Lookuper {
	if cache == nil {
		cache = NewMemoryCache()
	}
	l := &Lookuper{fetcher: fetcher, cache: cache}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewDBIPLookuper wires the db-ip.com fetcher and the configured cache.
func NewDBIPLookuper(conf Config, opts ...Option) *Lookuper {
	if conf.Coalesce {
		opts = append(opts, WithCoalescing())
	}
	return NewLookuper(NewDBIPFetcher(conf), NewCache(conf), opts...)
}

// Lookup returns the metadata for ip or ErrNoData. Cached results are
// returned as they were stored, Elapsed included. The outcome is recorded in
// ctx when it carries a memo, see WithMemo.
func (l *Lookuper) Lookup(ctx context.Context, ip string) (*LookupResult, error) {
	result, err := l.lookup(ctx, ip)
	remember(ctx, ip, result, err)

	return result, err
}

func (l *Lookuper) lookup(ctx context.Context, ip string) (*LookupResult, error) {
	start := time.Now()
	if cached, ok := l.cache.Get(ip); ok {
		l.observe(lookupFromCache, time.Since(start), true)

		return cached, nil
	}

	if l.group == nil {
		return l.fetch(ctx, ip)
	}

	// The flight outlives the caller that started it and is bounded by the
	// fetch timeout. Each caller stops waiting on its own cancellation.
	flightCtx := context.WithoutCancel(ctx)
	flight := l.group.DoChan(ip, func() (any, error) {
		if cached, ok := l.cache.Get(ip); ok {
			return cached, nil
		}
		return l.fetch(flightCtx, ip)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-flight:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			log.Debug().Str("ip", ip).Msg("Shared in-flight lookup")
		}

		return res.Val.(*LookupResult), nil
	}
}

func (l *Lookuper) fetch(ctx context.Context, ip string) (*LookupResult, error) {
	body, fetchElapsed := l.fetcher.Fetch(ctx, ip)

	parseStart := time.Now()
	props := l.extractor.Extract(body)
	elapsed := fetchElapsed + time.Since(parseStart)
	if elapsed < 0 {
		elapsed = 0
	}

	found := props.Len() > 0
	l.observe(lookupFromFetch, elapsed, found)
	if !found {
		log.Info().Str("ip", ip).Int("body_len", len(body)).Msg("No data extracted")

		return nil, ErrNoData
	}

	result := Decorate(&LookupResult{Elapsed: elapsed.Milliseconds(), Properties: props}, ip)
	l.cache.Put(ip, result)

	return result, nil
}

func (l *Lookuper) observe(source string, elapsed time.Duration, found bool) {
	if l.observer != nil {
		l.observer.ObserveLookup(source, elapsed, found)
	}
}
