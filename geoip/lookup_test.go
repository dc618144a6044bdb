package geoip

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	pages   map[string]string
	elapsed time.Duration
	calls   atomic.Int32
	release chan struct{}
}

func (f *fakeFetcher) Fetch(ctx context.Context, ip string) (string, time.Duration) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	return f.pages[ip], f.elapsed
}

type fakeObserver struct {
	mu      sync.Mutex
	sources []string
	found   []bool
}

func (o *fakeObserver) ObserveLookup(source string, elapsed time.Duration, found bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sources = append(o.sources, source)
	o.found = append(o.found, found)
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages: map[string]string{
			"8.8.8.8": securityPage,
			"1.1.1.1": `<table><tr><th>City</th><td>Sydney</td></tr></table>`,
		},
		elapsed: 7 * time.Millisecond,
	}
}

func TestLookupFetchesOncePerKey(t *testing.T) {
	fetcher := newFakeFetcher()
	cache := NewMemoryCache()
	l := NewLookuper(fetcher, cache)

	first, err := l.Lookup(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	assert.EqualValues(t, 1, fetcher.calls.Load())

	second, err := l.Lookup(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	assert.EqualValues(t, 1, fetcher.calls.Load())
	assert.Same(t, first, second)
	assert.Equal(t, first.Elapsed, second.Elapsed)

	_, err = l.Lookup(context.Background(), "1.1.1.1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, fetcher.calls.Load())
	assert.Equal(t, 2, cache.Len())
}

func TestLookupDecoratesResult(t *testing.T) {
	l := NewLookuper(newFakeFetcher(), nil)

	result, err := l.Lookup(context.Background(), "8.8.8.8")
	require.NoError(t, err)

	assert.Equal(t, "8.8.8.8", result.Ip)
	assert.GreaterOrEqual(t, result.Elapsed, int64(7))
	assert.True(t, result.Properties.Bool("Security / Crawler"))
	assert.False(t, result.Properties.Bool("Security / Proxy"))
	assert.True(t, result.Properties.Bool("Security / Attack source"))
	assert.Equal(t, "Google LLC", result.Properties.String("ISP"))
}

func TestLookupNoDataIsNotCached(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.pages["10.0.0.1"] = "<html><body><p>nothing here</p></body></html>"
	cache := NewMemoryCache()
	l := NewLookuper(fetcher, cache)

	for i := 0; i < 2; i++ {
		result, err := l.Lookup(context.Background(), "10.0.0.1")
		assert.ErrorIs(t, err, ErrNoData)
		assert.Nil(t, result)
	}

	_, ok := cache.Get("10.0.0.1")
	assert.False(t, ok)
	assert.EqualValues(t, 2, fetcher.calls.Load())
}

func TestLookupEmptyBodyIsNoData(t *testing.T) {
	l := NewLookuper(newFakeFetcher(), nil)

	_, err := l.Lookup(context.Background(), "192.0.2.1")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestLookupKeyIsVerbatim(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.pages["2001:DB8::1"] = fetcher.pages["1.1.1.1"]
	fetcher.pages["2001:db8::1"] = fetcher.pages["1.1.1.1"]
	l := NewLookuper(fetcher, nil)

	_, err := l.Lookup(context.Background(), "2001:DB8::1")
	require.NoError(t, err)
	_, err = l.Lookup(context.Background(), "2001:db8::1")
	require.NoError(t, err)

	assert.EqualValues(t, 2, fetcher.calls.Load())
}

func TestLookupObserver(t *testing.T) {
	observer := &fakeObserver{}
	l := NewLookuper(newFakeFetcher(), nil, WithObserver(observer))

	_, _ = l.Lookup(context.Background(), "1.1.1.1")
	_, _ = l.Lookup(context.Background(), "1.1.1.1")
	_, _ = l.Lookup(context.Background(), "192.0.2.1")

	assert.Equal(t, []string{"fetch", "cache", "fetch"}, observer.sources)
	assert.Equal(t, []bool{true, true, false}, observer.found)
}

func TestLookupCoalescesConcurrentMisses(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.release = make(chan struct{})
	l := NewLookuper(fetcher, nil, WithCoalescing())

	var wg sync.WaitGroup
	results := make([]*LookupResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := l.Lookup(context.Background(), "8.8.8.8")
			assert.NoError(t, err)
			results[i] = r
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(fetcher.release)
	wg.Wait()

	assert.EqualValues(t, 1, fetcher.calls.Load())
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

// cancellableFetcher blocks until released and gives up when its context ends.
type cancellableFetcher struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (f *cancellableFetcher) Fetch(ctx context.Context, ip string) (string, time.Duration) {
	if f.calls.Add(1) == 1 {
		close(f.started)
	}
	select {
	case <-ctx.Done():
		return "", 0
	case <-f.release:
		return securityPage, 0
	}
}

func TestLookupCoalescedSurvivesFirstCallerCancel(t *testing.T) {
	fetcher := &cancellableFetcher{started: make(chan struct{}), release: make(chan struct{})}
	l := NewLookuper(fetcher, nil, WithCoalescing())

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := l.Lookup(ctx, "8.8.8.8")
		firstErr <- err
	}()
	<-fetcher.started

	type outcome struct {
		result *LookupResult
		err    error
	}
	second := make(chan outcome, 1)
	go func() {
		r, err := l.Lookup(context.Background(), "8.8.8.8")
		second <- outcome{r, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	time.Sleep(20 * time.Millisecond)
	close(fetcher.release)

	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, "8.8.8.8", got.result.Ip)
	assert.EqualValues(t, 1, fetcher.calls.Load())

	cached, err := l.Lookup(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	assert.Same(t, got.result, cached)
}

func TestLookupRecordsOutcomeInMemo(t *testing.T) {
	fetcher := newFakeFetcher()
	l := NewLookuper(fetcher, nil)
	ctx := WithMemo(context.Background())

	var fallback atomic.Int32
	find := Remembered(ctx, func(ip string) (*Location, error) {
		fallback.Add(1)
		return &Location{Country: "elsewhere"}, nil
	})

	_, err := l.Lookup(ctx, "192.0.2.1")
	require.ErrorIs(t, err, ErrNoData)
	_, err = find("192.0.2.1")
	assert.ErrorIs(t, err, ErrNoData)
	assert.EqualValues(t, 1, fetcher.calls.Load())

	_, err = l.Lookup(ctx, "8.8.8.8")
	require.NoError(t, err)
	loc, err := find("8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, "United States", loc.Country)
	assert.True(t, loc.Crawler)

	loc, err = find("1.1.1.1")
	require.NoError(t, err)
	assert.Equal(t, "elsewhere", loc.Country)
	assert.EqualValues(t, 1, fallback.Load())
	assert.EqualValues(t, 2, fetcher.calls.Load())
}

func TestRememberedWithoutMemo(t *testing.T) {
	find := Remembered(context.Background(), nil)
	_, err := find("8.8.8.8")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestDecorate(t *testing.T) {
	assert.Nil(t, Decorate(nil, "8.8.8.8"))

	props := NewPropertyMap()
	props.Set("City", "Lisbon")
	original := &LookupResult{Ip: "old", Elapsed: 3, Properties: props}

	decorated := Decorate(original, "8.8.4.4")
	assert.Equal(t, "8.8.4.4", decorated.Ip)
	assert.Equal(t, int64(3), decorated.Elapsed)
	assert.Equal(t, "old", original.Ip)
}

func TestToLocation(t *testing.T) {
	props := NewPropertyMap()
	props.Set("Country", "Brazil")
	props.Set("State / Region", "São Paulo")
	props.Set("City", "São Paulo")
	props.Set("ISP", "Acme Telecom")
	props.Set("Coordinates", "-23.5475, -46.6361")
	props.Set(securityCrawler, true)

	loc := ToLocation(&LookupResult{Ip: "200.1.1.1", Properties: props})

	assert.Equal(t, "Brazil", loc.Country)
	assert.Equal(t, "São Paulo", loc.Region)
	assert.Equal(t, "Acme Telecom", loc.Isp)
	assert.InDelta(t, -23.5475, loc.Latitude, 1e-9)
	assert.InDelta(t, -46.6361, loc.Longitude, 1e-9)
	assert.True(t, loc.Crawler)
}

func TestDBIPFinder(t *testing.T) {
	l := NewLookuper(newFakeFetcher(), nil)
	find := NewDBIPFinder(l, time.Second)

	loc, err := find("8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, "United States", loc.Country)
	assert.Equal(t, "Mountain View", loc.City)

	_, err = find("192.0.2.1")
	assert.ErrorIs(t, err, ErrNoData)
}
