package geoip

import (
	"context"
	"sync"
)

type memoKey struct{}

type memo struct {
	mu     sync.Mutex
	ip     string
	result *LookupResult
	err    error
	set    bool
}

// WithMemo returns a context in which Lookuper.Lookup records the outcome of
// its last lookup, so later stages of the same request can reuse it through
// Remembered.
func WithMemo(ctx context.Context) context.Context {
	return context.WithValue(ctx, memoKey{}, &memo{})
}

func remember(ctx context.Context, ip string, result *LookupResult, err error) {
	m, ok := ctx.Value(memoKey{}).(*memo)
	if !ok {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ip, m.result, m.err, m.set = ip, result, err, true
}

// find answers ip from the recorded outcome. ok is false when nothing was
// recorded for ip.
func (m *memo) find(ip string) (loc *Location, ok bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set || m.ip != ip {
		return nil, false, nil
	}
	if m.err != nil {
		return nil, true, m.err
	}
	return ToLocation(m.result), true, nil
}

// Remembered answers from the lookup recorded in ctx when it was made for the
// same address, failures included, and calls find otherwise.
func Remembered(ctx context.Context, find Find) Find {
	return func(ip string) (*Location, error) {
		if m, ok := ctx.Value(memoKey{}).(*memo); ok {
			if loc, ok, err := m.find(ip); ok {
				return loc, err
			}
		}
		if find == nil {
			return nil, ErrNoData
		}
		return find(ip)
	}
}
