package dashboard

import (
	"context"
	"errors"
	"net/http"

	"github.com/AwareRO/surveymeta/geoip"
	"github.com/AwareRO/surveymeta/http/identity"

	"github.com/rs/zerolog/log"
)

// Lookup resolves ip metadata, see geoip.Lookuper.
type Lookup interface {
	Lookup(ctx context.Context, ip string) (*geoip.LookupResult, error)
}

// RequestInfo describes who is looking at the dashboard. Info is nil when
// no metadata is available and should then be left out of the page.
type RequestInfo struct {
	Ip        string              `json:"ip"`
	DBIPURL   string              `json:"dbip_url,omitempty"`
	UserAgent string              `json:"user_agent"`
	Crawler   bool                `json:"crawler"`
	Info      *geoip.LookupResult `json:"info,omitempty"`
}

type Builder struct {
	lookup    Lookup
	isCrawler identity.IsCrawler
}

func NewBuilder(lookup Lookup, isCrawler identity.IsCrawler) *Builder {
	if isCrawler == nil {
		isCrawler = identity.NewMileusna()
	}
	return &Builder{lookup: lookup, isCrawler: isCrawler}
}

func (b *Builder) Build(ctx context.Context, r *http.Request) RequestInfo {
	ip := identity.ClientIP(r)
	info := RequestInfo{
		Ip:        ip,
		DBIPURL:   identity.DBIPURL(ip),
		UserAgent: r.UserAgent(),
		Crawler:   b.isCrawler(r.UserAgent()),
	}
	if ip == "" || b.lookup == nil {
		return info
	}

	result, err := b.lookup.Lookup(ctx, ip)
	if err != nil {
		if !errors.Is(err, geoip.ErrNoData) {
			log.Warn().Err(err).Str("ip", ip).Msg("Failed to look up request ip")
		}
		return info
	}

	info.Info = result
	info.Crawler = info.Crawler || result.Properties.Bool("Security / Crawler")

	return info
}
