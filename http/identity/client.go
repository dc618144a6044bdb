package identity

import (
	"fmt"
	"net/http"
	"net/netip"
	"strings"
)

const dbipPage = "https://db-ip.com/%s"

// ClientIP returns the canonical address the request originates from, or ""
// when none can be trusted. A single X-Forwarded-For value wins over the
// connection address; for a list the first hop is used. A forwarded value
// that is present but not an address yields "" instead of falling back.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Values("X-Forwarded-For"); len(forwarded) == 1 {
		first, _, _ := strings.Cut(forwarded[0], ",")
		if first = strings.TrimSpace(first); first != "" {
			return canonical(first)
		}
	}

	if addrPort, err := netip.ParseAddrPort(r.RemoteAddr); err == nil {
		return format(addrPort.Addr())
	}

	return canonical(strings.TrimSpace(r.RemoteAddr))
}

func canonical(s string) string {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return ""
	}
	return format(addr)
}

func format(addr netip.Addr) string {
	return addr.Unmap().WithZone("").String()
}

// DBIPURL links to the public db-ip.com page of ip.
func DBIPURL(ip string) string {
	if ip == "" {
		return ""
	}
	return fmt.Sprintf(dbipPage, ip)
}
