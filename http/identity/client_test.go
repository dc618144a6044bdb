package identity

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	for _, tc := range []struct {
		name       string
		remoteAddr string
		forwarded  []string
		want       string
	}{
		{"remote ipv4", "203.0.113.7:51234", nil, "203.0.113.7"},
		{"remote ipv6", "[2001:db8::1]:443", nil, "2001:db8::1"},
		{"remote mapped ipv4", "[::ffff:203.0.113.7]:443", nil, "203.0.113.7"},
		{"forwarded", "10.0.0.1:80", []string{" 198.51.100.2 "}, "198.51.100.2"},
		{"forwarded list", "10.0.0.1:80", []string{"198.51.100.2, 10.0.0.9"}, "198.51.100.2"},
		{"forwarded ipv6 is canonical", "10.0.0.1:80", []string{"2001:DB8:0:0::1"}, "2001:db8::1"},
		{"forwarded zone dropped", "10.0.0.1:80", []string{"fe80::1%eth0"}, "fe80::1"},
		{"forwarded blank", "10.0.0.1:80", []string{"  "}, "10.0.0.1"},
		{"forwarded repeated", "10.0.0.1:80", []string{"198.51.100.2", "198.51.100.3"}, "10.0.0.1"},
		{"forwarded path", "10.0.0.1:80", []string{"../../admin?x=a"}, ""},
		{"forwarded host", "10.0.0.1:80", []string{"example.com"}, ""},
		{"forwarded with port", "10.0.0.1:80", []string{"198.51.100.2:8080"}, ""},
		{"no port", "192.0.2.10", nil, "192.0.2.10"},
		{"remote garbage", "pipe", nil, ""},
		{"remote empty", "", nil, ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tc.remoteAddr
			for _, v := range tc.forwarded {
				r.Header.Add("X-Forwarded-For", v)
			}
			assert.Equal(t, tc.want, ClientIP(r))
		})
	}
}

func TestDBIPURL(t *testing.T) {
	assert.Equal(t, "https://db-ip.com/8.8.8.8", DBIPURL("8.8.8.8"))
	assert.Empty(t, DBIPURL(""))
}
