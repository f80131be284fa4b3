package clientip

import (
	"net"
	"net/http"
	"strings"
)

// RealClientIP is the caller's address taken from r.RemoteAddr. Proxy headers are
// ignored because they are client-controlled and would let anyone dodge the rate
// limiter. IPv4-mapped IPv6 addresses are folded to IPv4 so one caller has one key.
func RealClientIP(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if i := strings.IndexByte(host, '%'); i >= 0 {
		host = host[:i]
	}
	if ip := net.ParseIP(host); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return v4.String()
		}
		return ip.String()
	}
	return host
}
