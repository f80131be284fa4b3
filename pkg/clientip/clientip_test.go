package clientip

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRealClientIP(t *testing.T) {
	for remote, want := range map[string]string{
		"203.0.113.7:5120":        "203.0.113.7",
		"[::ffff:203.0.113.7]:80": "203.0.113.7",
		"[2001:db8::1]:443":       "2001:db8::1",
		"[fe80::1%eth0]:443":      "fe80::1",
		"203.0.113.9":             "203.0.113.9",
		"not-an-ip":               "not-an-ip",
	} {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = remote
		r.Header.Set("X-Forwarded-For", "198.51.100.1")
		require.Equal(t, want, RealClientIP(r), remote)
	}
}
