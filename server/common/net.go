package common

import (
	"net"
	"net/http"
	"strings"
)

// GetRealIP resolves the caller's address, preferring X-Forwarded-For /
// X-Real-Ip over the socket's remote address so logs behind a reverse
// proxy still show the true client.
func GetRealIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	if real := r.Header.Get("X-Real-Ip"); real != "" {
		return real
	}
	return GetAddrIP(r.RemoteAddr)
}

// GetAddrIP strips the port from a host:port remote-address string.
func GetAddrIP(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
