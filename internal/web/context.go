package web

import (
	"net"
	"net/http"
)

// clientIP returns the client address without its port. RemoteAddr has
// already been rewritten by TrustedRealIP for trusted proxies.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// requestFields returns log attributes describing the caller.
func requestFields(r *http.Request) []any {
	return []any{"ip", clientIP(r), "user_agent", r.UserAgent()}
}
