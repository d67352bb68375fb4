package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/JonMunkholm/datasweeper/internal/core"
)

// proxySet is the list of networks whose forwarding headers are believed.
type proxySet []netip.Prefix

// parseProxies accepts CIDRs and bare addresses. Invalid entries are logged
// and skipped.
func parseProxies(entries []string) proxySet {
	var set proxySet
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if p, err := netip.ParsePrefix(e); err == nil {
			set = append(set, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(e)
		if err != nil {
			slog.Warn("realip: skipping invalid trusted proxy", "entry", e, "error", err)
			continue
		}
		set = append(set, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
	}
	return set
}

func (s proxySet) contains(addr netip.Addr) bool {
	if !addr.IsValid() {
		return false
	}
	addr = addr.Unmap()
	for _, p := range s {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// forwardedFor returns the client address named by X-Real-IP, or else the
// first hop of X-Forwarded-For.
func forwardedFor(h http.Header) (netip.Addr, bool) {
	if v := h.Get("X-Real-IP"); v != "" {
		addr, err := netip.ParseAddr(strings.TrimSpace(v))
		return addr, err == nil
	}
	if v := h.Get("X-Forwarded-For"); v != "" {
		first, _, _ := strings.Cut(v, ",")
		addr, err := netip.ParseAddr(strings.TrimSpace(first))
		return addr, err == nil
	}
	return netip.Addr{}, false
}

// TrustedRealIP rewrites RemoteAddr to the forwarded client address when the
// connection comes from a trusted proxy. Forwarding headers from anyone else
// are ignored. The client IP is stored on the request context for upload
// logs, and the rate limiter keys on it.
func TrustedRealIP(trustedCIDRs []string) func(http.Handler) http.Handler {
	trusted := parseProxies(trustedCIDRs)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(trusted) > 0 && trusted.contains(remoteAddr(r.RemoteAddr)) {
				if addr, ok := forwardedFor(r.Header); ok {
					r.RemoteAddr = addr.String()
				}
			}

			ctx := core.ContextWithClientIP(r.Context(), ClientIP(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIP returns the request's client IP without the port.
func ClientIP(r *http.Request) string {
	if addr := remoteAddr(r.RemoteAddr); addr.IsValid() {
		return addr.String()
	}
	return r.RemoteAddr
}

// remoteAddr parses "host:port" or a bare address.
func remoteAddr(s string) netip.Addr {
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}
	}
	return addr
}
