package middleware

import (
	"net"
	"net/http"
	"strings"
)

// RealIPMiddleware extracts the real client IP from trusted proxy headers and
// stores its canonical form in X-Real-IP. It only trusts X-Forwarded-For and
// CF-Connecting-IP when the request comes from a configured trusted proxy.
// The canonical IP doubles as the listener origin identity, so two requests
// from the same client must always resolve to the same string.
type RealIPMiddleware struct {
	trustedNets []*net.IPNet
	trustedIPs  []net.IP
}

// NewRealIPMiddleware creates a new RealIPMiddleware with the given trusted proxies.
// trustedProxies can be IP addresses (e.g., "192.168.1.1") or CIDRs (e.g., "10.0.0.0/8").
func NewRealIPMiddleware(trustedProxies []string) *RealIPMiddleware {
	m := &RealIPMiddleware{}

	for _, proxy := range trustedProxies {
		proxy = strings.TrimSpace(proxy)
		if proxy == "" {
			continue
		}

		if strings.Contains(proxy, "/") {
			_, network, err := net.ParseCIDR(proxy)
			if err == nil {
				m.trustedNets = append(m.trustedNets, network)
				continue
			}
		}

		if ip := net.ParseIP(proxy); ip != nil {
			m.trustedIPs = append(m.trustedIPs, ip)
		}
	}

	return m
}

// Handler returns the middleware handler
func (m *RealIPMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if realIP := m.extractRealIP(r); realIP != "" {
			r.Header.Set("X-Real-IP", realIP)
		}
		next.ServeHTTP(w, r)
	})
}

// extractRealIP resolves the canonical client IP for the request.
// If the request comes from a trusted proxy, it uses CF-Connecting-IP or the
// first hop of X-Forwarded-For. Otherwise it uses the direct RemoteAddr.
func (m *RealIPMiddleware) extractRealIP(r *http.Request) string {
	remoteIP := parseRemoteAddr(r.RemoteAddr)

	if !m.isTrustedProxy(remoteIP) {
		return CanonicalIP(remoteIP)
	}

	// Cloudflare's header takes priority over X-Forwarded-For
	if cfIP := r.Header.Get("CF-Connecting-IP"); cfIP != "" {
		return CanonicalIP(strings.TrimSpace(cfIP))
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := xff
		if idx := strings.Index(xff, ","); idx != -1 {
			first = xff[:idx]
		}
		return CanonicalIP(strings.TrimSpace(first))
	}

	return CanonicalIP(remoteIP)
}

// isTrustedProxy checks if the given IP is in the trusted proxy list
func (m *RealIPMiddleware) isTrustedProxy(ipStr string) bool {
	if len(m.trustedNets) == 0 && len(m.trustedIPs) == 0 {
		return false
	}

	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}

	for _, network := range m.trustedNets {
		if network.Contains(ip) {
			return true
		}
	}

	for _, trustedIP := range m.trustedIPs {
		if trustedIP.Equal(ip) {
			return true
		}
	}

	return false
}

// CanonicalIP normalizes an IP string so equal clients compare equal.
// IPv4-mapped IPv6 addresses (::ffff:203.0.113.9) collapse to dotted IPv4;
// other IPv6 addresses are reformatted to their canonical textual form.
// Unparseable input is returned trimmed rather than rejected.
func CanonicalIP(ipStr string) string {
	ipStr = strings.TrimSpace(ipStr)
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return ipStr
	}
	if v4 := ip.To4(); v4 != nil {
		return v4.String()
	}
	return ip.String()
}

// OriginID returns the origin identity key for presence tracking: the
// canonical client IP resolved by the RealIP middleware, falling back to the
// direct RemoteAddr when the middleware did not run.
func OriginID(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return CanonicalIP(ip)
	}
	return CanonicalIP(parseRemoteAddr(r.RemoteAddr))
}

// parseRemoteAddr extracts just the IP from RemoteAddr (which may include port)
func parseRemoteAddr(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err == nil {
		return host
	}

	// Might be a bare IP (IPv6 without port)
	if ip := net.ParseIP(remoteAddr); ip != nil {
		return remoteAddr
	}

	return remoteAddr
}
