package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCanonicalIP(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"203.0.113.9", "203.0.113.9"},
		{"::ffff:203.0.113.9", "203.0.113.9"},
		{" 203.0.113.9 ", "203.0.113.9"},
		{"2001:DB8::1", "2001:db8::1"},
		{"2001:0db8:0000:0000:0000:0000:0000:0001", "2001:db8::1"},
		{"not-an-ip", "not-an-ip"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := CanonicalIP(tt.in); got != tt.want {
				t.Errorf("CanonicalIP(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRealIP_UntrustedProxyHeadersIgnored(t *testing.T) {
	m := NewRealIPMiddleware(nil)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "198.51.100.7:4567"
	r.Header.Set("X-Forwarded-For", "203.0.113.9")

	if got := m.extractRealIP(r); got != "198.51.100.7" {
		t.Errorf("extractRealIP = %q, want direct %q", got, "198.51.100.7")
	}
}

func TestRealIP_TrustedProxyUsesForwardedFor(t *testing.T) {
	m := NewRealIPMiddleware([]string{"10.0.0.0/8"})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.1.2.3:4567"
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.1.2.3")

	if got := m.extractRealIP(r); got != "203.0.113.9" {
		t.Errorf("extractRealIP = %q, want first hop %q", got, "203.0.113.9")
	}
}

func TestRealIP_CloudflareHeaderTakesPriority(t *testing.T) {
	m := NewRealIPMiddleware([]string{"10.1.2.3"})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.1.2.3:4567"
	r.Header.Set("CF-Connecting-IP", "203.0.113.9")
	r.Header.Set("X-Forwarded-For", "192.0.2.1")

	if got := m.extractRealIP(r); got != "203.0.113.9" {
		t.Errorf("extractRealIP = %q, want %q", got, "203.0.113.9")
	}
}

func TestRealIP_MappedIPv6CollapsesToSameOrigin(t *testing.T) {
	// The same client arriving over an IPv4 socket and an IPv4-mapped IPv6
	// socket must resolve to one origin key, or presence counts it twice.
	m := NewRealIPMiddleware(nil)

	r4 := httptest.NewRequest(http.MethodGet, "/", nil)
	r4.RemoteAddr = "203.0.113.9:1111"
	r6 := httptest.NewRequest(http.MethodGet, "/", nil)
	r6.RemoteAddr = "[::ffff:203.0.113.9]:2222"

	ip4 := m.extractRealIP(r4)
	ip6 := m.extractRealIP(r6)
	if ip4 != ip6 {
		t.Errorf("origins differ: %q vs %q", ip4, ip6)
	}
}

func TestOriginID_PrefersRealIPHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.1.2.3:4567"
	r.Header.Set("X-Real-IP", "::ffff:203.0.113.9")

	if got := OriginID(r); got != "203.0.113.9" {
		t.Errorf("OriginID = %q, want %q", got, "203.0.113.9")
	}
}

func TestRealIPHandler_SetsCanonicalHeader(t *testing.T) {
	m := NewRealIPMiddleware(nil)

	var got string
	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Real-IP")
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "[::ffff:203.0.113.9]:2222"
	h.ServeHTTP(httptest.NewRecorder(), r)

	if got != "203.0.113.9" {
		t.Errorf("X-Real-IP = %q, want %q", got, "203.0.113.9")
	}
}
