package anonymous

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"jules-backend/pkg/config"
)

// IPExtractor returns the client address recorded on new sessions and used
// as the throttle key.
type IPExtractor interface {
	ExtractIP(r *http.Request) (string, error)
}

// RemoteAddrExtractor uses the TCP peer address only.
type RemoteAddrExtractor struct{}

func (RemoteAddrExtractor) ExtractIP(r *http.Request) (string, error) {
	return hostOnly(r.RemoteAddr)
}

// TrustedProxies lists the reverse proxies whose forwarding headers are
// believed.
type TrustedProxies struct {
	Enabled bool
	CIDRs   []netip.Prefix
}

// Contains reports whether remoteAddr ("ip:port" or "ip") is a trusted proxy.
func (p TrustedProxies) Contains(remoteAddr string) bool {
	host, err := hostOnly(remoteAddr)
	if err != nil {
		return false
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	for _, prefix := range p.CIDRs {
		if prefix.Contains(addr.Unmap()) {
			return true
		}
	}
	return false
}

// LoadTrustedProxies reads TRUST_PROXY and TRUSTED_PROXIES (comma-separated
// IPs or CIDRs). Enabling trust without any valid proxy is an error so a
// misconfigured deployment fails at startup.
func LoadTrustedProxies() (TrustedProxies, error) {
	cfg := TrustedProxies{Enabled: config.GetEnvBool("TRUST_PROXY", false)}
	if !cfg.Enabled {
		return cfg, nil
	}
	for _, raw := range config.GetEnvStringList("TRUSTED_PROXIES", nil) {
		prefix, err := ParseProxy(raw)
		if err != nil {
			return TrustedProxies{}, err
		}
		cfg.CIDRs = append(cfg.CIDRs, prefix)
	}
	if len(cfg.CIDRs) == 0 {
		return TrustedProxies{}, fmt.Errorf("TRUST_PROXY is enabled but TRUSTED_PROXIES is empty")
	}
	return cfg, nil
}

// ParseProxy accepts a CIDR or a bare address (turned into a /32 or /128).
func ParseProxy(s string) (netip.Prefix, error) {
	s = strings.TrimSpace(s)
	if prefix, err := netip.ParsePrefix(s); err == nil {
		return prefix.Masked(), nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid trusted proxy %q: want an IP address or CIDR", s)
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// ForwardedExtractor believes X-Forwarded-For (first hop) and then X-Real-IP,
// but only when the peer is a trusted proxy. Otherwise it behaves like
// RemoteAddrExtractor.
type ForwardedExtractor struct {
	Proxies TrustedProxies
}

func (e ForwardedExtractor) ExtractIP(r *http.Request) (string, error) {
	if !e.Proxies.Enabled {
		return hostOnly(r.RemoteAddr)
	}
	xff := r.Header.Get("X-Forwarded-For")
	xri := r.Header.Get("X-Real-IP")
	if !e.Proxies.Contains(r.RemoteAddr) {
		if xff != "" || xri != "" {
			slog.Default().Warn("forwarding headers from untrusted peer ignored",
				slog.String("remote_addr", r.RemoteAddr))
		}
		return hostOnly(r.RemoteAddr)
	}
	if ip := firstForwarded(xff); ip != "" {
		return ip, nil
	}
	if ip := net.ParseIP(strings.TrimSpace(xri)); ip != nil {
		return ip.String(), nil
	}
	return hostOnly(r.RemoteAddr)
}

// NewIPExtractor picks ForwardedExtractor when proxy trust is enabled.
func NewIPExtractor(p TrustedProxies) IPExtractor {
	if p.Enabled {
		return ForwardedExtractor{Proxies: p}
	}
	return RemoteAddrExtractor{}
}

func hostOnly(addr string) (string, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		if ip := net.ParseIP(strings.Trim(addr, "[]")); ip != nil {
			return ip.String(), nil
		}
		return "", fmt.Errorf("invalid address format: %s", addr)
	}
	return host, nil
}

func firstForwarded(xff string) string {
	first, _, _ := strings.Cut(xff, ",")
	if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
		return ip.String()
	}
	return ""
}
