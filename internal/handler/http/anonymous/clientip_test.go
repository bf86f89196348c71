package anonymous

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteAddrExtractor(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"192.168.1.1:8080", "192.168.1.1"},
		{"[2001:db8::1]:8080", "2001:db8::1"},
		{"127.0.0.1", "127.0.0.1"},
		{"[::1]", "::1"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.addr
		got, err := RemoteAddrExtractor{}.ExtractIP(req)
		require.NoError(t, err, tt.addr)
		assert.Equal(t, tt.want, got)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "not-an-address"
	_, err := RemoteAddrExtractor{}.ExtractIP(req)
	assert.Error(t, err)
}

func TestForwardedExtractor(t *testing.T) {
	proxies := TrustedProxies{
		Enabled: true,
		CIDRs:   []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")},
	}

	tests := []struct {
		name    string
		remote  string
		xff     string
		realIP  string
		proxies TrustedProxies
		want    string
	}{
		{name: "trusted xff", remote: "10.1.2.3:443", xff: "203.0.113.5, 10.1.2.3", proxies: proxies, want: "203.0.113.5"},
		{name: "trusted real ip", remote: "10.1.2.3:443", realIP: "203.0.113.6", proxies: proxies, want: "203.0.113.6"},
		{name: "trusted bad xff falls back", remote: "10.1.2.3:443", xff: "garbage", realIP: "203.0.113.7", proxies: proxies, want: "203.0.113.7"},
		{name: "trusted no headers", remote: "10.1.2.3:443", proxies: proxies, want: "10.1.2.3"},
		{name: "untrusted peer", remote: "198.51.100.1:443", xff: "203.0.113.5", proxies: proxies, want: "198.51.100.1"},
		{name: "disabled", remote: "10.1.2.3:443", xff: "203.0.113.5", want: "10.1.2.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			got, err := ForwardedExtractor{Proxies: tt.proxies}.ExtractIP(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseProxy(t *testing.T) {
	p, err := ParseProxy("192.168.1.1")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.1/32", p.String())

	p, err = ParseProxy("2001:db8::1")
	require.NoError(t, err)
	assert.Equal(t, "2001:db8::1/128", p.String())

	p, err = ParseProxy(" 172.16.5.0/12 ")
	require.NoError(t, err)
	assert.Equal(t, "172.16.0.0/12", p.String())

	_, err = ParseProxy("nope")
	assert.Error(t, err)
}

func TestLoadTrustedProxies(t *testing.T) {
	t.Run("disabled by default", func(t *testing.T) {
		t.Setenv("TRUST_PROXY", "")
		cfg, err := LoadTrustedProxies()
		require.NoError(t, err)
		assert.False(t, cfg.Enabled)
		assert.IsType(t, RemoteAddrExtractor{}, NewIPExtractor(cfg))
	})

	t.Run("enabled", func(t *testing.T) {
		t.Setenv("TRUST_PROXY", "true")
		t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.1")
		cfg, err := LoadTrustedProxies()
		require.NoError(t, err)
		assert.Len(t, cfg.CIDRs, 2)
		assert.True(t, cfg.Contains("192.168.1.1:9000"))
		assert.False(t, cfg.Contains("192.168.1.2:9000"))
		assert.IsType(t, ForwardedExtractor{}, NewIPExtractor(cfg))
	})

	t.Run("enabled without proxies", func(t *testing.T) {
		t.Setenv("TRUST_PROXY", "true")
		t.Setenv("TRUSTED_PROXIES", "")
		_, err := LoadTrustedProxies()
		assert.Error(t, err)
	})

	t.Run("invalid proxy", func(t *testing.T) {
		t.Setenv("TRUST_PROXY", "true")
		t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,bogus")
		_, err := LoadTrustedProxies()
		assert.Error(t, err)
	})
}
