package entity

import (
	"fmt"
	"net/netip"
	"net/url"
	"strings"
)

// maxImageURLLength bounds the picture URL forwarded to the advisor.
const maxImageURLLength = 2048

// ValidateImageURL accepts an https URL whose host is a public name or a
// public IP literal. The advisor's model provider fetches the picture, so
// loopback, private and link-local targets are refused. Names are not
// resolved here.
func ValidateImageURL(raw string) error {
	if len(raw) > maxImageURLLength {
		return &ValidationError{Field: "imageUrl", Message: fmt.Sprintf("must not exceed %d characters", maxImageURLLength)}
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "https" || u.Hostname() == "" {
		return &ValidationError{Field: "imageUrl", Message: "must be an https URL"}
	}

	host := strings.ToLower(u.Hostname())
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return &ValidationError{Field: "imageUrl", Message: "must not point to a private network"}
	}
	if addr, err := netip.ParseAddr(host); err == nil && !isPublicAddr(addr) {
		return &ValidationError{Field: "imageUrl", Message: "must not point to a private network"}
	}
	return nil
}

// 169.254.169.254 (cloud metadata) is covered by the link-local check.
func isPublicAddr(a netip.Addr) bool {
	a = a.Unmap()
	return !(a.IsLoopback() || a.IsPrivate() || a.IsLinkLocalUnicast() ||
		a.IsLinkLocalMulticast() || a.IsUnspecified())
}
