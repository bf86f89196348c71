package middleware

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"jules-backend/pkg/config"
)

// Session and usage headers are part of the API contract, so they are always
// allowed and exposed on top of whatever the environment adds.
var (
	requiredAllowedHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-Anonymous-Session-ID"}
	requiredExposedHeaders = []string{"X-Request-ID", "X-Anonymous-Session-ID", "X-Anonymous-Usage"}
)

var validMethods = map[string]bool{
	http.MethodGet: true, http.MethodPost: true, http.MethodPut: true,
	http.MethodDelete: true, http.MethodPatch: true, http.MethodOptions: true,
}

// LoadCORSConfig reads CORS_ALLOWED_ORIGINS, CORS_ALLOWED_METHODS,
// CORS_ALLOWED_HEADERS and CORS_MAX_AGE. It returns (nil, nil) when no
// origins are configured, which leaves CORS off.
func LoadCORSConfig() (*CORSConfig, error) {
	origins := config.GetEnvStringList("CORS_ALLOWED_ORIGINS", nil)
	if len(origins) == 0 {
		return nil, nil
	}
	for _, o := range origins {
		if err := validateOrigin(o); err != nil {
			return nil, err
		}
	}

	methods := config.GetEnvStringList("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"})
	for i, m := range methods {
		m = strings.ToUpper(m)
		if !validMethods[m] {
			return nil, fmt.Errorf("invalid HTTP method '%s' in CORS_ALLOWED_METHODS", m)
		}
		methods[i] = m
	}

	maxAge := config.GetEnvInt("CORS_MAX_AGE", 86400)
	if maxAge < 0 {
		return nil, fmt.Errorf("CORS_MAX_AGE must be non-negative, got: %d", maxAge)
	}

	return &CORSConfig{
		AllowedMethods: methods,
		AllowedHeaders: mergeHeaders(requiredAllowedHeaders, config.GetEnvStringList("CORS_ALLOWED_HEADERS", nil)),
		ExposedHeaders: append([]string(nil), requiredExposedHeaders...),
		MaxAge:         maxAge,
		Validator:      NewWhitelistValidator(origins),
	}, nil
}

// validateOrigin accepts scheme://host[:port] only.
func validateOrigin(origin string) error {
	u, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("invalid origin URL '%s': %w", origin, err)
	}
	switch {
	case u.Scheme != "http" && u.Scheme != "https":
		return fmt.Errorf("origin must use http or https scheme: %s", origin)
	case u.Host == "":
		return fmt.Errorf("origin must include a host: %s", origin)
	case strings.HasSuffix(origin, "/"):
		return fmt.Errorf("origin must not have trailing slash: %s", origin)
	case u.Path != "" || u.RawQuery != "" || u.Fragment != "":
		return fmt.Errorf("origin must not include path, query string or fragment: %s", origin)
	}
	return nil
}

func mergeHeaders(base, extra []string) []string {
	out := append([]string(nil), base...)
	seen := make(map[string]bool, len(base)+len(extra))
	for _, h := range base {
		seen[http.CanonicalHeaderKey(h)] = true
	}
	for _, h := range extra {
		if k := http.CanonicalHeaderKey(h); !seen[k] {
			seen[k] = true
			out = append(out, h)
		}
	}
	return out
}
