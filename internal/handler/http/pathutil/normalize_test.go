package pathutil

import (
	"testing"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{
			name:     "conversation messages",
			path:     "/conversations/3f8e0a4c-8c55-4d0b-9d43-7f3f4c1b2a10/messages",
			expected: "/conversations/:id/messages",
		},
		{
			name:     "conversation messages with trailing slash",
			path:     "/conversations/abc/messages/",
			expected: "/conversations/:id/messages",
		},
		{
			name:     "session extend",
			path:     "/admin/sessions/9b1deb4d3b7d4bad9bdd2b0d7b3dcb6d/extend",
			expected: "/admin/sessions/:id/extend",
		},
		{
			name:     "query string stripped",
			path:     "/migration/preview?sessionId=abc",
			expected: "/migration/preview",
		},
		{
			name:     "swagger assets collapse",
			path:     "/swagger/index.html",
			expected: "/swagger",
		},
		{
			name:     "static path unchanged",
			path:     "/anonymous/session",
			expected: "/anonymous/session",
		},
		{
			name:     "root path",
			path:     "/",
			expected: "/",
		},
		{
			name:     "conversation list is static",
			path:     "/conversations",
			expected: "/conversations",
		},
		{
			name:     "nested id path without template",
			path:     "/conversations/abc/other",
			expected: "/conversations/abc/other",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePath(tt.path); got != tt.expected {
				t.Errorf("NormalizePath(%q) = %q, want %q", tt.path, got, tt.expected)
			}
		})
	}
}

func TestGetExpectedCardinality(t *testing.T) {
	if got := GetExpectedCardinality(); got < len(pathPatterns) {
		t.Errorf("GetExpectedCardinality() = %d, want at least %d", got, len(pathPatterns))
	}
}
