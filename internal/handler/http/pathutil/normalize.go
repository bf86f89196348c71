// Package pathutil maps request paths onto route templates for use as
// metric labels.
package pathutil

import (
	"regexp"
	"strings"
)

// PathPattern pairs a compiled route regex with its label template.
type PathPattern struct {
	Pattern  *regexp.Regexp
	Template string
}

// pathPatterns are checked in order; ids are opaque strings (uuid or hex).
var pathPatterns = []*PathPattern{
	{Pattern: regexp.MustCompile(`^/conversations/[^/]+/messages$`), Template: "/conversations/:id/messages"},
	{Pattern: regexp.MustCompile(`^/admin/sessions/[^/]+/extend$`), Template: "/admin/sessions/:id/extend"},
	{Pattern: regexp.MustCompile(`^/swagger(/.*)?$`), Template: "/swagger"},
}

// NormalizePath converts an id-bearing path to its template so that each
// conversation or session does not create a new label value.
// Query strings and a trailing slash are stripped; static paths pass through.
//
//	NormalizePath("/conversations/3f8e0a4c/messages") // "/conversations/:id/messages"
//	NormalizePath("/anonymous/session")               // "/anonymous/session"
func NormalizePath(path string) string {
	if idx := strings.IndexByte(path, '?'); idx != -1 {
		path = path[:idx]
	}
	if len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}

	for _, p := range pathPatterns {
		if p.Pattern.MatchString(path) {
			return p.Template
		}
	}
	return path
}

// GetExpectedCardinality estimates the number of distinct path labels:
// the templates above plus the static routes.
func GetExpectedCardinality() int {
	const staticRoutes = 14 // session, usage, features, migration, ops endpoints
	return len(pathPatterns) + staticRoutes
}
