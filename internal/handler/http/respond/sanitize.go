package respond

import "regexp"

var (
	openaiKeyPattern   = regexp.MustCompile(`sk-[a-zA-Z0-9_-]{10,}`)
	bearerPattern      = regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._~+/=-]+`)
	jwtPattern         = regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`)
	dsnPasswordPattern = regexp.MustCompile(`://([^:/@\s]+):([^@\s]+)@`)
	// 64 hex characters is the session id format.
	sessionIDPattern = regexp.MustCompile(`\b([0-9a-f]{8})[0-9a-f]{56}\b`)
)

// SanitizeError returns err's message with secrets masked.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeMessage(err.Error())
}

// SanitizeMessage masks API keys, bearer tokens, DSN passwords and session ids.
func SanitizeMessage(msg string) string {
	msg = openaiKeyPattern.ReplaceAllString(msg, "sk-****")
	msg = bearerPattern.ReplaceAllString(msg, "Bearer ****")
	msg = jwtPattern.ReplaceAllString(msg, "****")
	msg = dsnPasswordPattern.ReplaceAllString(msg, "://$1:****@")
	msg = sessionIDPattern.ReplaceAllString(msg, "$1...")
	return msg
}
