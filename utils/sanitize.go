package utils

import (
	"regexp"
	"strings"
)

// PMS webhook payloads carry guest-typed strings collected by other channels.
// Strip anything that could become stored markup before it reaches the DB.
var (
	scriptPattern = regexp.MustCompile(`(?is)<script.*?>.*?</script\s*>`)
	tagPattern    = regexp.MustCompile(`(?s)<[^>]*>`)
	eventPattern  = regexp.MustCompile(`(?i)\bon\w+\s*=`)
	protoPattern  = regexp.MustCompile(`(?i)(javascript|vbscript|data)\s*:`)
)

func SanitizeString(s string) string {
	s = scriptPattern.ReplaceAllString(s, "")
	s = tagPattern.ReplaceAllString(s, "")
	s = eventPattern.ReplaceAllString(s, "")
	s = protoPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
