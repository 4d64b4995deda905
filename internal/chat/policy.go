package chat

import (
	"regexp"
)

// Messages carrying links or phone numbers are rejected so hiring
// conversations stay on the platform. This is product policy, not a
// security control.
var (
	urlPattern   = regexp.MustCompile(`(?i)(https?://\S+|www\.\S+|\b[\w-]+\.(com|net|org|io|co|vn)\b)`)
	phonePattern = regexp.MustCompile(`(\+\d{9,14}\b|\b\d{10,11}\b|\b\d{3}[-.\s]\d{3}[-.\s]\d{4}\b)`)
)

// ViolatesContentPolicy reports whether content matches a URL-like or
// phone-number-like pattern.
func ViolatesContentPolicy(content string) bool {
	return urlPattern.MatchString(content) || phonePattern.MatchString(content)
}
