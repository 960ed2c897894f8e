// Package otp pulls one-time codes out of retrieved SMS text.
package otp

import (
	"regexp"
	"strings"
)

var (
	// A run of digits, or two groups split by a space or dash ("123 456", "123-456").
	reCode = regexp.MustCompile(`(?:^|[^\d])(\d{4,8}|\d{3,4}[ -]\d{3,4})(?:[^\d]|$)`)
	// The "<#>" prefix some senders add before the message.
	rePrefix = regexp.MustCompile(`^\s*<#>\s*`)
)

// Extract returns the first one-time code of 4 to 8 digits in text.
func Extract(text string) (string, bool) {
	text = rePrefix.ReplaceAllString(text, "")
	for _, m := range reCode.FindAllStringSubmatch(text, -1) {
		code := strings.NewReplacer(" ", "", "-", "").Replace(m[1])
		if n := len(code); n >= 4 && n <= 8 {
			return code, true
		}
	}
	return "", false
}
