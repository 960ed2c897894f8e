package smsretriever

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// AppHashLen is the length of the app hash an SMS must contain.
const AppHashLen = 11

// MaxMessageLen is the longest SMS body, in bytes, the service will match.
const MaxMessageLen = 140

// ComputeAppHash derives the app hash from the package name and the signing
// certificate string: base64 of the first 9 bytes of sha256("<pkg> <cert>"),
// truncated to AppHashLen characters.
func ComputeAppHash(packageName, signingCert string) string {
	sum := sha256.Sum256([]byte(packageName + " " + signingCert))
	return base64.StdEncoding.EncodeToString(sum[:9])[:AppHashLen]
}

// Matches reports whether body is eligible for retrieval with the given hash.
// An empty hash accepts any body within the length limit.
func Matches(body, appHash string) bool {
	if body == "" || len(body) > MaxMessageLen {
		return false
	}
	if appHash == "" {
		return true
	}
	return strings.Contains(body, appHash)
}
