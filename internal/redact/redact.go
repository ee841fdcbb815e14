// Package redact scrubs personal data out of user-supplied text before it is
// written to logs. Conversation messages are free-form user input, so log
// lines carrying them must not leak emails or phone numbers.
package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
)

const previewLimit = 120

// hashSalt keeps the scrubbed tokens from acting as a reverse-lookup
// table for known emails or phone numbers.
const hashSalt = "mashup-redact-v1"

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`)
)

// Scrub replaces emails and phone numbers in text with short salted hashes,
// keeping the rest readable for debugging.
func Scrub(text string) string {
	out := emailPattern.ReplaceAllStringFunc(text, func(match string) string {
		return "[email:" + shortHash(match) + "]"
	})
	out = phonePattern.ReplaceAllStringFunc(out, func(match string) string {
		return "[phone:" + shortHash(match) + "]"
	})
	return out
}

// Preview returns a scrubbed, length-capped form of text suitable for a log
// field.
func Preview(text string) string {
	scrubbed := Scrub(text)
	if len(scrubbed) > previewLimit {
		return scrubbed[:previewLimit] + "..."
	}
	return scrubbed
}

func shortHash(data string) string {
	sum := sha256.Sum256([]byte(hashSalt + data))
	return hex.EncodeToString(sum[:])[:8]
}
