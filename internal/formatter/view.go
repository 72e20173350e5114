// Package formatter holds presentation helpers shared by the HTML views.
package formatter

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// DateLayout renders dates like " 5 Mar 2024 at 10:00 UTC"
const DateLayout = "_2 Jan 2006 at 15:04 MST"

// Placeholders for missing values
const (
	NotAvailable = "n.a."
	NoSubject    = "(no subject)"
	Unknown      = "(unknown)"
)

// Timestamp formats t with DateLayout, or NotAvailable for the zero time
func Timestamp(t time.Time) string {
	if t.IsZero() {
		return NotAvailable
	}
	return strings.TrimSpace(t.Format(DateLayout))
}

// Digest returns the first 12 hex chars of the SHA-256 of s
func Digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// Color returns a stable CSS colour for s
func Color(s string) string {
	return "#" + Digest(s)[:6]
}

// Initial returns the upper-cased first letter or digit of s, "?" if none
func Initial(s string) string {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return string(unicode.ToUpper(r))
		}
	}
	return "?"
}

// Subject returns s, or NoSubject when it is blank
func Subject(s string) string {
	return orPlaceholder(s, NoSubject)
}

// Addresses returns s, or Unknown when it is blank
func Addresses(s string) string {
	return orPlaceholder(s, Unknown)
}

// Truncate shortens s to maxLen characters, adding an ellipsis
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen]) + "…"
}

func orPlaceholder(s, placeholder string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return placeholder
	}
	return s
}
