package config

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"
)

const defaultSlug = "untitled"

var (
	validSlugRe  = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)
	invalidChars = regexp.MustCompile(`[^a-z0-9_-]+`)
	leadingDash  = regexp.MustCompile(`^-+`)
	trailingDash = regexp.MustCompile(`-+$`)

	unsafeFilename = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
)

// Slug converts free text into a stable identifier segment:
//   - Lowercase, max 64 chars
//   - Only [a-z0-9_-] allowed
//   - Invalid chars replaced with "-"
//   - Leading/trailing dashes stripped
//   - Empty result defaults to "untitled"
func Slug(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return defaultSlug
	}

	lower := strings.ToLower(trimmed)
	if validSlugRe.MatchString(lower) {
		return lower
	}

	result := invalidChars.ReplaceAllString(lower, "-")
	result = leadingDash.ReplaceAllString(result, "")
	result = trailingDash.ReplaceAllString(result, "")

	if len(result) > 64 {
		result = result[:64]
	}

	if result == "" {
		return defaultSlug
	}
	return result
}

// ShortHash returns a short stable hex digest of s, used to key derived
// topic nodes without embedding arbitrary text in node ids.
func ShortHash(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h[:6])
}

// SanitizeFilename strips characters that are unsafe in file names and
// collapses whitespace to underscores.
func SanitizeFilename(name, fallback string) string {
	cleaned := unsafeFilename.ReplaceAllString(name, "_")
	cleaned = whitespaceRun.ReplaceAllString(cleaned, "_")
	cleaned = strings.Trim(cleaned, "._")
	if cleaned == "" {
		return fallback
	}
	return cleaned
}
