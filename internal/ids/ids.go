// Package ids generates entity identifiers: random UUIDs for ledger rows
// and deterministic slugs for entities auto-created during ingestion.
package ids

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// New returns a fresh random identifier with the given entity prefix.
// Example: New("txn") → "txn-8f14e45f-..."
func New(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.New().String())
}

// Slugify converts a display name to a URL-safe slug.
// Examples: "HDFC Bank" → "hdfc-bank", "Health & Glow" → "health-glow"
func Slugify(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("name cannot be empty")
	}

	// Normalize unicode (e.g., accented characters)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	normalized, _, err := transform.String(t, name)
	if err != nil {
		return "", fmt.Errorf("failed to normalize name %q: %w", name, err)
	}
	if normalized == "" {
		return "", fmt.Errorf("name %q contains only non-displayable unicode characters", name)
	}

	slug := strings.ToLower(normalized)
	slug = nonAlnum.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	if slug == "" {
		return "", fmt.Errorf("name %q contains no alphanumeric characters", name)
	}
	return slug, nil
}

// Deterministic builds a stable identifier from an entity prefix and a
// display name, for entities whose identity is their per-user name
// (accounts, categories, merchants, tags).
// Example: Deterministic("cat", "Health & Wellness") → "cat-health-wellness"
func Deterministic(prefix, name string) (string, error) {
	slug, err := Slugify(name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s", prefix, slug), nil
}

// SanitizeRef maps a statement reference to the restricted character set
// used inside dedup keys, truncated for bounded key length. Empty input
// returns empty output; callers supply their own fallback.
func SanitizeRef(ref string) string {
	out := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, strings.TrimSpace(ref))

	if len(out) > 24 {
		out = out[:24]
	}
	return out
}
