package transform

import (
	"regexp"
	"strings"
	"unicode"
)

// urlRegex matches http(s) links and bare www links.
var urlRegex = regexp.MustCompile(`https?://\S+|www\.\S+`)

// Clean normalises text for embedding: links removed, pictographic
// glyphs stripped, lowercased, whitespace collapsed. Clean is
// idempotent: Clean(Clean(x)) == Clean(x) for any input.
func Clean(text string) string {
	if text == "" {
		return ""
	}

	text = strings.ToLower(text)
	text = urlRegex.ReplaceAllString(text, "")

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if isPictographic(r) {
			continue
		}
		b.WriteRune(r)
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// isPictographic reports whether a rune is an emoji, symbol or invisible
// joiner that carries no textual meaning for embeddings.
func isPictographic(r rune) bool {
	if unicode.Is(unicode.So, r) || unicode.Is(unicode.Sk, r) {
		return true
	}
	// Format controls: zero-width joiners and directional marks that
	// glue emoji sequences together.
	if unicode.Is(unicode.Cf, r) {
		return true
	}
	// Variation selectors select emoji presentation.
	if r >= 0xFE00 && r <= 0xFE0F {
		return true
	}
	// Emoji blocks outside the So category (keycap combiners, tags).
	if r >= 0x1F000 && r <= 0x1FAFF {
		return true
	}
	return false
}
