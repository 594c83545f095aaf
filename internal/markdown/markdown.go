package markdown

import (
	"strings"
	"unicode/utf8"
)

// Taken from https://core.telegram.org/bots/api#markdownv2-style.
const v2SpecialChars = `\_*[]()~` + "`" + `>#+-=|{}.!`

//nolint:gochecknoglobals // Lookup table meant to be immutable.
var v2Lookup = func() [utf8.RuneSelf]bool {
	var m [utf8.RuneSelf]bool
	for i := range len(v2SpecialChars) {
		m[v2SpecialChars[i]] = true
	}
	return m
}()

// EscapeV2 escapes text so that Telegram renders it literally in
// MarkdownV2 mode.
func EscapeV2(input string) string {
	n := 0
	for i := range len(input) {
		if c := input[i]; c < utf8.RuneSelf && v2Lookup[c] {
			n++
		}
	}
	if n == 0 {
		return input
	}

	var b strings.Builder
	b.Grow(len(input) + n)

	for i := range len(input) {
		c := input[i]
		if c < utf8.RuneSelf && v2Lookup[c] {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}

	return b.String()
}

// Split cuts text into parts of at most limit bytes. It prefers paragraph
// breaks, then line breaks, then spaces, and never cuts a rune or an escape
// sequence in half.
func Split(text string, limit int) []string {
	if limit <= 0 || len(text) <= limit {
		if text == "" {
			return nil
		}
		return []string{text}
	}

	var parts []string
	rest := text

	for len(rest) > limit {
		cut := cutIndex(rest, limit)

		part := strings.TrimRight(rest[:cut], " \n")
		if part != "" {
			parts = append(parts, part)
		}
		rest = strings.TrimLeft(rest[cut:], " \n")
	}

	if rest != "" {
		parts = append(parts, rest)
	}

	return parts
}

func cutIndex(text string, limit int) int {
	window := text[:limit]

	for _, sep := range []string{"\n\n", "\n", " "} {
		if i := strings.LastIndex(window, sep); i > 0 {
			return i + len(sep)
		}
	}

	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	// A trailing backslash would escape the first char of the next part.
	for cut > 1 && text[cut-1] == '\\' {
		cut--
	}
	if cut == 0 {
		return limit
	}

	return cut
}
