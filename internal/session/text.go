package session

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxMessageLen is the prompt length cap applied before any policy check.
const MaxMessageLen = 4000

// TrimMessage truncates oversized prompts on a rune boundary, so the cut
// never leaves invalid UTF-8 in the event log.
func TrimMessage(message string) string {
	if len(message) <= MaxMessageLen {
		return message
	}
	cut := MaxMessageLen
	for cut > 0 && !utf8.RuneStart(message[cut]) {
		cut--
	}
	return message[:cut]
}

var (
	reHeading  = regexp.MustCompile(`^#{1,6}\s*`)
	reEmphasis = regexp.MustCompile(`[*_]{1,3}([^*_]+)[*_]{1,3}`)
	reQuote    = regexp.MustCompile(`^>\s?`)
	reCode     = regexp.MustCompile("`{1,3}([^`]+)`{1,3}")
	reNumbered = regexp.MustCompile(`^\d+\.\s+`)
	reBullet   = regexp.MustCompile(`^[\-*•]\s+`)
)

// MarkdownToBullets flattens model output into plain bullet lines: strips
// headings, emphasis, quotes and code ticks, and merges any list style into
// "• " bullets. Empty input yields a single bare bullet.
func MarkdownToBullets(md string) string {
	if md == "" {
		return "•"
	}
	raw := strings.ReplaceAll(md, "\r", "")

	var out []string
	for _, line := range strings.Split(raw, "\n") {
		s := strings.TrimSpace(line)

		s = reHeading.ReplaceAllString(s, "")
		s = reEmphasis.ReplaceAllString(s, "$1")
		s = reQuote.ReplaceAllString(s, "")
		s = reCode.ReplaceAllString(s, "$1")
		s = reNumbered.ReplaceAllString(s, "")
		s = reBullet.ReplaceAllString(s, "")

		if s == "" {
			continue
		}
		out = append(out, "• "+s)
	}

	if len(out) == 0 {
		return "•"
	}
	return strings.Join(out, "\n")
}
