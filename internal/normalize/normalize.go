// Package normalize post-processes raw model output before it reaches the
// conversation history or the caller. Small local models routinely echo
// role labels, wrap replies in quotes, or ramble past any usable length;
// every step here exists because some model produced that artifact.
package normalize

import "strings"

// Placeholder is returned when normalization leaves nothing to show.
const Placeholder = "..."

const (
	// maxLen is the longest reply allowed through, in characters.
	maxLen = 200
	// hardLen is the hard-truncation length when no sentence boundary
	// is usable; hardLen plus the appended ellipsis equals maxLen.
	hardLen = 197
	// minCut: a sentence-boundary cut must land past this position,
	// otherwise the reply would be uselessly short.
	minCut = 50
	// leakWindow is how far back from a role marker a newline must sit
	// for the marker to count as a leaked dialogue line.
	leakWindow = 50
)

// leakMarkers are the narration patterns models leak when they continue
// the transcript instead of answering in first person.
var leakMarkers = []string{" says:", " responds:", " replies:"}

// Normalize cleans one raw model reply. Pure and deterministic.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Placeholder
	}
	s = stripRoleLeak(s)
	s = stripQuotes(s)
	s = firstParagraph(s)
	s = clampLength(s)
	if s == "" {
		return Placeholder
	}
	return s
}

// stripRoleLeak looks (case-insensitively, from the end) for the last
// leaked "<name> says:" style marker that starts a line, and keeps only
// the text after it. The newline check keeps legitimate mid-sentence uses
// of these words intact.
func stripRoleLeak(s string) string {
	lower := strings.ToLower(s)
	best := -1
	bestEnd := -1
	for _, marker := range leakMarkers {
		idx := strings.LastIndex(lower, marker)
		if idx > best {
			best = idx
			bestEnd = idx + len(marker)
		}
	}
	if best < 0 {
		return s
	}
	from := best - leakWindow
	if from < 0 {
		from = 0
	}
	if !strings.Contains(s[from:best], "\n") {
		return s
	}
	return strings.TrimSpace(s[bestEnd:])
}

// stripQuotes removes one layer of symmetric surrounding quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '"' || first == '\'') {
			return strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}

// firstParagraph keeps only the text before the first blank-line break.
func firstParagraph(s string) string {
	if idx := strings.Index(s, "\n\n"); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return s
}

// clampLength bounds the reply to maxLen characters, preferring to cut at
// a sentence-ending period past minCut, falling back to a hard truncation
// with an ellipsis.
func clampLength(s string) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	for i := maxLen - 1; i >= minCut; i-- {
		if r[i] == '.' {
			return strings.TrimSpace(string(r[:i+1]))
		}
	}
	return string(r[:hardLen]) + Placeholder
}
