package index

import (
	"sort"

	"github.com/blevesearch/bleve/v2/search"
)

// Snippet bounds: each snippet's plain-text window is capped at
// SnippetMaxChars characters (the «»  match markers are presentation
// sentinels layered on top, not counted against the cap), and at most
// SnippetMaxPerHit snippets are produced per hit.
const (
	SnippetMaxChars   = 240
	SnippetMaxPerHit  = 2
	snippetMatchOpen  = "«"
	snippetMatchClose = "»"
)

type matchSpan struct {
	start, end int
}

// Snippets builds up to SnippetMaxPerHit windows around the matched
// term locations bleve reported for field, wrapping each match in
// sentinel markers. Locations come from a search performed with
// IncludeLocations: true (search.go's Search). Returns nil if text is
// empty or no locations fall within its bounds.
func Snippets(text string, locations search.FieldTermLocationMap, field string) []string {
	if text == "" {
		return nil
	}

	termLocs, ok := locations[field]
	if !ok {
		return nil
	}

	var spans []matchSpan
	for _, locs := range termLocs {
		for _, loc := range locs {
			start, end := int(loc.Start), int(loc.End)
			if start < 0 || end > len(text) || start >= end {
				continue
			}
			spans = append(spans, matchSpan{start, end})
		}
	}
	if len(spans) == 0 {
		return nil
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	var out []string
	lastEnd := -1
	for _, sp := range spans {
		if len(out) >= SnippetMaxPerHit {
			break
		}
		if sp.start < lastEnd {
			continue
		}

		windowStart, windowEnd := snippetWindow(sp, len(text))
		snippet := text[windowStart:sp.start] + snippetMatchOpen + text[sp.start:sp.end] + snippetMatchClose + text[sp.end:windowEnd]
		out = append(out, snippet)
		lastEnd = windowEnd
	}

	return out
}

// snippetWindow centers a SnippetMaxChars-wide window on sp, clamped to
// [0, textLen).
func snippetWindow(sp matchSpan, textLen int) (int, int) {
	matchLen := sp.end - sp.start
	pad := SnippetMaxChars - matchLen
	if pad < 0 {
		return sp.start, sp.end
	}

	start := sp.start - pad/2
	if start < 0 {
		start = 0
	}
	end := start + SnippetMaxChars
	if end > textLen {
		end = textLen
		start = end - SnippetMaxChars
		if start < 0 {
			start = 0
		}
	}
	return start, end
}
