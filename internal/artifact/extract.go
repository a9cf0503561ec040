package artifact

import "strings"

// Extract scans a raw model response for fenced code regions and
// classifies each into an artifact slot.
//
// The scanner is a lexer over a fixed token grammar (fence open with a
// tag on the same line, body, closing fence on its own line), not a
// markdown parser. Nested triple-fences inside a body are unsupported:
// the first closing fence wins. Multiple regions of the same kind may
// appear; the first match wins per kind and later duplicates are
// dropped, not merged. Every matched region is removed from the text,
// and what remains (trimmed) is the explanatory text.
//
// Fallback policy, byte-exact:
//   - nothing matched: all three sentinels, explanatory text = input
//   - matched, residual text empty: AckText
//   - nothing matched and input empty: NoContentText
func Extract(raw string) (explanatory string, set Set) {
	set = EmptySet()

	var residual strings.Builder
	matched := false
	rest := raw

	for {
		region, before, after, ok := nextFence(rest)
		if !ok {
			residual.WriteString(rest)
			break
		}
		rest = after
		residual.WriteString(before)

		kind, known := kindForTag(region.tag)
		if !known {
			// Not part of the artifact vocabulary; keep the region
			// verbatim in the explanatory text.
			residual.WriteString(region.raw)
			continue
		}
		matched = true
		if !set.Sentinel(kind) {
			continue // first match already won
		}
		switch kind {
		case KindComponent:
			set.Component = strings.TrimSpace(region.body)
		case KindStylesheet:
			set.Stylesheet = strings.TrimSpace(region.body)
		case KindMarkup:
			set.Markup = strings.TrimSpace(region.body)
		}
	}

	if !matched {
		// Nothing recognized: the explanatory text is the full
		// response, unmodified.
		if strings.TrimSpace(raw) == "" {
			return NoContentText, set
		}
		return raw, set
	}

	explanatory = strings.TrimSpace(residual.String())
	if explanatory == "" {
		explanatory = AckText
	}
	return explanatory, set
}

// fenceRegion is one lexed fenced block.
type fenceRegion struct {
	tag  string // lowercased tag following the opening fence
	body string // text between the fences, untrimmed
	raw  string // the full region including both fences
}

const fenceMarker = "```"

// nextFence lexes the next complete fenced region out of text. It
// returns the region, the text before it, and the text after it. ok is
// false when no complete tagged region remains.
func nextFence(text string) (region fenceRegion, before, after string, ok bool) {
	search := text
	offset := 0
	for {
		open := strings.Index(search, fenceMarker)
		if open == -1 {
			return fenceRegion{}, "", "", false
		}
		open += offset

		// The tag runs from the fence to end of line and must be
		// non-empty; a bare ``` is an (unmatched) closing fence.
		tagEnd := strings.IndexByte(text[open:], '\n')
		if tagEnd == -1 {
			return fenceRegion{}, "", "", false
		}
		tagEnd += open
		tag := strings.TrimSpace(text[open+len(fenceMarker) : tagEnd])
		if tag == "" || strings.Contains(tag, "`") {
			offset = tagEnd + 1
			search = text[offset:]
			continue
		}

		bodyStart := tagEnd + 1
		closeRel := findClosingFence(text[bodyStart:])
		if closeRel == -1 {
			// Unterminated region: treat the remainder as plain text.
			return fenceRegion{}, "", "", false
		}
		bodyEnd := bodyStart + closeRel
		rawEnd := bodyEnd + len(fenceMarker)

		return fenceRegion{
			tag:  strings.ToLower(tag),
			body: text[bodyStart:bodyEnd],
			raw:  text[open:rawEnd],
		}, text[:open], text[rawEnd:], true
	}
}

// findClosingFence returns the offset of the first closing fence that
// starts a line, or -1.
func findClosingFence(s string) int {
	idx := 0
	for {
		rel := strings.Index(s[idx:], fenceMarker)
		if rel == -1 {
			return -1
		}
		pos := idx + rel
		if pos == 0 || s[pos-1] == '\n' {
			return pos
		}
		idx = pos + len(fenceMarker)
	}
}

// scriptMarkers classify a tag as component source. Any tag containing
// one of these is script-like: "go", but also the web-dialect names the
// model sometimes echoes back ("jsx", "tsx", "javascript").
var scriptMarkers = []string{"go", "js", "ts", "script"}

// kindForTag maps a fence tag to its artifact kind. Tags outside the
// vocabulary are not artifacts.
func kindForTag(tag string) (Kind, bool) {
	switch tag {
	case "css", "style", "stylesheet":
		return KindStylesheet, true
	case "html", "xml", "markup":
		return KindMarkup, true
	}
	for _, m := range scriptMarkers {
		if strings.Contains(tag, m) {
			return KindComponent, true
		}
	}
	return "", false
}
