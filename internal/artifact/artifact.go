// Package artifact defines the generated-code artifact model and the
// extractor that pulls typed artifacts out of raw model responses.
//
// A Set holds at most one current artifact per kind. "Nothing generated"
// is expressed with kind-specific sentinel strings rather than empty
// strings, so callers can distinguish "the model produced no code for
// this prompt" from "no prompt yet". Downstream UI compares against the
// sentinels byte-for-byte; never reformat them.
package artifact

import "strings"

// Kind identifies one artifact slot.
type Kind string

const (
	KindComponent  Kind = "component"
	KindStylesheet Kind = "stylesheet"
	KindMarkup     Kind = "markup"
)

// Sentinel values meaning "nothing was generated for this kind".
// These are exact-match significant: the UI decides whether to offer
// render/copy/export actions by comparing against them.
const (
	ComponentSentinel  = "// no component generated"
	StylesheetSentinel = "/* no stylesheet generated */"
	MarkupSentinel     = "<!-- no markup generated -->"
)

// Fixed explanatory-text substitutes (see Extract).
const (
	// AckText replaces an empty residual text when at least one fenced
	// region was extracted.
	AckText = "here is the requested code"

	// NoContentText replaces an empty response in which nothing matched.
	NoContentText = "no code or text was generated"
)

// Set is the latest accepted artifact per kind. It represents current
// state, not history; per-turn snapshots live on the turns themselves.
type Set struct {
	Component  string `json:"component"`
	Stylesheet string `json:"stylesheet"`
	Markup     string `json:"markup"`
}

// EmptySet returns a Set with every kind at its sentinel.
func EmptySet() Set {
	return Set{
		Component:  ComponentSentinel,
		Stylesheet: StylesheetSentinel,
		Markup:     MarkupSentinel,
	}
}

// Get returns the source text for the given kind.
func (s Set) Get(k Kind) string {
	switch k {
	case KindComponent:
		return s.Component
	case KindStylesheet:
		return s.Stylesheet
	case KindMarkup:
		return s.Markup
	}
	return ""
}

// Sentinel reports whether the given kind holds its sentinel value.
func (s Set) Sentinel(k Kind) bool {
	switch k {
	case KindComponent:
		return s.Component == ComponentSentinel
	case KindStylesheet:
		return s.Stylesheet == StylesheetSentinel
	case KindMarkup:
		return s.Markup == MarkupSentinel
	}
	return true
}

// Empty reports whether every kind holds its sentinel (or is blank, for
// sets loaded from older rows that predate the sentinels).
func (s Set) Empty() bool {
	for _, k := range []Kind{KindComponent, KindStylesheet, KindMarkup} {
		if v := s.Get(k); v != "" && !s.Sentinel(k) {
			return false
		}
	}
	return true
}

// fence tags used when re-serializing artifacts for the model.
// Extract maps these back to the same kinds, so a serialized Set
// round-trips exactly.
const (
	componentTag  = "go"
	stylesheetTag = "css"
	markupTag     = "html"
)

// Serialize renders the non-sentinel artifacts as fenced code blocks,
// the same shape the model originally produced. Sentinel kinds are
// omitted so re-extraction yields their sentinels again.
func (s Set) Serialize() string {
	var b strings.Builder
	write := func(tag, body string) {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("```")
		b.WriteString(tag)
		b.WriteString("\n")
		b.WriteString(body)
		b.WriteString("\n```")
	}
	if !s.Sentinel(KindComponent) {
		write(componentTag, s.Component)
	}
	if !s.Sentinel(KindStylesheet) {
		write(stylesheetTag, s.Stylesheet)
	}
	if !s.Sentinel(KindMarkup) {
		write(markupTag, s.Markup)
	}
	return b.String()
}
