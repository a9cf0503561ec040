package render

import (
	"html"
	"sort"
	"strings"
	"sync"
)

// Document is the host surface renderers mount into. It models what the
// render pipeline needs from a page: a reusable root per renderer, a
// scoped style registry keyed by renderer id, and deterministic HTML
// serialization. Roots survive re-renders; setting a style replaces any
// previous style for the same renderer rather than accumulating.
type Document struct {
	mu      sync.Mutex
	roots   map[string]*Root
	styles  map[string]string
	created int
}

// Root is a renderer's mount point. Content and Error are mutually
// exclusive: a failed render clears Content and sets Error.
type Root struct {
	Content string
	Error   string
}

func NewDocument() *Document {
	return &Document{
		roots:  make(map[string]*Root),
		styles: make(map[string]string),
	}
}

// EnsureRoot returns the root for id, creating it on first use.
func (d *Document) EnsureRoot(id string) *Root {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.roots[id]; ok {
		return r
	}
	r := &Root{}
	d.roots[id] = r
	d.created++
	return r
}

// RemoveRoot drops the root and any style registered under id.
func (d *Document) RemoveRoot(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.roots, id)
	delete(d.styles, id)
}

// SetStyle registers css under id, replacing any previous entry.
func (d *Document) SetStyle(id, css string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.styles[id] = css
}

func (d *Document) RemoveStyle(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.styles, id)
}

// StyleCount reports how many style blocks the document carries.
func (d *Document) StyleCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.styles)
}

// RootsCreated reports how many roots have ever been created, so reuse
// across re-renders is observable.
func (d *Document) RootsCreated() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.created
}

// HTML serializes the document: style blocks first, then each root,
// both in sorted id order.
func (d *Document) HTML() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var b strings.Builder
	for _, id := range sortedKeys(d.styles) {
		b.WriteString(`<style data-renderer="` + id + `">`)
		b.WriteString(d.styles[id])
		b.WriteString("</style>\n")
	}
	for _, id := range sortedKeys(d.roots) {
		r := d.roots[id]
		b.WriteString(`<div data-root="` + id + `">`)
		if r.Error != "" {
			b.WriteString(`<pre class="render-error">`)
			b.WriteString(html.EscapeString(r.Error))
			b.WriteString("</pre>")
		} else {
			b.WriteString(r.Content)
		}
		b.WriteString("</div>\n")
	}
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
