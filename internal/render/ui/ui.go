// Package ui is the rendering kit injected into the sandbox: the
// element tree the generated component builds, plus the state, effect,
// and ref primitives it may call. It is the complete surface the
// interpreted code can reach; nothing else from the host is visible
// inside the sandbox.
package ui

import (
	"fmt"
	"html"
	"sort"
	"strings"
)

// Attrs maps attribute names to values.
type Attrs map[string]string

// Node is one element of the rendered tree. A Node with an empty Tag is
// a text node.
type Node struct {
	Tag      string
	Attrs    Attrs
	Text     string
	Children []Node
}

// Text creates a text node. Content is escaped at serialization time.
func Text(s string) Node { return Node{Text: s} }

// E creates an element node. Children may be Node, []Node, string, or
// any value formattable with fmt.Sprint; nil children are skipped.
func E(tag string, attrs Attrs, children ...any) Node {
	n := Node{Tag: tag, Attrs: attrs}
	for _, c := range children {
		switch v := c.(type) {
		case nil:
			continue
		case Node:
			n.Children = append(n.Children, v)
		case []Node:
			n.Children = append(n.Children, v...)
		case string:
			n.Children = append(n.Children, Text(v))
		default:
			n.Children = append(n.Children, Text(fmt.Sprint(v)))
		}
	}
	return n
}

// voidTags never take children and render self-closed.
var voidTags = map[string]bool{
	"br": true, "hr": true, "img": true, "input": true, "meta": true, "link": true,
}

// HTML serializes the node tree. Text and attribute values are escaped;
// attributes are emitted in sorted order so identical trees always
// serialize identically.
func (n Node) HTML() string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n Node) write(b *strings.Builder) {
	if n.Tag == "" {
		b.WriteString(html.EscapeString(n.Text))
		return
	}

	b.WriteByte('<')
	b.WriteString(n.Tag)

	keys := make([]string, 0, len(n.Attrs))
	for k := range n.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(n.Attrs[k]))
		b.WriteByte('"')
	}

	if voidTags[n.Tag] {
		b.WriteString("/>")
		return
	}

	b.WriteByte('>')
	for _, c := range n.Children {
		c.write(b)
	}
	b.WriteString("</")
	b.WriteString(n.Tag)
	b.WriteByte('>')
}
