package render

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Transpile lowers the component-templating dialect to plain kit calls.
// Angle-bracket literals in expression position become ui.E
// invocations; `{expr}` children are spliced through as Go expressions;
// capitalized tags become component calls. Source without tag literals
// passes through unchanged.
//
// Failures are reported as *TranspileError carrying the lexer's message
// with a line position.
func Transpile(src string) (string, error) {
	t := &transpiler{src: src}
	out, err := t.run()
	if err != nil {
		return "", err
	}
	return out, nil
}

type transpiler struct {
	src string
	pos int
	out strings.Builder
}

func (t *transpiler) errf(at int, format string, args ...any) error {
	line := 1 + strings.Count(t.src[:at], "\n")
	return &TranspileError{Message: fmt.Sprintf("line %d: %s", line, fmt.Sprintf(format, args...))}
}

func (t *transpiler) run() (string, error) {
	for t.pos < len(t.src) {
		c := t.src[t.pos]
		switch {
		case c == '"' || c == '\'' || c == '`':
			if err := t.copyString(c); err != nil {
				return "", err
			}
		case c == '/' && t.pos+1 < len(t.src) && t.src[t.pos+1] == '/':
			t.copyUntil("\n")
		case c == '/' && t.pos+1 < len(t.src) && t.src[t.pos+1] == '*':
			t.copyUntil("*/")
		case c == '<' && t.tagStartsHere():
			expr, err := t.parseElement()
			if err != nil {
				return "", err
			}
			t.out.WriteString(expr)
		default:
			t.out.WriteByte(c)
			t.pos++
		}
	}
	return t.out.String(), nil
}

// copyString copies a quoted literal verbatim, honoring backslash
// escapes in interpreted strings.
func (t *transpiler) copyString(quote byte) error {
	start := t.pos
	t.out.WriteByte(quote)
	t.pos++
	for t.pos < len(t.src) {
		c := t.src[t.pos]
		t.out.WriteByte(c)
		t.pos++
		if c == '\\' && quote != '`' && t.pos < len(t.src) {
			t.out.WriteByte(t.src[t.pos])
			t.pos++
			continue
		}
		if c == quote {
			return nil
		}
	}
	return t.errf(start, "unterminated string literal")
}

// copyUntil copies through the next occurrence of end (or to EOF).
func (t *transpiler) copyUntil(end string) {
	idx := strings.Index(t.src[t.pos:], end)
	if idx == -1 {
		t.out.WriteString(t.src[t.pos:])
		t.pos = len(t.src)
		return
	}
	stop := t.pos + idx + len(end)
	t.out.WriteString(t.src[t.pos:stop])
	t.pos = stop
}

// tagStartsHere reports whether the '<' at the current position opens a
// tag literal rather than a comparison. A tag must be followed by a
// letter and stand in expression position: at the start of the source,
// after an opening delimiter or operator, or after the return keyword.
func (t *transpiler) tagStartsHere() bool {
	if t.pos+1 >= len(t.src) || !isLetter(t.src[t.pos+1]) {
		return false
	}

	i := t.pos - 1
	for i >= 0 && (t.src[i] == ' ' || t.src[i] == '\t') {
		i--
	}
	if i < 0 {
		return true
	}
	switch t.src[i] {
	case '(', ',', '=', '{', ':', '|', '&', '!', ';', '\n':
		return true
	}

	// Preceding identifier: only "return" puts us in expression position.
	end := i + 1
	for i >= 0 && isIdentByte(t.src[i]) {
		i--
	}
	return t.src[i+1:end] == "return"
}

// parseElement consumes one element starting at '<' and returns the
// lowered Go expression.
func (t *transpiler) parseElement() (string, error) {
	start := t.pos
	t.pos++ // consume '<'

	name := t.readIdent()
	if name == "" {
		return "", t.errf(start, "expected tag name after '<'")
	}
	isComponent := unicode.IsUpper(rune(name[0]))

	attrs, selfClosed, err := t.parseAttrs(name)
	if err != nil {
		return "", err
	}

	if isComponent {
		if len(attrs) > 0 {
			return "", t.errf(start, "component tag <%s> does not take attributes", name)
		}
		if !selfClosed {
			return "", t.errf(start, "component tag <%s> must be self-closing", name)
		}
		return name + "()", nil
	}

	var children []string
	if !selfClosed {
		children, err = t.parseChildren(name)
		if err != nil {
			return "", err
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "ui.E(%q, %s", name, attrsExpr(attrs))
	for _, c := range children {
		b.WriteString(", ")
		b.WriteString(c)
	}
	b.WriteByte(')')
	return b.String(), nil
}

type attr struct {
	key  string
	expr string // Go expression for the value
}

func attrsExpr(attrs []attr) string {
	if len(attrs) == 0 {
		return "nil"
	}
	var b strings.Builder
	b.WriteString("ui.Attrs{")
	for i, a := range attrs {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%q: %s", a.key, a.expr)
	}
	b.WriteByte('}')
	return b.String()
}

// parseAttrs consumes attributes up to and including '>' or '/>'.
func (t *transpiler) parseAttrs(tag string) ([]attr, bool, error) {
	var attrs []attr
	for {
		t.skipSpace()
		if t.pos >= len(t.src) {
			return nil, false, t.errf(t.pos-1, "unterminated tag <%s>", tag)
		}
		switch {
		case t.src[t.pos] == '>':
			t.pos++
			return attrs, false, nil
		case strings.HasPrefix(t.src[t.pos:], "/>"):
			t.pos += 2
			return attrs, true, nil
		}

		keyStart := t.pos
		key := t.readAttrName()
		if key == "" {
			return nil, false, t.errf(keyStart, "expected attribute name in <%s>", tag)
		}

		if t.pos >= len(t.src) || t.src[t.pos] != '=' {
			attrs = append(attrs, attr{key: key, expr: `""`}) // bare attribute
			continue
		}
		t.pos++ // consume '='

		switch {
		case t.pos < len(t.src) && t.src[t.pos] == '"':
			val, err := t.readQuoted()
			if err != nil {
				return nil, false, err
			}
			attrs = append(attrs, attr{key: key, expr: strconv.Quote(val)})
		case t.pos < len(t.src) && t.src[t.pos] == '{':
			expr, err := t.readBraced()
			if err != nil {
				return nil, false, err
			}
			attrs = append(attrs, attr{key: key, expr: expr})
		default:
			return nil, false, t.errf(t.pos, "attribute %s in <%s> needs a quoted or braced value", key, tag)
		}
	}
}

// parseChildren consumes children up to and including the matching
// closing tag.
func (t *transpiler) parseChildren(tag string) ([]string, error) {
	closing := "</" + tag + ">"
	var children []string
	for {
		if t.pos >= len(t.src) {
			return nil, t.errf(len(t.src)-1, "missing closing tag %s", closing)
		}
		switch {
		case strings.HasPrefix(t.src[t.pos:], closing):
			t.pos += len(closing)
			return children, nil
		case strings.HasPrefix(t.src[t.pos:], "</"):
			return nil, t.errf(t.pos, "mismatched closing tag inside <%s>", tag)
		case t.src[t.pos] == '<' && t.pos+1 < len(t.src) && isLetter(t.src[t.pos+1]):
			child, err := t.parseElement()
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		case t.src[t.pos] == '{':
			expr, err := t.readBraced()
			if err != nil {
				return nil, err
			}
			children = append(children, expr)
		default:
			text := t.readText()
			if trimmed := strings.TrimSpace(text); trimmed != "" {
				children = append(children, "ui.Text("+strconv.Quote(trimmed)+")")
			}
		}
	}
}

// readText consumes raw text up to the next tag or interpolation.
func (t *transpiler) readText() string {
	start := t.pos
	for t.pos < len(t.src) && t.src[t.pos] != '<' && t.src[t.pos] != '{' {
		t.pos++
	}
	return t.src[start:t.pos]
}

// readBraced consumes a `{expr}` group and returns the inner
// expression, honoring nested braces and string literals.
func (t *transpiler) readBraced() (string, error) {
	start := t.pos
	t.pos++ // consume '{'
	depth := 1
	for t.pos < len(t.src) {
		c := t.src[t.pos]
		switch c {
		case '"', '\'', '`':
			if err := t.skipStringRaw(c); err != nil {
				return "", err
			}
			continue
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				expr := strings.TrimSpace(t.src[start+1 : t.pos])
				t.pos++
				if expr == "" {
					return "", t.errf(start, "empty interpolation")
				}
				return expr, nil
			}
		}
		t.pos++
	}
	return "", t.errf(start, "unterminated interpolation")
}

func (t *transpiler) skipStringRaw(quote byte) error {
	start := t.pos
	t.pos++
	for t.pos < len(t.src) {
		c := t.src[t.pos]
		t.pos++
		if c == '\\' && quote != '`' && t.pos < len(t.src) {
			t.pos++
			continue
		}
		if c == quote {
			return nil
		}
	}
	return t.errf(start, "unterminated string literal")
}

func (t *transpiler) readQuoted() (string, error) {
	start := t.pos
	t.pos++ // consume '"'
	for t.pos < len(t.src) {
		if t.src[t.pos] == '"' {
			val := t.src[start+1 : t.pos]
			t.pos++
			return val, nil
		}
		t.pos++
	}
	return "", t.errf(start, "unterminated attribute value")
}

func (t *transpiler) readIdent() string {
	start := t.pos
	for t.pos < len(t.src) && (isLetter(t.src[t.pos]) || isDigit(t.src[t.pos])) {
		t.pos++
	}
	return t.src[start:t.pos]
}

func (t *transpiler) readAttrName() string {
	start := t.pos
	for t.pos < len(t.src) && (isLetter(t.src[t.pos]) || isDigit(t.src[t.pos]) || t.src[t.pos] == '-') {
		t.pos++
	}
	return t.src[start:t.pos]
}

func (t *transpiler) skipSpace() {
	for t.pos < len(t.src) && (t.src[t.pos] == ' ' || t.src[t.pos] == '\t' || t.src[t.pos] == '\n' || t.src[t.pos] == '\r') {
		t.pos++
	}
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentByte(c byte) bool { return isLetter(c) || isDigit(c) || c == '_' }
