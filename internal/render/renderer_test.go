package render

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/goleak"
	"golang.org/x/net/html"

	"github.com/koopa0/atelier/internal/artifact"
	"github.com/koopa0/atelier/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestRenderer(t *testing.T) (*Renderer, *Document) {
	t.Helper()
	doc := NewDocument()
	return NewRenderer("r1", doc, testutil.NewTestLogger(t)), doc
}

func TestRenderer_MountsComponent(t *testing.T) {
	r, doc := newTestRenderer(t)

	out := r.Render(context.Background(), Payload{
		Component:  buttonSrc,
		Stylesheet: ".primary{color:red}",
	})
	if out.Err != nil {
		t.Fatalf("Render: %v", out.Err)
	}
	if !out.Mounted || out.Entry != "Btn" {
		t.Errorf("outcome = %+v, want mounted Btn", out)
	}

	page := doc.HTML()
	if !strings.Contains(page, `<button class="primary">Click</button>`) {
		t.Errorf("document missing button:\n%s", page)
	}
	if !strings.Contains(page, ".primary{color:red}") {
		t.Errorf("document missing style:\n%s", page)
	}
}

func TestRenderer_IdempotentRerender(t *testing.T) {
	r, doc := newTestRenderer(t)
	p := Payload{Component: buttonSrc, Stylesheet: ".primary{color:red}"}

	r.Render(context.Background(), p)
	first := doc.HTML()

	r.Render(context.Background(), p)
	second := doc.HTML()

	if first != second {
		t.Errorf("re-render changed output:\n%s\nvs\n%s", first, second)
	}
	if n := doc.StyleCount(); n != 1 {
		t.Errorf("style blocks = %d, want 1", n)
	}
	if n := doc.RootsCreated(); n != 1 {
		t.Errorf("roots created = %d, want reuse of one root", n)
	}
}

func TestRenderer_NoStyleWhenStylesheetAbsent(t *testing.T) {
	r, doc := newTestRenderer(t)

	out := r.Render(context.Background(), Payload{Component: buttonSrc})
	if out.Err != nil {
		t.Fatalf("Render: %v", out.Err)
	}
	if n := doc.StyleCount(); n != 0 {
		t.Errorf("style blocks = %d, want 0", n)
	}
}

func TestRenderer_MarkupFallback(t *testing.T) {
	r, doc := newTestRenderer(t)

	out := r.Render(context.Background(), Payload{Markup: "<p>static preview</p>"})
	if out.Err != nil || !out.Mounted {
		t.Fatalf("outcome = %+v, want mounted fallback", out)
	}
	if page := doc.HTML(); !strings.Contains(page, "<p>static preview</p>") {
		t.Errorf("document missing markup:\n%s", page)
	}
}

func TestRenderer_MarkupIgnoredWhenComponentPresent(t *testing.T) {
	r, doc := newTestRenderer(t)

	r.Render(context.Background(), Payload{
		Component: buttonSrc,
		Markup:    "<p>should not appear</p>",
	})
	if page := doc.HTML(); strings.Contains(page, "should not appear") {
		t.Errorf("markup composed with component:\n%s", page)
	}
}

func TestRenderer_UnmountOnEmptyInput(t *testing.T) {
	r, doc := newTestRenderer(t)

	r.Render(context.Background(), Payload{Component: buttonSrc, Stylesheet: ".a{}"})
	out := r.Render(context.Background(), Payload{})

	if out.Mounted || out.Err != nil {
		t.Errorf("outcome = %+v, want clean unmount", out)
	}
	if page := doc.HTML(); strings.Contains(page, "button") || strings.Contains(page, "<style") {
		t.Errorf("document not cleared:\n%s", page)
	}
}

func TestRenderer_ErrorDisplacesMount(t *testing.T) {
	r, doc := newTestRenderer(t)

	r.Render(context.Background(), Payload{Component: buttonSrc, Stylesheet: ".a{}"})
	out := r.Render(context.Background(), Payload{Component: "func Boom() ui.Node {\n\tpanic(\"kaput\")\n}"})

	if out.Err == nil {
		t.Fatal("expected render failure")
	}
	page := doc.HTML()
	if strings.Contains(page, "Click") {
		t.Errorf("previous mount survived a failure:\n%s", page)
	}
	if !strings.Contains(page, "render-error") {
		t.Errorf("failure not displayed in place:\n%s", page)
	}
	if n := doc.StyleCount(); n != 0 {
		t.Errorf("style blocks = %d, want 0 after failure", n)
	}
}

func TestRenderer_RecoversAfterFailure(t *testing.T) {
	r, doc := newTestRenderer(t)

	r.Render(context.Background(), Payload{Component: "func Boom() ui.Node {\n\tpanic(\"kaput\")\n}"})
	out := r.Render(context.Background(), Payload{Component: buttonSrc})

	if out.Err != nil {
		t.Fatalf("Render after failure: %v", out.Err)
	}
	page := doc.HTML()
	if strings.Contains(page, "render-error") {
		t.Errorf("error display survived a successful render:\n%s", page)
	}
	if !strings.Contains(page, "Click") {
		t.Errorf("component not mounted:\n%s", page)
	}
}

func TestRenderer_StateResetOnSourceChange(t *testing.T) {
	r, doc := newTestRenderer(t)
	counter := `
func Counter() ui.Node {
	v, set := ui.UseState(0)
	n := v.(int)
	ui.UseEffect(func() {
		set(n + 1)
	}, n)
	return ui.E("span", nil, n)
}
`

	r.Render(context.Background(), Payload{Component: counter})
	r.Render(context.Background(), Payload{Component: counter})
	if page := doc.HTML(); !strings.Contains(page, "<span>1</span>") {
		t.Errorf("state lost across identical re-renders:\n%s", page)
	}

	changed := strings.Replace(counter, `"span", nil`, `"span", ui.Attrs{"class": "n"}`, 1)
	r.Render(context.Background(), Payload{Component: changed})
	if page := doc.HTML(); !strings.Contains(page, ">0</span>") {
		t.Errorf("state survived a source change:\n%s", page)
	}
}

func TestRenderer_SanitizesBeforeExecution(t *testing.T) {
	r, doc := newTestRenderer(t)
	src := "package widgets\n\nimport (\n\t\"fmt\"\n)\n" + buttonSrc

	out := r.Render(context.Background(), Payload{Component: src})
	if out.Err != nil {
		t.Fatalf("Render: %v", out.Err)
	}
	if page := doc.HTML(); !strings.Contains(page, "Click") {
		t.Errorf("component not mounted:\n%s", page)
	}
}

func TestRenderer_TemplateDialect(t *testing.T) {
	r, doc := newTestRenderer(t)
	src := `
func Greeting() ui.Node {
	return <div class="greeting"><h1>Hello</h1></div>
}
`
	out := r.Render(context.Background(), Payload{Component: src})
	if out.Err != nil {
		t.Fatalf("Render: %v", out.Err)
	}

	node := findNode(t, doc.HTML(), "div", "class", "greeting")
	if node == nil {
		t.Fatalf("no greeting div in document:\n%s", doc.HTML())
	}
	if h1 := firstChildElement(node); h1 == nil || h1.Data != "h1" {
		t.Errorf("greeting div missing h1 child:\n%s", doc.HTML())
	}
}

func TestPayloadFromSet(t *testing.T) {
	set := artifact.EmptySet()
	set.Component = "func Btn() ui.Node { return ui.Text(\"x\") }"

	p := PayloadFromSet(set)
	if p.Component != set.Component {
		t.Errorf("component = %q", p.Component)
	}
	if p.Stylesheet != "" || p.Markup != "" {
		t.Errorf("sentinels not normalized to absent: %+v", p)
	}
}

// findNode parses fragment and returns the first element with the given
// tag carrying attr=val.
func findNode(t *testing.T, fragment, tag, attr, val string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		t.Fatalf("parsing document HTML: %v", err)
	}

	var walk func(*html.Node) *html.Node
	walk = func(n *html.Node) *html.Node {
		if n.Type == html.ElementNode && n.Data == tag {
			for _, a := range n.Attr {
				if a.Key == attr && a.Val == val {
					return n
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if found := walk(c); found != nil {
				return found
			}
		}
		return nil
	}
	return walk(doc)
}

func firstChildElement(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}
