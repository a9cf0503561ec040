package ui

import (
	"strings"
	"testing"
)

func TestUseState_PersistsAcrossPasses(t *testing.T) {
	rt := NewRuntime()

	rt.Begin()
	v, set := rt.UseState(0)
	rt.Finish()
	if v != 0 {
		t.Fatalf("initial value = %v, want 0", v)
	}

	set(7)

	rt.Begin()
	v, _ = rt.UseState(0)
	rt.Finish()
	if v != 7 {
		t.Fatalf("value after set = %v, want 7", v)
	}
}

func TestUseState_SetterDoesNotAffectCurrentPass(t *testing.T) {
	rt := NewRuntime()

	rt.Begin()
	v, set := rt.UseState("a")
	set("b")
	again, _ := func() (any, func(any)) {
		// A second hook in the same pass occupies the next slot.
		return rt.UseState("other")
	}()
	rt.Finish()

	if v != "a" {
		t.Fatalf("value = %v, want a", v)
	}
	if again != "other" {
		t.Fatalf("second slot = %v, want other", again)
	}

	rt.Begin()
	v, _ = rt.UseState("a")
	rt.Finish()
	if v != "b" {
		t.Fatalf("next pass value = %v, want b", v)
	}
}

func TestUseEffect_RunsOnceWithoutDeps(t *testing.T) {
	rt := NewRuntime()
	runs := 0

	for i := 0; i < 3; i++ {
		rt.Begin()
		rt.UseEffect(func() { runs++ })
		rt.Finish()
	}
	if runs != 1 {
		t.Fatalf("effect ran %d times, want 1", runs)
	}
}

func TestUseEffect_RerunsWhenDepsChange(t *testing.T) {
	rt := NewRuntime()
	runs := 0

	for _, dep := range []int{1, 1, 2, 2, 3} {
		rt.Begin()
		rt.UseEffect(func() { runs++ }, dep)
		rt.Finish()
	}
	if runs != 3 {
		t.Fatalf("effect ran %d times, want 3", runs)
	}
}

func TestUseEffect_RunsAfterPassNotDuring(t *testing.T) {
	rt := NewRuntime()
	ran := false

	rt.Begin()
	rt.UseEffect(func() { ran = true })
	if ran {
		t.Fatal("effect ran during the pass")
	}
	rt.Finish()
	if !ran {
		t.Fatal("effect did not run at Finish")
	}
}

func TestUseRef_StableAcrossPasses(t *testing.T) {
	rt := NewRuntime()

	rt.Begin()
	ref := rt.UseRef(1)
	rt.Finish()
	ref.Current = 42

	rt.Begin()
	again := rt.UseRef(1)
	rt.Finish()
	if again != ref {
		t.Fatal("UseRef returned a different ref on the next pass")
	}
	if again.Current != 42 {
		t.Fatalf("ref value = %v, want 42", again.Current)
	}
}

func TestReset_DropsState(t *testing.T) {
	rt := NewRuntime()

	rt.Begin()
	_, set := rt.UseState(0)
	rt.Finish()
	set(9)

	rt.Reset()

	rt.Begin()
	v, _ := rt.UseState(0)
	rt.Finish()
	if v != 0 {
		t.Fatalf("value after reset = %v, want initial 0", v)
	}
}

func TestNodeHTML_EscapesTextAndAttrs(t *testing.T) {
	n := E("div", Attrs{"title": `a"b`}, Text("<script>"))
	got := n.HTML()
	if strings.Contains(got, "<script>") {
		t.Fatalf("text not escaped: %s", got)
	}
	if !strings.Contains(got, "&lt;script&gt;") {
		t.Fatalf("missing escaped text: %s", got)
	}
	if !strings.Contains(got, `title="a&#34;b"`) {
		t.Fatalf("attr not escaped: %s", got)
	}
}

func TestNodeHTML_DeterministicAttrOrder(t *testing.T) {
	n := E("input", Attrs{"type": "text", "name": "q", "id": "search"})
	want := `<input id="search" name="q" type="text"/>`
	if got := n.HTML(); got != want {
		t.Fatalf("HTML() = %s, want %s", got, want)
	}
}

func TestE_FlattensChildren(t *testing.T) {
	items := []Node{Text("a"), Text("b")}
	n := E("ul", nil, items, "c", 4, nil)
	if len(n.Children) != 4 {
		t.Fatalf("children = %d, want 4", len(n.Children))
	}
	if got := n.HTML(); got != "<ul>abc4</ul>" {
		t.Fatalf("HTML() = %s", got)
	}
}
