package render

import "testing"

func TestResolveEntry(t *testing.T) {
	tests := []struct {
		name       string
		src        string
		wantSymbol string
		wantRule   string
	}{
		{
			name:       "function declaration",
			src:        "func Btn() ui.Node { return ui.Text(\"x\") }",
			wantSymbol: "Btn",
			wantRule:   "function declaration",
		},
		{
			name:       "component type declaration",
			src:        "type Card struct{}\n\nfunc (c Card) Render() ui.Node { return ui.Text(\"x\") }",
			wantSymbol: "Card",
			wantRule:   "component type declaration",
		},
		{
			name:       "var bound function",
			src:        "var Badge = func() ui.Node { return ui.Text(\"x\") }",
			wantSymbol: "Badge",
			wantRule:   "bound function expression",
		},
		{
			name:       "short bound function",
			src:        "Badge := func() ui.Node { return ui.Text(\"x\") }",
			wantSymbol: "Badge",
			wantRule:   "bound function expression",
		},
		{
			name:       "function beats type regardless of order",
			src:        "type Card struct{}\n\nfunc Btn() ui.Node { return ui.Text(\"x\") }",
			wantSymbol: "Btn",
			wantRule:   "function declaration",
		},
		{
			name:       "first declaration wins within a rule",
			src:        "func First() ui.Node { return ui.Text(\"a\") }\nfunc Second() ui.Node { return ui.Text(\"b\") }",
			wantSymbol: "First",
			wantRule:   "function declaration",
		},
		{
			name:       "unexported functions skipped",
			src:        "func helper() string { return \"x\" }",
			wantSymbol: FallbackEntry,
			wantRule:   "fallback",
		},
		{
			name:       "method receiver is not a declaration",
			src:        "func (c card) Render() ui.Node { return ui.Text(\"x\") }",
			wantSymbol: FallbackEntry,
			wantRule:   "fallback",
		},
		{
			name:       "empty source falls back",
			src:        "",
			wantSymbol: FallbackEntry,
			wantRule:   "fallback",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			symbol, rule := ResolveEntry(tt.src)
			if symbol != tt.wantSymbol {
				t.Errorf("symbol = %q, want %q", symbol, tt.wantSymbol)
			}
			if rule != tt.wantRule {
				t.Errorf("rule = %q, want %q", rule, tt.wantRule)
			}
		})
	}
}
