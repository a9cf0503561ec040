package render

import "regexp"

// FallbackEntry is mounted when no declaration matches any rule.
const FallbackEntry = "Component"

// entryRule names one heuristic for finding "the component" among the
// top-level declarations.
type entryRule struct {
	name string
	re   *regexp.Regexp // first submatch is the symbol name
}

// entryRules is a prioritized table: earlier rules win over later ones
// regardless of position in the source. Within a rule, the first match
// in source order wins.
var entryRules = []entryRule{
	{
		name: "function declaration",
		re:   regexp.MustCompile(`(?m)^[ \t]*func\s+([A-Z][A-Za-z0-9_]*)\s*\(`),
	},
	{
		name: "component type declaration",
		re:   regexp.MustCompile(`(?m)^[ \t]*type\s+([A-Z][A-Za-z0-9_]*)\s+struct\b`),
	},
	{
		name: "bound function expression",
		re:   regexp.MustCompile(`(?m)^[ \t]*(?:var\s+)?([A-Z][A-Za-z0-9_]*)\s*:?=\s*func\b`),
	},
}

// ResolveEntry determines which top-level declaration is the component
// to mount. It returns the symbol name and the name of the rule that
// matched ("fallback" when none did).
func ResolveEntry(src string) (symbol, rule string) {
	for _, r := range entryRules {
		if m := r.re.FindStringSubmatch(src); m != nil {
			return m[1], r.name
		}
	}
	return FallbackEntry, "fallback"
}
