package render

import "regexp"

// rewrite is one fixed textual rule applied before transpilation.
type rewrite struct {
	name string
	re   *regexp.Regexp
	repl string
}

// sanitizeRules strips constructs that cannot work inside the sandbox:
// module-system declarations (package/import), the navigation hook and
// its invocations, and stylesheet imports. This is deliberately text
// surgery, not parsing: it trades precision for never rejecting input,
// and the interpreter catches whatever slips through.
var sanitizeRules = []rewrite{
	{
		name: "import block",
		re:   regexp.MustCompile(`(?ms)^[ \t]*import\s*\([^)]*\)[ \t]*$`),
	},
	{
		name: "import line",
		re:   regexp.MustCompile(`(?m)^[ \t]*import\s+(?:\w+\s+)?"[^"]*"[ \t]*$`),
	},
	{
		name: "package clause",
		re:   regexp.MustCompile(`(?m)^[ \t]*package\s+\w+[ \t]*$`),
	},
	{
		name: "router hook line",
		re:   regexp.MustCompile(`(?m)^.*\bui\.UseRouter\(\).*$`),
	},
	{
		name: "navigation invocation",
		re:   regexp.MustCompile(`\brouter\.Navigate\([^)]*\)`),
	},
	{
		name: "stylesheet import",
		re:   regexp.MustCompile(`(?m)^[ \t]*ui\.ImportStylesheet\([^)]*\)[ \t]*$`),
	},
}

// Sanitize applies the fixed rewrite set to component source.
func Sanitize(src string) string {
	for _, r := range sanitizeRules {
		src = r.re.ReplaceAllString(src, r.repl)
	}
	return src
}
