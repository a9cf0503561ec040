// Package render executes a generated component artifact inside an
// isolated interpreter and mounts the result into a host document.
//
// The pipeline is sanitize → resolve entry symbol → transpile →
// execute → mount. Every failure along the way is converted into a
// structured error and displayed in place of the mounted output; the
// renderer never lets generated code crash the host.
package render

// TranspileError reports that the component source could not be
// converted into an executable form. Message carries the compiler's
// text verbatim.
type TranspileError struct {
	Message string
}

func (e *TranspileError) Error() string { return "transpile: " + e.Message }

// RenderError is any failure between entry resolution and mounting.
// Trace carries the stack or interpreter detail for display; it is
// never persisted.
type RenderError struct {
	Message string
	Trace   string
}

func (e *RenderError) Error() string { return "render: " + e.Message }
