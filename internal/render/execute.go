package render

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/traefik/yaegi/interp"

	"github.com/koopa0/atelier/internal/render/ui"
)

// Execute runs component source in a fresh interpreter and returns the
// rendered tree. The interpreter starts empty and receives only the kit
// symbols, so the component can reach nothing on the host beyond what
// kitSymbols grants it. Source that fails to evaluate comes back as a
// *TranspileError; entry resolution failures, panics, and context
// expiry come back as *RenderError.
func Execute(ctx context.Context, src, entry string, rt *ui.Runtime) (ui.Node, error) {
	type result struct {
		node ui.Node
		err  error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: &RenderError{
					Message: fmt.Sprintf("component panicked: %v", r),
					Trace:   string(debug.Stack()),
				}}
			}
		}()

		i := interp.New(interp.Options{})
		if err := i.Use(kitSymbols(rt)); err != nil {
			done <- result{err: &RenderError{Message: "binding kit symbols: " + err.Error()}}
			return
		}
		if _, err := i.Eval(`import ui "atelier/ui"`); err != nil {
			done <- result{err: &RenderError{Message: "importing kit: " + err.Error()}}
			return
		}

		if _, err := i.Eval(src); err != nil {
			done <- result{err: &TranspileError{Message: err.Error()}}
			return
		}

		rt.Begin()
		node, err := callEntry(i, entry)
		if err != nil {
			done <- result{err: err}
			return
		}
		rt.Finish()
		done <- result{node: node}
	}()

	select {
	case <-ctx.Done():
		return ui.Node{}, &RenderError{Message: "render timed out: " + ctx.Err().Error()}
	case res := <-done:
		return res.node, res.err
	}
}

// callEntry invokes the resolved entry symbol inside the interpreter.
// The entry is either a function returning a node or a component struct
// with a Render method; both calls produce a host ui.Node because the
// kit types are bound, not interpreted.
func callEntry(i *interp.Interpreter, entry string) (ui.Node, error) {
	v, callErr := i.Eval(entry + "()")
	if callErr == nil {
		if node, ok := v.Interface().(ui.Node); ok {
			return node, nil
		}
		callErr = fmt.Errorf("%s() does not return a node", entry)
	}

	v, err := i.Eval(entry + "{}.Render()")
	if err == nil {
		if node, ok := v.Interface().(ui.Node); ok {
			return node, nil
		}
		err = fmt.Errorf("%s.Render() does not return a node", entry)
	}

	return ui.Node{}, &RenderError{
		Message: fmt.Sprintf("calling entry %s: %s", entry, callErr.Error()),
		Trace:   err.Error(),
	}
}
