package render

import (
	"reflect"

	"github.com/traefik/yaegi/interp"

	"github.com/koopa0/atelier/internal/render/ui"
)

// kitSymbols builds the symbol table injected into the interpreter.
// The sandbox sees exactly these names under the "atelier/ui" import
// path and nothing else; every capability a component has is a value
// placed here by the host. Hook functions close over the runtime so
// state survives across re-renders of the same component.
func kitSymbols(rt *ui.Runtime) interp.Exports {
	return interp.Exports{
		"atelier/ui/ui": {
			"Node":  reflect.ValueOf((*ui.Node)(nil)),
			"Attrs": reflect.ValueOf((*ui.Attrs)(nil)),
			"Ref":   reflect.ValueOf((*ui.Ref)(nil)),

			"E":    reflect.ValueOf(ui.E),
			"Text": reflect.ValueOf(ui.Text),

			"UseState":  reflect.ValueOf(rt.UseState),
			"UseEffect": reflect.ValueOf(rt.UseEffect),
			"UseRef":    reflect.ValueOf(rt.UseRef),
		},
	}
}
