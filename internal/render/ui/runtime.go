package ui

import (
	"reflect"
	"sync"
)

// Ref is a mutable box that survives re-renders of the same mount.
type Ref struct {
	Current any
}

// Runtime owns the hook state for one mount. Hooks are keyed by call
// order within a render pass, so a component must call them
// unconditionally, the same contract the web dialect has.
//
// The runtime is handed to the component only through the bound
// UseState/UseEffect/UseRef functions injected into the sandbox.
type Runtime struct {
	mu      sync.Mutex
	slots   []any
	cursor  int
	pending []func() // effects queued during the current pass
}

// NewRuntime creates an empty hook store.
func NewRuntime() *Runtime { return &Runtime{} }

// Begin starts a render pass: the hook cursor rewinds, pending effects
// are dropped. State slots persist so refinements of the same component
// keep their values.
func (rt *Runtime) Begin() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.cursor = 0
	rt.pending = nil
}

// Finish ends a render pass and runs the effects queued during it.
// Effect panics are the caller's to contain.
func (rt *Runtime) Finish() {
	rt.mu.Lock()
	effects := rt.pending
	rt.pending = nil
	rt.mu.Unlock()
	for _, fn := range effects {
		fn()
	}
}

// Reset drops all hook state. Called when the component source changes,
// since slot order is only meaningful for the code that created it.
func (rt *Runtime) Reset() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.slots = nil
	rt.cursor = 0
	rt.pending = nil
}

type stateSlot struct {
	value any
}

type effectSlot struct {
	deps []any
	ran  bool
}

// next returns the slot at the cursor, creating it with make when the
// pass reaches a hook for the first time.
func (rt *Runtime) next(make func() any) any {
	if rt.cursor == len(rt.slots) {
		rt.slots = append(rt.slots, make())
	}
	slot := rt.slots[rt.cursor]
	rt.cursor++
	return slot
}

// UseState returns the current value of this hook slot and a setter.
// The setter records the new value for the next render pass; it does
// not re-render by itself.
func (rt *Runtime) UseState(initial any) (any, func(any)) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	slot, ok := rt.next(func() any { return &stateSlot{value: initial} }).(*stateSlot)
	if !ok {
		// Hook order changed under us; recover by restarting the slot.
		slot = &stateSlot{value: initial}
		rt.slots[rt.cursor-1] = slot
	}

	set := func(v any) {
		rt.mu.Lock()
		defer rt.mu.Unlock()
		slot.value = v
	}
	return slot.value, set
}

// UseEffect queues fn to run after the render pass when it has not run
// yet or when deps differ from the previous pass.
func (rt *Runtime) UseEffect(fn func(), deps ...any) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	slot, ok := rt.next(func() any { return &effectSlot{} }).(*effectSlot)
	if !ok {
		slot = &effectSlot{}
		rt.slots[rt.cursor-1] = slot
	}

	if slot.ran && reflect.DeepEqual(slot.deps, deps) {
		return
	}
	slot.deps = deps
	slot.ran = true
	rt.pending = append(rt.pending, fn)
}

// UseRef returns a stable Ref for this hook slot, initialized once.
func (rt *Runtime) UseRef(initial any) *Ref {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	slot, ok := rt.next(func() any { return &Ref{Current: initial} }).(*Ref)
	if !ok {
		slot = &Ref{Current: initial}
		rt.slots[rt.cursor-1] = slot
	}
	return slot
}
