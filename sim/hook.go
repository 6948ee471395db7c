package sim

// HookPos names a site where hooks are invoked.
type HookPos struct {
	Name string
}

// HookCtx carries what a hook needs to know about the site that invokes it.
type HookCtx struct {
	// Domain is the object that invokes the hook.
	Domain Hookable

	// Pos is the site in the domain.
	Pos *HookPos

	// Item is the record of what happened, e.g., a fault.
	Item any
}

// Hookable is an object that reports what happens inside it to hooks.
type Hookable interface {
	// AcceptHook registers a hook.
	AcceptHook(hook Hook)

	// NumHooks returns the number of hooks registered.
	NumHooks() int
}

// Hook is invoked by a hookable object.
type Hook interface {
	Func(ctx HookCtx)
}

// HookFunc turns an ordinary function into a Hook.
type HookFunc func(ctx HookCtx)

// Func calls f.
func (f HookFunc) Func(ctx HookCtx) {
	f(ctx)
}

// HookableBase implements Hookable. It is meant to be embedded. The zero value
// has no hooks.
type HookableBase struct {
	hooks []Hook
}

// AcceptHook registers a hook. Hooks are invoked in registration order.
func (h *HookableBase) AcceptHook(hook Hook) {
	h.hooks = append(h.hooks, hook)
}

// NumHooks returns the number of hooks registered.
func (h *HookableBase) NumHooks() int {
	return len(h.hooks)
}

// InvokeHook passes the context to all the hooks.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hooks {
		hook.Func(ctx)
	}
}
