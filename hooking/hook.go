// Package hooking lets observers attach to fixed points of a simulation run
// without changing the kernel.
package hooking

// A HookPos names one point in the run at which hooks fire. Positions are
// compared by pointer, so each is declared once as a package variable.
type HookPos struct {
	Name string
}

// HookCtx is passed to every hook call.
type HookCtx struct {
	// Domain is the object whose hooks are firing.
	Domain Hookable

	// Pos is the point in the run that fired.
	Pos *HookPos

	// Item is what the position is about: a step, a spike event or a run
	// request.
	Item any

	// Detail is extra data for the position. It may be nil.
	Detail any
}

// Hookable is implemented by anything that hooks can be attached to.
type Hookable interface {
	// AcceptHook attaches a hook. Call it only between runs. There is no
	// detach; a hook that should go quiet has to check a flag of its own.
	AcceptHook(hook Hook)

	// NumHooks counts the attached hooks.
	NumHooks() int

	// Hooks lists the attached hooks in attach order.
	Hooks() []Hook

	// InvokeHook calls every attached hook with ctx.
	InvokeHook(ctx HookCtx)
}

// A Hook observes a Hookable.
type Hook interface {
	// Func runs on the calling goroutine and must not block the run.
	Func(ctx HookCtx)
}

// HookFunc turns a function into a Hook.
type HookFunc func(ctx HookCtx)

// Func calls f.
func (f HookFunc) Func(ctx HookCtx) {
	f(ctx)
}

// HookableBase keeps a hook list. Embed it to implement Hookable.
type HookableBase struct {
	hookList []Hook
}

// NewHookableBase returns a HookableBase with no hooks.
func NewHookableBase() *HookableBase {
	h := new(HookableBase)
	h.hookList = make([]Hook, 0)

	return h
}

// NumHooks counts the attached hooks.
func (h *HookableBase) NumHooks() int {
	return len(h.hookList)
}

// Hooks lists the attached hooks in attach order.
func (h *HookableBase) Hooks() []Hook {
	return h.hookList
}

// AcceptHook appends hook to the list. Attaching the same hook value twice
// panics. HookFunc values are not comparable and are always appended.
func (h *HookableBase) AcceptHook(hook Hook) {
	h.mustNotHaveDuplicatedHook(hook)
	h.hookList = append(h.hookList, hook)
}

func (h *HookableBase) mustNotHaveDuplicatedHook(hook Hook) {
	if _, isFunc := hook.(HookFunc); isFunc {
		return
	}

	for _, registered := range h.hookList {
		if registered == hook {
			panic("duplicated hook")
		}
	}
}

// InvokeHook calls the hooks in attach order.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hookList {
		hook.Func(ctx)
	}
}

var _ Hookable = (*HookableBase)(nil)
