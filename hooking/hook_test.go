package hooking

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"
)

var _ = Describe("HookableBase", func() {
	var (
		mockCtrl *gomock.Controller
		hookable *HookableBase
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		hookable = NewHookableBase()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should invoke hooks in registration order", func() {
		pos := &HookPos{Name: "Test"}
		ctx := HookCtx{Domain: hookable, Pos: pos, Item: 42}

		hook1 := NewMockHook(mockCtrl)
		hook2 := NewMockHook(mockCtrl)
		call1 := hook1.EXPECT().Func(ctx)
		hook2.EXPECT().Func(ctx).After(call1)

		hookable.AcceptHook(hook1)
		hookable.AcceptHook(hook2)
		hookable.InvokeHook(ctx)

		Expect(hookable.NumHooks()).To(Equal(2))
		Expect(hookable.Hooks()).To(HaveLen(2))
	})

	It("should reject a duplicated hook", func() {
		hook := NewMockHook(mockCtrl)
		hookable.AcceptHook(hook)

		Expect(func() { hookable.AcceptHook(hook) }).To(Panic())
	})

	It("should adapt plain functions", func() {
		var items []any
		hookable.AcceptHook(HookFunc(func(ctx HookCtx) {
			items = append(items, ctx.Item)
		}))

		hookable.InvokeHook(HookCtx{Item: "a"})
		hookable.InvokeHook(HookCtx{Item: "b"})

		Expect(items).To(Equal([]any{"a", "b"}))
	})
})
