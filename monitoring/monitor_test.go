package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/nsim/hooking"
	"github.com/sarchlab/nsim/kernel"
	"github.com/sarchlab/nsim/model"
)

var _ = Describe("Monitor", func() {
	var (
		k       *kernel.Kernel
		m       *Monitor
		handler http.Handler
	)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	BeforeEach(func() {
		var err error
		k, err = kernel.NewKernel()
		Expect(err).NotTo(HaveOccurred())

		_, err = k.Create("iaf_psc_alpha", 2, model.Params{"I_e": 500.0})
		Expect(err).NotTo(HaveOccurred())

		m = NewMonitor()
		m.profileFor = 10 * time.Millisecond
		m.RegisterKernel(k)
		handler = m.Handler()
	})

	It("should report the clock", func() {
		Expect(k.Advance(1.0)).To(Succeed())

		rec := get("/api/now")

		Expect(rec.Code).To(Equal(http.StatusOK))
		var rsp nowRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp).To(Equal(nowRsp{Step: 10, Start: 0, End: 10}))
	})

	It("should list nodes and kernel status", func() {
		rec := get("/api/nodes")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var nodes []kernel.NodeInfo
		Expect(json.Unmarshal(rec.Body.Bytes(), &nodes)).To(Succeed())
		Expect(nodes).To(HaveLen(2))
		Expect(nodes[1].Model).To(Equal("iaf_psc_alpha"))

		rec = get("/api/status")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var status kernel.Status
		Expect(json.Unmarshal(rec.Body.Bytes(), &status)).To(Succeed())
		Expect(status.NumNodes).To(Equal(2))
		Expect(status.Resolution).To(Equal(0.1))
	})

	It("should serialize node details", func() {
		rec := get("/api/node/1")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("I_e"))

		Expect(get("/api/node/9").Code).To(Equal(http.StatusNotFound))
	})

	It("should track the progress of a run", func() {
		var seen []ProgressView
		k.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			if ctx.Pos != kernel.HookPosStep {
				return
			}

			rec := get("/api/progress")
			var bars []ProgressView
			Expect(json.Unmarshal(rec.Body.Bytes(), &bars)).To(Succeed())
			seen = append(seen, bars...)

			Expect(get("/api/status").Code).
				To(Equal(http.StatusServiceUnavailable))
		}))

		Expect(k.Advance(0.5)).To(Succeed())

		Expect(seen).To(HaveLen(5))
		Expect(seen[0].Total).To(Equal(uint64(5)))
		Expect(seen[4].Finished).To(Equal(uint64(5)))
		Expect(get("/api/progress").Body.String()).To(Equal("[]"))
	})

	It("should report resources and a profile", func() {
		rec := get("/api/resource")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var rsp resourceRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))

		rec = get("/api/profile")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var entries []profileEntry
		Expect(json.Unmarshal(rec.Body.Bytes(), &entries)).To(Succeed())
	})
})
