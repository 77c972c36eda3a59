package kernel

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"

	"github.com/sarchlab/nsim/hooking"
	"github.com/sarchlab/nsim/model"
	"github.com/sarchlab/nsim/simerr"
	"github.com/sarchlab/nsim/timing"
)

var _ = Describe("Kernel", func() {
	var (
		mockCtrl *gomock.Controller
		k        *Kernel
	)

	create := func(name string, n int, p model.Params) []model.ID {
		ids, err := k.Create(name, n, p)
		Expect(err).NotTo(HaveOccurred())
		return ids
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())

		var err error
		k, err = NewKernel()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Context("when configuring time", func() {
		It("should only change the resolution of an empty kernel", func() {
			Expect(k.SetResolution(0.2)).To(Succeed())
			create("iaf_psc_alpha", 1, nil)

			Expect(k.SetResolution(0.1)).To(MatchError(simerr.ErrConfiguration))

			res, err := k.Resolution()
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(Equal(0.2))
		})

		It("should reject durations that are not whole steps", func() {
			create("iaf_psc_alpha", 1, nil)

			err := k.Advance(0.35)

			Expect(err).To(MatchError(simerr.ErrInvalidDuration))
			Expect(k.Now()).To(Equal(timing.Step(0)))

			Expect(k.Advance(-1)).To(MatchError(simerr.ErrInvalidDuration))
			Expect(k.Advance(0.3)).To(Succeed())
			Expect(k.Now()).To(Equal(timing.Step(3)))
		})

		It("should reject misaligned spike times without creating nodes", func() {
			_, err := k.Create("spike_generator", 2,
				model.Params{"spike_times": []float64{0.1, 0.35}})

			Expect(err).To(MatchError(simerr.ErrMisalignedSpikeTime))

			nodes, err := k.Nodes()
			Expect(err).NotTo(HaveOccurred())
			Expect(nodes).To(BeEmpty())

			ids := create("spike_generator", 1, nil)
			Expect(ids).To(Equal([]model.ID{1}))
		})

		It("should reject spike times finer than a tic as misaligned", func() {
			_, err := k.Create("spike_generator", 1,
				model.Params{"spike_times": []float64{0.12345}})

			Expect(err).To(MatchError(simerr.ErrMisalignedSpikeTime))
			Expect(err).To(MatchError(simerr.ErrConfiguration))
		})

		It("should reset to an empty kernel", func() {
			Expect(k.SetResolution(0.5)).To(Succeed())
			create("iaf_psc_alpha", 3, nil)
			Expect(k.Advance(1.0)).To(Succeed())

			Expect(k.Reset()).To(Succeed())

			status, err := k.Status()
			Expect(err).NotTo(HaveOccurred())
			Expect(status.NumNodes).To(Equal(0))
			Expect(status.Step).To(Equal(uint64(0)))
			Expect(status.Resolution).To(Equal(0.1))
			Expect(k.Now()).To(Equal(timing.Step(0)))
			Expect(create("voltmeter", 1, nil)).To(Equal([]model.ID{1}))
		})
	})

	Context("when connecting", func() {
		var neurons, recorder, voltmeter, generator []model.ID

		BeforeEach(func() {
			neurons = create("iaf_psc_alpha", 3, nil)
			recorder = create("spike_recorder", 1, nil)
			voltmeter = create("voltmeter", 1, nil)
			generator = create("spike_generator", 1, nil)
		})

		It("should connect all to all by default", func() {
			spec := NewConnSpec().WithWeight(2).WithDelay(1.5)
			Expect(k.Connect(neurons, neurons, spec)).To(Succeed())

			conns, err := k.GetConnections(nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(conns).To(HaveLen(9))
			Expect(conns[0]).To(Equal(Connection{
				Source: 1, Target: 1, Delay: 1.5, Weight: 2,
			}))
		})

		It("should connect one to one", func() {
			spec := NewConnSpec().WithRule(OneToOne)
			Expect(k.Connect(neurons, neurons, spec)).To(Succeed())

			conns, err := k.GetConnections(nil, neurons[1:2])
			Expect(err).NotTo(HaveOccurred())
			Expect(conns).To(Equal([]Connection{
				{Source: 2, Target: 2, Delay: 0.1, Weight: 1},
			}))

			Expect(k.Connect(neurons, recorder, spec)).
				To(MatchError(simerr.ErrConfiguration))
		})

		It("should list observations of samplers", func() {
			Expect(k.Connect(voltmeter, neurons, NewConnSpec())).To(Succeed())

			conns, err := k.GetConnections(voltmeter, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(conns).To(HaveLen(3))
			Expect(conns[2].Target).To(Equal(neurons[2]))

			Expect(k.Connect(voltmeter, neurons[:1], NewConnSpec())).
				To(MatchError(simerr.ErrConfiguration))
		})

		DescribeTable("should reject invalid connections",
			func(sources, targets func() []model.ID, spec func() ConnSpec) {
				err := k.Connect(sources(), targets(), spec())

				Expect(err).To(MatchError(simerr.ErrConfiguration))

				conns, err := k.GetConnections(nil, nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(conns).To(BeEmpty())
			},
			Entry("recorder as source",
				func() []model.ID { return recorder },
				func() []model.ID { return neurons },
				NewConnSpec),
			Entry("generator as target",
				func() []model.ID { return neurons },
				func() []model.ID { return generator },
				NewConnSpec),
			Entry("sampler observing a recorder",
				func() []model.ID { return voltmeter },
				func() []model.ID { return recorder },
				NewConnSpec),
			Entry("delay off the grid",
				func() []model.ID { return generator },
				func() []model.ID { return neurons },
				func() ConnSpec { return NewConnSpec().WithDelay(0.15) }),
			Entry("negative delay",
				func() []model.ID { return generator },
				func() []model.ID { return neurons },
				func() ConnSpec { return NewConnSpec().WithDelay(-0.1) }),
			Entry("unknown rule",
				func() []model.ID { return generator },
				func() []model.ID { return neurons },
				func() ConnSpec { return NewConnSpec().WithRule("random") }),
		)

		It("should fail on unknown nodes", func() {
			err := k.Connect([]model.ID{42}, neurons, NewConnSpec())

			Expect(err).To(MatchError(simerr.ErrUnknownNode))
		})
	})

	Context("when reading out", func() {
		var neuron, recorder, voltmeter []model.ID

		BeforeEach(func() {
			neuron = create("iaf_psc_alpha", 1, model.Params{"I_e": 1000.0})
			recorder = create("spike_recorder", 1, nil)
			voltmeter = create("voltmeter", 1, model.Params{"interval": 1.0})

			Expect(k.Connect(neuron, recorder, NewConnSpec())).To(Succeed())
			Expect(k.Connect(voltmeter, neuron, NewConnSpec())).To(Succeed())
			Expect(k.Advance(20)).To(Succeed())
		})

		It("should return the same events when read twice", func() {
			first, err := k.GetEvents(append(recorder, voltmeter...), "times")
			Expect(err).NotTo(HaveOccurred())

			second, err := k.GetEvents(append(recorder, voltmeter...), "times")
			Expect(err).NotTo(HaveOccurred())

			Expect(second).To(Equal(first))
			Expect(first[0]).To(Equal([]float64{4.8, 11.6, 18.4}))
			Expect(first[1]).To(HaveLen(20))
			Expect(first[1][0]).To(Equal(1.0))
		})

		It("should report delivery times and senders", func() {
			delivered, err := k.GetEvents(recorder, "delivery_times")
			Expect(err).NotTo(HaveOccurred())
			Expect(delivered[0]).To(Equal([]float64{4.8, 11.6, 18.4}))

			senders, err := k.GetEvents(recorder, "senders")
			Expect(err).NotTo(HaveOccurred())
			Expect(senders[0]).To(Equal([]float64{1, 1, 1}))
		})

		It("should fail on fields a node does not record", func() {
			_, err := k.GetEvents(recorder, "V_m")
			Expect(err).To(MatchError(simerr.ErrUnknownField))

			_, err = k.GetEvents(neuron, "times")
			Expect(err).To(MatchError(simerr.ErrUnknownField))

			_, err = k.GetEvents([]model.ID{99}, "times")
			Expect(err).To(MatchError(simerr.ErrUnknownNode))

			fields, err := k.Fields(voltmeter[0])
			Expect(err).NotTo(HaveOccurred())
			Expect(fields).To(Equal([]string{"times", "senders", "V_m"}))
		})

		It("should refuse access while a run is in progress", func() {
			var readErr, createErr error
			k.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
				if ctx.Pos != HookPosStep || readErr != nil {
					return
				}

				_, readErr = k.GetEvents(recorder, "times")
				_, createErr = k.Create("iaf_psc_alpha", 1, nil)
			}))

			Expect(k.Advance(1)).To(Succeed())

			Expect(readErr).To(MatchError(simerr.ErrStateUnavailable))
			Expect(createErr).To(MatchError(simerr.ErrStateUnavailable))

			_, err := k.GetEvents(recorder, "times")
			Expect(err).NotTo(HaveOccurred())
		})

		It("should expose status between runs", func() {
			status, err := k.GetStatus(neuron[0])
			Expect(err).NotTo(HaveOccurred())
			Expect(status["I_e"]).To(Equal(1000.0))
			Expect(status["global_id"]).To(Equal(uint64(1)))

			Expect(k.SetStatus(neuron[0], status)).To(Succeed())
			Expect(k.SetStatus(neuron[0], model.Params{"I_e": 0.0})).To(Succeed())
			Expect(k.SetStatus(neuron[0], model.Params{"g_L": 1.0})).
				To(MatchError(simerr.ErrUnknownParam))
			Expect(k.SetStatus(recorder[0], model.Params{"n_events": 0})).
				To(Succeed())

			events, err := k.GetEvents(recorder, "times")
			Expect(err).NotTo(HaveOccurred())
			Expect(events[0]).To(BeEmpty())

			Expect(k.Advance(20)).To(Succeed())
			events, err = k.GetEvents(recorder, "times")
			Expect(err).NotTo(HaveOccurred())
			Expect(events[0]).To(BeEmpty())
		})
	})

	Context("when a step fails", func() {
		It("should stop at the last completed step", func() {
			generator := create("spike_generator", 1,
				model.Params{"spike_times": []float64{0.5}})
			neuron := create("iaf_psc_alpha", 1, model.Params{"C_m": 1e-300})
			voltmeter := create("voltmeter", 1, nil)

			Expect(k.Connect(generator, neuron,
				NewConnSpec().WithWeight(-1e308))).To(Succeed())
			Expect(k.Connect(voltmeter, neuron, NewConnSpec())).To(Succeed())

			err := k.Advance(1.0)

			Expect(err).To(MatchError(simerr.ErrIntegration))
			Expect(k.Now()).To(Equal(timing.Step(6)))

			times, err := k.GetEvents(voltmeter, "times")
			Expect(err).NotTo(HaveOccurred())
			Expect(times[0]).To(HaveLen(6))

			Expect(k.Advance(0.1)).To(MatchError(simerr.ErrIntegration))
			Expect(k.Now()).To(Equal(timing.Step(6)))
		})
	})

	Context("with hooks", func() {
		It("should report advance boundaries and steps", func() {
			create("iaf_psc_alpha", 1, nil)

			hook := NewMockHook(mockCtrl)
			var positions []*hooking.HookPos
			hook.EXPECT().Func(gomock.Any()).
				Do(func(ctx hooking.HookCtx) {
					positions = append(positions, ctx.Pos)
				}).
				Times(7)
			k.AcceptHook(hook)

			Expect(k.Advance(0.5)).To(Succeed())

			Expect(positions[0]).To(BeIdenticalTo(HookPosAdvanceStart))
			Expect(positions[6]).To(BeIdenticalTo(HookPosAdvanceEnd))
			for _, pos := range positions[1:6] {
				Expect(pos).To(BeIdenticalTo(HookPosStep))
			}
		})

		It("should count spikes", func() {
			neuron := create("iaf_psc_alpha", 1, model.Params{"I_e": 1000.0})
			generator := create("spike_generator", 1,
				model.Params{"spike_times": []float64{1.0, 2.0}})

			tracer := NewSpikeCountTracer()
			k.AcceptHook(tracer)

			Expect(k.Advance(100)).To(Succeed())

			Expect(tracer.Origins()).To(Equal(append(neuron, generator...)))
			Expect(tracer.SpikeCount(neuron[0])).To(Equal(uint64(15)))
			Expect(tracer.SpikeCount(generator[0])).To(Equal(uint64(2)))

			traced, active := tracer.StepCount()
			Expect(traced).To(Equal(uint64(1000)))
			Expect(active).To(Equal(uint64(17)))
		})
	})

	Context("with stimulation devices", func() {
		It("should drive a neuron with a delayed current", func() {
			dc := create("dc_generator", 1, model.Params{"amplitude": 1000.0})
			neuron := create("iaf_psc_alpha", 1, nil)
			recorder := create("spike_recorder", 1, nil)

			Expect(k.Connect(dc, neuron, NewConnSpec())).To(Succeed())
			Expect(k.Connect(neuron, recorder, NewConnSpec())).To(Succeed())
			Expect(k.Advance(15)).To(Succeed())

			times, err := k.GetEvents(recorder, "times")
			Expect(err).NotTo(HaveOccurred())
			Expect(times[0]).To(Equal([]float64{5.0, 11.8}))
		})

		It("should deliver spikes after the connection delay", func() {
			generator := create("spike_generator", 1,
				model.Params{"spike_times": []float64{1.0}})
			recorder := create("spike_recorder", 1, nil)

			Expect(k.Connect(generator, recorder,
				NewConnSpec().WithDelay(2.0))).To(Succeed())

			Expect(k.Advance(2.9)).To(Succeed())
			times, err := k.GetEvents(recorder, "times")
			Expect(err).NotTo(HaveOccurred())
			Expect(times[0]).To(BeEmpty())

			Expect(k.Advance(0.1)).To(Succeed())
			times, err = k.GetEvents(recorder, "times")
			Expect(err).NotTo(HaveOccurred())
			Expect(times[0]).To(Equal([]float64{1.0}))

			delivered, err := k.GetEvents(recorder, "delivery_times")
			Expect(err).NotTo(HaveOccurred())
			Expect(delivered[0]).To(Equal([]float64{2.9}))
		})

		It("should order records by delivery step across delays", func() {
			early := create("spike_generator", 1,
				model.Params{"spike_times": []float64{0.5}})
			late := create("spike_generator", 1,
				model.Params{"spike_times": []float64{1.0}})
			recorder := create("spike_recorder", 1, nil)

			Expect(k.Connect(early, recorder,
				NewConnSpec().WithDelay(1.5))).To(Succeed())
			Expect(k.Connect(late, recorder,
				NewConnSpec().WithDelay(0.1))).To(Succeed())

			Expect(k.Advance(3.0)).To(Succeed())

			delivered, err := k.GetEvents(recorder, "delivery_times")
			Expect(err).NotTo(HaveOccurred())
			Expect(delivered[0]).To(Equal([]float64{1.0, 1.9}))

			times, err := k.GetEvents(recorder, "times")
			Expect(err).NotTo(HaveOccurred())
			Expect(times[0]).To(Equal([]float64{1.0, 0.5}))

			senders, err := k.GetEvents(recorder, "senders")
			Expect(err).NotTo(HaveOccurred())
			Expect(senders[0]).To(Equal([]float64{float64(late[0]), float64(early[0])}))
		})
	})
})
