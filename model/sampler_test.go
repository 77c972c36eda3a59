package model

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/nsim/simerr"
	"github.com/sarchlab/nsim/timing"
)

var _ = Describe("Sampler", func() {
	var clock *timing.Clock

	BeforeEach(func() {
		clock = timing.NewClock()
	})

	newSamplerNode := func(model string, p Params) (*Sampler, error) {
		n, err := New(model, 7, clock, p)
		if err != nil {
			return nil, err
		}

		return n.(*Sampler), nil
	}

	It("should sample every step by default", func() {
		s, err := newSamplerNode(VoltmeterModel, nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(s.Interval()).To(Equal(timing.Step(1)))
		Expect(s.RecordFrom()).To(Equal([]string{"V_m"}))
		Expect(s.Due(1)).To(BeTrue())
		Expect(s.Due(2)).To(BeTrue())
		Expect(s.Kind()).To(Equal(KindSampler))
	})

	It("should sample on the interval grid inside the closed window", func() {
		s, err := newSamplerNode(VoltmeterModel, Params{
			"interval": 1.0,
			"origin":   1.0,
			"start":    1.0,
			"stop":     4.0,
		})
		Expect(err).NotTo(HaveOccurred())

		var due []timing.Step
		for stamp := timing.Step(0); stamp < 100; stamp++ {
			if s.Due(stamp) {
				due = append(due, stamp)
			}
		}

		Expect(due).To(Equal([]timing.Step{20, 30, 40, 50}))
	})

	It("should reject intervals off the grid", func() {
		_, err := newSamplerNode(VoltmeterModel, Params{"interval": 0.25})
		Expect(err).To(MatchError(simerr.ErrConfiguration))

		_, err = newSamplerNode(VoltmeterModel, Params{"interval": 0.0})
		Expect(err).To(MatchError(simerr.ErrConfiguration))
	})

	It("should record the post-update state of a neuron", func() {
		s, err := newSamplerNode(MultimeterModel, Params{
			"record_from": []string{"V_m", "I_syn_ex"},
		})
		Expect(err).NotTo(HaveOccurred())

		n := mustNeuron(clock, Params{"I_e": 1000.0})
		state, _, err := n.Integrate(nil)
		Expect(err).NotTo(HaveOccurred())

		rec := s.Sample(1, n, state)
		s.Commit([]Record{rec})

		vm, ok := n.Observe(state, "V_m")
		Expect(ok).To(BeTrue())

		values, err := s.Events("V_m", clock.StepToMs)
		Expect(err).NotTo(HaveOccurred())
		Expect(values).To(Equal([]float64{vm}))

		times, err := s.Events("times", clock.StepToMs)
		Expect(err).NotTo(HaveOccurred())
		Expect(times).To(Equal([]float64{0.1}))

		senders, err := s.Events("senders", clock.StepToMs)
		Expect(err).NotTo(HaveOccurred())
		Expect(senders).To(Equal([]float64{1}))

		_, err = s.Events("I_syn_in", clock.StepToMs)
		Expect(err).To(MatchError(simerr.ErrUnknownField))
	})

	It("should keep the voltmeter on the membrane potential", func() {
		s, err := newSamplerNode(VoltmeterModel, nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(s.SetStatus(Params{"record_from": []string{"I_syn_ex"}})).
			To(MatchError(simerr.ErrConfiguration))
		Expect(s.SetStatus(Params{"record_from": []any{"V_m"}})).To(Succeed())
	})

	It("should only record observable variables", func() {
		_, err := newSamplerNode(MultimeterModel, Params{
			"record_from": []string{"w"},
		})
		Expect(err).To(MatchError(simerr.ErrConfiguration))

		_, err = newSamplerNode(MultimeterModel, Params{
			"record_from": []string{"V_m", "V_m"},
		})
		Expect(err).To(MatchError(simerr.ErrConfiguration))
	})

	It("should report its status", func() {
		s, err := newSamplerNode(MultimeterModel, Params{
			"record_from": []string{"I_syn_in"},
			"interval":    0.5,
		})
		Expect(err).NotTo(HaveOccurred())

		status := s.Status()
		Expect(status["interval"]).To(Equal(0.5))
		Expect(status["record_from"]).To(Equal([]string{"I_syn_in"}))
		Expect(status["n_events"]).To(Equal(0))
		Expect(s.SetStatus(status)).To(Succeed())
	})
})
