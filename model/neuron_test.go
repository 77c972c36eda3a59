package model

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/nsim/simerr"
	"github.com/sarchlab/nsim/timing"
)

func mustNeuron(clock *timing.Clock, p Params) *Neuron {
	n, err := New(IAFPscAlphaModel, 1, clock, p)
	Expect(err).NotTo(HaveOccurred())

	return n.(*Neuron)
}

func integrate(n *Neuron, events []Event) bool {
	s, spiked, err := n.Integrate(events)
	Expect(err).NotTo(HaveOccurred())
	n.Commit(s)

	return spiked
}

var _ = Describe("Neuron", func() {
	var clock *timing.Clock

	BeforeEach(func() {
		clock = timing.NewClock()
	})

	It("should start at rest with default parameters", func() {
		n := mustNeuron(clock, nil)

		Expect(n.Params()).To(Equal(DefaultIAFPscAlphaParams()))
		Expect(n.Status()["V_m"]).To(Equal(-70.0))
		Expect(n.Kind()).To(Equal(KindNeuron))
		Expect(n.Model()).To(Equal(IAFPscAlphaModel))
	})

	It("should fire periodically under constant drive", func() {
		n := mustNeuron(clock, Params{"I_e": 1000.0})

		var stamps []timing.Step
		for t := timing.Step(0); t < 200; t++ {
			if integrate(n, nil) {
				stamps = append(stamps, t+1)
			}
		}

		Expect(stamps).To(Equal([]timing.Step{48, 116, 184}))
	})

	It("should clamp the membrane during the refractory period", func() {
		n := mustNeuron(clock, Params{"I_e": 1000.0})

		for t := 0; t < 48; t++ {
			integrate(n, nil)
		}

		for t := 0; t < 20; t++ {
			Expect(n.Status()["V_m"]).To(Equal(-70.0))
			integrate(n, nil)
		}

		integrate(n, nil)
		Expect(n.Status()["V_m"]).To(BeNumerically(">", -70.0))
	})

	It("should shape a spike into an alpha current peaking at the weight", func() {
		n := mustNeuron(clock, nil)

		integrate(n, []Event{{Origin: 2, Target: 1, Weight: 1}})
		for i := 0; i < 20; i++ {
			integrate(n, nil)
		}

		v, ok := n.Observe(n.State(), "I_syn_ex")
		Expect(ok).To(BeTrue())
		Expect(v).To(BeNumerically("~", 1.0, 1e-12))
		Expect(n.Status()["V_m"]).To(BeNumerically(">", -70.0))
	})

	It("should route negative weights to the inhibitory synapse", func() {
		n := mustNeuron(clock, nil)

		integrate(n, []Event{{Origin: 2, Target: 1, Weight: -2}})
		integrate(n, nil)

		s := n.State()
		Expect(s.IIn).To(BeNumerically("<", 0))
		Expect(s.IEx).To(Equal(0.0))
	})

	It("should take delivered currents into account from the next step", func() {
		n := mustNeuron(clock, nil)

		integrate(n, []Event{{
			Origin: 2, Target: 1, Weight: 2,
			Payload: PayloadCurrent, Amplitude: 100,
		}})
		Expect(n.State().IStim).To(Equal(200.0))
		Expect(n.Status()["V_m"]).To(Equal(-70.0))

		integrate(n, nil)
		Expect(n.Status()["V_m"]).To(BeNumerically(">", -70.0))
	})

	It("should not change the committed state when integrating", func() {
		n := mustNeuron(clock, Params{"I_e": 500.0})
		before := n.State()

		_, _, err := n.Integrate(nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(n.State()).To(Equal(before))
	})

	It("should report a state that is no longer finite", func() {
		n := mustNeuron(clock, Params{"C_m": 1e-300})

		_, _, err := n.Integrate(nil)
		Expect(err).NotTo(HaveOccurred())

		integrate(n, []Event{{Origin: 2, Target: 1, Weight: -1e308}})
		_, _, err = n.Integrate(nil)

		Expect(err).To(MatchError(simerr.ErrIntegration))
	})

	It("should reject invalid parameters", func() {
		_, err := New(IAFPscAlphaModel, 1, clock, Params{"C_m": 0.0})
		Expect(err).To(MatchError(simerr.ErrConfiguration))

		_, err = New(IAFPscAlphaModel, 1, clock, Params{"V_reset": -50.0})
		Expect(err).To(MatchError(simerr.ErrConfiguration))

		_, err = New(IAFPscAlphaModel, 1, clock, Params{"tau_m": "fast"})
		Expect(err).To(MatchError(simerr.ErrConfiguration))

		_, err = New(IAFPscAlphaModel, 1, clock, Params{"tau": 1.0})
		Expect(err).To(MatchError(simerr.ErrUnknownParam))
	})

	It("should keep the absolute potential when E_L changes", func() {
		n := mustNeuron(clock, Params{"V_m": -60.0})

		Expect(n.SetStatus(Params{"E_L": -65.0})).To(Succeed())

		Expect(n.Status()["V_m"]).To(Equal(-60.0))
		Expect(n.State().V).To(Equal(5.0))
	})

	It("should apply all or none of a status change", func() {
		n := mustNeuron(clock, nil)

		err := n.SetStatus(Params{"I_e": 10.0, "tau_m": -1.0})

		Expect(err).To(MatchError(simerr.ErrConfiguration))
		Expect(n.Params().IE).To(Equal(0.0))
	})

	It("should accept its own status", func() {
		n := mustNeuron(clock, Params{"I_e": 10.0})

		Expect(n.SetStatus(n.Status())).To(Succeed())
		Expect(n.SetStatus(Params{"model": "other"})).
			To(MatchError(simerr.ErrConfiguration))
	})

	It("should not observe unknown variables", func() {
		n := mustNeuron(clock, nil)

		_, ok := n.Observe(n.State(), "w")

		Expect(ok).To(BeFalse())
		Expect(math.IsInf(n.Params().VMin, -1)).To(BeTrue())
	})
})
