package model

import "math"

// alphaPropagator holds the exact-integration coefficients of one synapse
// type of an iaf_psc_alpha neuron over one step of length h.
//
// With dI/dt = dI' and the alpha kernel, one step maps
//
//	I'  <- P11 * I'
//	I   <- P21 * I' + P22 * I
//	V   <- ... + P31 * I' + P32 * I
type alphaPropagator struct {
	p11, p21, p22, p31, p32 float64

	// initial is the value dI' jumps by for a spike of weight 1 so that the
	// resulting current peaks at 1 pA after tau_syn.
	initial float64
}

func newAlphaPropagator(h, tauSyn, tauM, cM float64) alphaPropagator {
	var p alphaPropagator

	p.p11 = math.Exp(-h / tauSyn)
	p.p22 = p.p11
	p.p21 = h * p.p11
	p.initial = math.E / tauSyn

	decay := math.Exp(-h / tauM)
	a := 1/tauM - 1/tauSyn
	x := a * h

	if a == 0 {
		p.p32 = decay * h / cM
		p.p31 = decay * h * h / (2 * cM)

		return p
	}

	p.p32 = decay * math.Expm1(x) / a / cM

	// x*e^x - expm1(x) loses all its digits for small x; use its series.
	if math.Abs(x) < 1e-3 {
		series := 0.5 + x/3 + x*x/8 + x*x*x/30
		p.p31 = decay * h * h * series / cM
	} else {
		p.p31 = decay * (x*math.Exp(x) - math.Expm1(x)) / (a * a) / cM
	}

	return p
}
