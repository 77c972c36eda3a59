package kernel

import (
	"errors"
	"slices"

	"go.uber.org/zap"

	"github.com/sarchlab/nsim/model"
	"github.com/sarchlab/nsim/simerr"
	"github.com/sarchlab/nsim/timing"
)

// Rule tells how Connect pairs sources with targets.
type Rule string

// The connection rules.
const (
	AllToAll Rule = "all_to_all"
	OneToOne Rule = "one_to_one"
)

// A ConnSpec describes the connections made by one Connect call.
type ConnSpec struct {
	Rule Rule

	// Delay in milliseconds. 0 stands for one resolution step.
	Delay float64

	Weight float64
}

// NewConnSpec returns an all-to-all spec with the default delay and weight 1.
func NewConnSpec() ConnSpec {
	return ConnSpec{
		Rule:   AllToAll,
		Weight: 1,
	}
}

// WithRule sets the rule.
func (s ConnSpec) WithRule(r Rule) ConnSpec {
	s.Rule = r
	return s
}

// WithDelay sets the delay in milliseconds.
func (s ConnSpec) WithDelay(ms float64) ConnSpec {
	s.Delay = ms
	return s
}

// WithWeight sets the weight.
func (s ConnSpec) WithWeight(w float64) ConnSpec {
	s.Weight = w
	return s
}

// A Connection is a directed link between two nodes. A connection from a
// sampler to a neuron means the sampler observes the neuron; its delay and
// weight have no effect.
type Connection struct {
	Source model.ID `json:"source"`
	Target model.ID `json:"target"`
	Delay  float64  `json:"delay_ms"`
	Weight float64  `json:"weight"`
}

type pair struct {
	source, target model.Node
}

// Connect links sources to targets. Either all connections are made or none.
func (k *Kernel) Connect(sources, targets []model.ID, spec ConnSpec) error {
	ctx, unlock, err := k.write()
	if err != nil {
		return err
	}
	defer unlock()

	delay, err := connDelay(ctx.clock, spec.Delay)
	if err != nil {
		return err
	}

	if !finite(spec.Weight) {
		return simerr.Configf("weight %g is not finite", spec.Weight)
	}

	pairs, err := pairUp(ctx, sources, targets, spec.Rule)
	if err != nil {
		return err
	}

	for _, p := range pairs {
		if err := checkPair(ctx, p); err != nil {
			return err
		}
	}

	if err := checkObservations(pairs); err != nil {
		return err
	}

	for _, p := range pairs {
		if p.source.Kind() == model.KindSampler {
			ctx.observe(p.source.ID(), p.target.ID())
			continue
		}

		ctx.connect(p.source.ID(), synapse{
			target: p.target.ID(),
			delay:  delay,
			weight: spec.Weight,
		})
	}

	ctx.clock.Freeze()

	k.logger.Debug("nodes connected",
		zap.String("rule", string(spec.Rule)),
		zap.Int("connections", len(pairs)),
		zap.Uint64("delay_steps", uint64(delay)),
		zap.Float64("weight", spec.Weight))

	return nil
}

func connDelay(clock *timing.Clock, ms float64) (timing.Step, error) {
	if ms == 0 {
		return 1, nil
	}

	steps, err := clock.Steps(ms)
	if errors.Is(err, timing.ErrOffGrid) {
		return 0, simerr.Configf(
			"delay %g ms is not a multiple of the resolution %g ms",
			ms, clock.Resolution())
	}

	if err != nil {
		return 0, err
	}

	if steps < 1 {
		return 0, simerr.Configf("delay %g ms is shorter than one step", ms)
	}

	return steps, nil
}

func pairUp(
	ctx *simContext,
	sources, targets []model.ID,
	rule Rule,
) ([]pair, error) {
	src, err := lookup(ctx, sources)
	if err != nil {
		return nil, err
	}

	tgt, err := lookup(ctx, targets)
	if err != nil {
		return nil, err
	}

	var pairs []pair

	switch rule {
	case AllToAll, "":
		for _, s := range src {
			for _, t := range tgt {
				pairs = append(pairs, pair{source: s, target: t})
			}
		}
	case OneToOne:
		if len(src) != len(tgt) {
			return nil, simerr.Configf(
				"one_to_one needs as many sources as targets, got %d and %d",
				len(src), len(tgt))
		}

		for i := range src {
			pairs = append(pairs, pair{source: src[i], target: tgt[i]})
		}
	default:
		return nil, simerr.Configf("unknown connection rule %q", rule)
	}

	return pairs, nil
}

func lookup(ctx *simContext, ids []model.ID) ([]model.Node, error) {
	nodes := make([]model.Node, len(ids))
	for i, id := range ids {
		n, err := ctx.node(id)
		if err != nil {
			return nil, err
		}

		nodes[i] = n
	}

	return nodes, nil
}

func checkPair(ctx *simContext, p pair) error {
	s, t := p.source, p.target

	switch {
	case s.Kind() == model.KindSampler:
		if t.Kind() != model.KindNeuron {
			return simerr.Configf("%s %d can only observe neurons, not %s %d",
				s.Model(), s.ID(), t.Model(), t.ID())
		}

		if ctx.observes(s.ID(), t.ID()) {
			return simerr.Configf("%s %d already observes %s %d",
				s.Model(), s.ID(), t.Model(), t.ID())
		}
	case !s.Kind().Can(model.Emitting):
		return simerr.Configf("%s %d cannot be the source of a connection",
			s.Model(), s.ID())
	case !t.Kind().Can(model.Receiving):
		return simerr.Configf("%s %d cannot be the target of a connection",
			t.Model(), t.ID())
	case s.Kind() == model.KindCurrentGenerator &&
		t.Kind() != model.KindNeuron:
		return simerr.Configf("%s %d can only drive neurons, not %s %d",
			s.Model(), s.ID(), t.Model(), t.ID())
	}

	return nil
}

func checkObservations(pairs []pair) error {
	type observation struct{ sampler, neuron model.ID }

	var seen []observation
	for _, p := range pairs {
		if p.source.Kind() != model.KindSampler {
			continue
		}

		o := observation{p.source.ID(), p.target.ID()}
		if slices.Contains(seen, o) {
			return simerr.Configf("%s %d would observe node %d twice",
				p.source.Model(), o.sampler, o.neuron)
		}
		seen = append(seen, o)
	}

	return nil
}

// GetConnections lists connections in ascending source order, each source's
// connections in creation order. Non-empty sources or targets restrict the
// list to connections from or to those nodes.
func (k *Kernel) GetConnections(sources, targets []model.ID) ([]Connection, error) {
	ctx, unlock, err := k.read()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, err := lookup(ctx, sources); err != nil {
		return nil, err
	}

	if _, err := lookup(ctx, targets); err != nil {
		return nil, err
	}

	keep := func(ids []model.ID, id model.ID) bool {
		return len(ids) == 0 || slices.Contains(ids, id)
	}

	var conns []Connection
	for _, n := range ctx.nodes {
		id := n.ID()
		if !keep(sources, id) {
			continue
		}

		for _, s := range ctx.outgoing[id] {
			if keep(targets, s.target) {
				conns = append(conns, Connection{
					Source: id,
					Target: s.target,
					Delay:  ctx.clock.StepToMs(s.delay),
					Weight: s.weight,
				})
			}
		}

		for _, neuron := range ctx.observed[id] {
			if keep(targets, neuron) {
				conns = append(conns, Connection{Source: id, Target: neuron})
			}
		}
	}

	return conns, nil
}
