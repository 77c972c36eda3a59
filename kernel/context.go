package kernel

import (
	"sort"

	"github.com/sarchlab/nsim/idgen"
	"github.com/sarchlab/nsim/model"
	"github.com/sarchlab/nsim/simerr"
	"github.com/sarchlab/nsim/timing"
)

// synapse is an outgoing connection as the scheduler sees it.
type synapse struct {
	target model.ID
	delay  timing.Step
	weight float64
}

// simContext is the whole mutable state of a run-series. Reset discards it
// and builds a new one; nothing else in the kernel holds simulation state.
type simContext struct {
	clock *timing.Clock
	ids   idgen.Generator
	queue *timing.Queue[model.Event]

	// nodes is indexed by id-1.
	nodes []model.Node

	// outgoing lists the connections of each source in creation order.
	outgoing map[model.ID][]synapse

	// observed lists the neurons of each sampler in ascending id order.
	observed map[model.ID][]model.ID

	numConnections int

	// by kind, in ascending id order
	neurons    []*model.Neuron
	generators []model.Node
	recorders  []*model.SpikeRecorder
	samplers   []*model.Sampler
}

func newSimContext(clock *timing.Clock) *simContext {
	return &simContext{
		clock:    clock,
		ids:      idgen.New(),
		queue:    timing.NewQueue[model.Event](),
		outgoing: make(map[model.ID][]synapse),
		observed: make(map[model.ID][]model.ID),
	}
}

func (c *simContext) node(id model.ID) (model.Node, error) {
	if id == 0 || int(id) > len(c.nodes) {
		return nil, simerr.UnknownNodef("node %d does not exist", id)
	}

	return c.nodes[id-1], nil
}

func (c *simContext) neuron(id model.ID) *model.Neuron {
	return c.nodes[id-1].(*model.Neuron)
}

func (c *simContext) add(n model.Node) {
	c.nodes = append(c.nodes, n)

	switch n := n.(type) {
	case *model.Neuron:
		c.neurons = append(c.neurons, n)
	case *model.SpikeRecorder:
		c.recorders = append(c.recorders, n)
	case *model.Sampler:
		c.samplers = append(c.samplers, n)
	default:
		c.generators = append(c.generators, n)
	}
}

func (c *simContext) connect(source model.ID, s synapse) {
	c.outgoing[source] = append(c.outgoing[source], s)
	c.numConnections++
}

func (c *simContext) observe(sampler, neuron model.ID) {
	targets := c.observed[sampler]

	i := sort.Search(len(targets), func(i int) bool {
		return targets[i] >= neuron
	})

	targets = append(targets, 0)
	copy(targets[i+1:], targets[i:])
	targets[i] = neuron

	c.observed[sampler] = targets
	c.numConnections++
}

func (c *simContext) observes(sampler, neuron model.ID) bool {
	targets := c.observed[sampler]

	i := sort.Search(len(targets), func(i int) bool {
		return targets[i] >= neuron
	})

	return i < len(targets) && targets[i] == neuron
}
