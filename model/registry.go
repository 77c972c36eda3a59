package model

import (
	"sort"

	"github.com/sarchlab/nsim/simerr"
	"github.com/sarchlab/nsim/timing"
)

// A Factory creates a node of one model. The clock provides the resolution
// the node quantizes its times with.
type Factory func(id ID, clock *timing.Clock, p Params) (Node, error)

var factories = map[string]Factory{
	IAFPscAlphaModel:    newNeuron,
	SpikeGeneratorModel: newSpikeGenerator,
	DCGeneratorModel:    newDCGenerator,
	SpikeRecorderModel:  newSpikeRecorder,
	VoltmeterModel:      newVoltmeter,
	MultimeterModel:     newMultimeter,
}

// New creates a node of the named model.
func New(model string, id ID, clock *timing.Clock, p Params) (Node, error) {
	f, ok := factories[model]
	if !ok {
		return nil, simerr.UnknownModelf("model %q is not available", model)
	}

	return f(id, clock, p)
}

// Models lists the available model names in sorted order.
func Models() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
