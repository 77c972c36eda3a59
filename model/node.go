// Package model defines the nodes a kernel simulates: neurons, stimulation
// devices and recording devices.
//
// Nodes form a closed set of kinds. Each kind carries a fixed set of
// capabilities that tells the scheduler which phases of a step apply to it.
// Nodes never call each other; everything a node learns about the rest of the
// network arrives as delivered Events, or for samplers as the committed state
// of the neurons they observe.
package model

import (
	"fmt"
	"math"

	"github.com/sarchlab/nsim/idgen"
	"github.com/sarchlab/nsim/simerr"
	"github.com/sarchlab/nsim/timing"
)

// ID identifies a node. Ids are assigned at creation in ascending order and
// stay stable for the whole run-series.
type ID = idgen.ID

// Kind is the variant of a node.
type Kind uint8

// The node kinds.
const (
	KindNeuron Kind = iota
	KindSpikeGenerator
	KindCurrentGenerator
	KindRecorder
	KindSampler
	numKinds
)

func (k Kind) String() string {
	switch k {
	case KindNeuron:
		return "neuron"
	case KindSpikeGenerator:
		return "spike_generator"
	case KindCurrentGenerator:
		return "current_generator"
	case KindRecorder:
		return "recorder"
	case KindSampler:
		return "sampler"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Capability is a bit set of what a node takes part in during a step.
type Capability uint8

// The capabilities.
const (
	// Integrable nodes advance an internal state every step.
	Integrable Capability = 1 << iota

	// Emitting nodes produce events for their outgoing connections.
	Emitting

	// Receiving nodes consume delivered events.
	Receiving
)

var capabilities = [numKinds]Capability{
	KindNeuron:           Integrable | Emitting | Receiving,
	KindSpikeGenerator:   Emitting,
	KindCurrentGenerator: Emitting,
	KindRecorder:         Receiving,
	KindSampler:          Integrable,
}

// Can tells whether nodes of the kind have the capability.
func (k Kind) Can(c Capability) bool {
	if k >= numKinds {
		return false
	}

	return capabilities[k]&c == c
}

// A Node is an entity of the simulated network.
type Node interface {
	ID() ID
	Kind() Kind

	// Model returns the name the node was created from.
	Model() string

	// Status reports the current parameters and state.
	Status() Params

	// SetStatus changes parameters. Either all the given parameters are
	// applied or none.
	SetStatus(p Params) error
}

// A Recorder is a node that owns a Recording.
type Recorder interface {
	Node

	// Recording returns the records collected so far.
	Recording() *Recording

	// Fields lists the names accepted by Events.
	Fields() []string

	// Events returns one field of the recording, one value per record.
	// Times are presented in steps or milliseconds depending on the device
	// configuration; stepToMs converts steps to milliseconds.
	Events(field string, stepToMs func(s timing.Step) float64) ([]float64, error)
}

type nodeBase struct {
	id    ID
	model string
}

func (b nodeBase) ID() ID {
	return b.id
}

func (b nodeBase) Model() string {
	return b.model
}

var inf = math.Inf(1)

func isInf(f float64) bool {
	return math.IsInf(f, 1)
}

func configf(model string, format string, args ...any) error {
	return simerr.Configf("%s: %s", model, fmt.Sprintf(format, args...))
}

func wrapParam(model, key string, err error) error {
	return fmt.Errorf("%s: parameter %s: %w", model, key, err)
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	return true
}
