package model

import (
	"sort"

	"github.com/sarchlab/nsim/timing"
)

// Payload tells what an Event carries.
type Payload uint8

const (
	// PayloadSpike marks a spike.
	PayloadSpike Payload = iota

	// PayloadCurrent carries a current amplitude in pA for the delivery step.
	PayloadCurrent
)

func (p Payload) String() string {
	switch p {
	case PayloadSpike:
		return "spike"
	case PayloadCurrent:
		return "current"
	default:
		return "unknown"
	}
}

// An Event travels along a Connection from its origin to its target.
type Event struct {
	// Delivery is the step at which the target receives the event.
	Delivery timing.Step

	// Stamp is the step at which the event was produced. For spikes this is
	// the spike time.
	Stamp timing.Step

	Origin ID
	Target ID

	// Weight is the weight of the connection the event travelled along.
	Weight float64

	Payload Payload

	// Amplitude is set for PayloadCurrent events.
	Amplitude float64
}

// SortDeliveries orders events delivered at one step to one target by
// ascending origin id. Events of the same origin keep their relative order.
func SortDeliveries(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Origin < events[j].Origin
	})
}
