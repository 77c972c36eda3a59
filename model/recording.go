package model

import "github.com/sarchlab/nsim/timing"

// A Record is one observation of a recording device.
type Record struct {
	// Step is the step the observation belongs to: the spike stamp for spike
	// recorders, the sampled step for samplers.
	Step timing.Step

	// Sender is the node that produced the spike or was sampled.
	Sender ID

	// Delivery is the step the spike was delivered at. Samplers leave it 0.
	Delivery timing.Step

	// Values holds one value per recorded variable. Spike recorders leave it
	// nil.
	Values []float64
}

// A Recording is an append-only sequence of records. Records arrive in
// delivery order: by delivery step, then by sender id within a step. Spike
// stamps are not monotonic when connections have different delays.
type Recording struct {
	records []Record
}

// Append adds records at the end of the recording.
func (r *Recording) Append(records ...Record) {
	r.records = append(r.records, records...)
}

// Len returns the number of records.
func (r *Recording) Len() int {
	return len(r.records)
}

// At returns the i-th record.
func (r *Recording) At(i int) Record {
	return r.records[i]
}

// Records returns a copy of all the records.
func (r *Recording) Records() []Record {
	out := make([]Record, len(r.records))
	copy(out, r.records)

	return out
}
