package model

import (
	"github.com/sarchlab/nsim/simerr"
	"github.com/sarchlab/nsim/timing"
)

// SpikeRecorderModel is the model name of the spike recorder.
const SpikeRecorderModel = "spike_recorder"

var spikeRecorderFields = []string{"times", "senders", "delivery_times"}

// A SpikeRecorder records the spikes delivered to it.
type SpikeRecorder struct {
	nodeBase
	recordingDevice
}

func newSpikeRecorder(id ID, clock *timing.Clock, p Params) (Node, error) {
	r := &SpikeRecorder{
		nodeBase:        nodeBase{id: id, model: SpikeRecorderModel},
		recordingDevice: newRecordingDevice(clock),
	}

	if err := r.SetStatus(p); err != nil {
		return nil, err
	}

	return r, nil
}

// Kind returns KindRecorder.
func (r *SpikeRecorder) Kind() Kind {
	return KindRecorder
}

// Receive turns the spikes delivered at one step into records without
// changing the recorder. Spikes whose stamp is outside the window are
// ignored.
func (r *SpikeRecorder) Receive(delivered []Event) []Record {
	var records []Record

	for _, e := range delivered {
		if e.Payload != PayloadSpike || !r.active.Contains(e.Stamp) {
			continue
		}

		records = append(records, Record{
			Step:     e.Stamp,
			Sender:   e.Origin,
			Delivery: e.Delivery,
		})
	}

	return records
}

// Fields lists the read-out fields.
func (r *SpikeRecorder) Fields() []string {
	return append([]string(nil), spikeRecorderFields...)
}

// Events returns one field of the recording.
func (r *SpikeRecorder) Events(
	field string,
	stepToMs func(timing.Step) float64,
) ([]float64, error) {
	switch field {
	case "times":
		return r.column(func(rec Record) float64 {
			return r.presentTime(rec.Step, stepToMs)
		}), nil
	case "delivery_times":
		return r.column(func(rec Record) float64 {
			return r.presentTime(rec.Delivery, stepToMs)
		}), nil
	case "senders":
		return r.column(func(rec Record) float64 {
			return float64(rec.Sender)
		}), nil
	default:
		return nil, simerr.UnknownFieldf("%s %d does not record %q",
			r.model, r.id, field)
	}
}

// Status reports the window, the presentation mode and the number of
// recorded spikes.
func (r *SpikeRecorder) Status() Params {
	p := Params{"model": r.model}
	r.status(p)

	return p
}

// SetStatus changes the window or the presentation mode. Setting n_events
// to 0 discards the recorded spikes.
func (r *SpikeRecorder) SetStatus(p Params) error {
	reader := newParamReader(r.model, p)
	u := r.read(reader)
	reader.readOnly("model", r.model)

	if err := reader.done(); err != nil {
		return err
	}

	if err := r.check(r.model, u); err != nil {
		return err
	}

	r.apply(u)

	return nil
}
