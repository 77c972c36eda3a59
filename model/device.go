package model

import "github.com/sarchlab/nsim/timing"

// recordingDevice is the part shared by spike recorders and samplers.
type recordingDevice struct {
	clock       *timing.Clock
	window      windowParams
	active      Window
	timeInSteps bool
	recording   Recording
}

func newRecordingDevice(clock *timing.Clock) recordingDevice {
	return recordingDevice{
		clock:  clock,
		window: defaultWindowParams(),
	}
}

// Recording returns the records collected so far.
func (d *recordingDevice) Recording() *Recording {
	return &d.recording
}

// Window returns the activity window in steps.
func (d *recordingDevice) Window() Window {
	return d.active
}

// TimeInSteps tells whether times are presented in steps.
func (d *recordingDevice) TimeInSteps() bool {
	return d.timeInSteps
}

// Commit appends records to the recording.
func (d *recordingDevice) Commit(records []Record) {
	d.recording.Append(records...)
}

func (d *recordingDevice) presentTime(
	s timing.Step,
	stepToMs func(timing.Step) float64,
) float64 {
	if d.timeInSteps {
		return float64(s)
	}

	return stepToMs(s)
}

func (d *recordingDevice) column(f func(Record) float64) []float64 {
	out := make([]float64, d.recording.Len())
	for i := range out {
		out[i] = f(d.recording.At(i))
	}

	return out
}

// deviceUpdate is a staged change of the common device settings.
type deviceUpdate struct {
	window      windowParams
	timeInSteps bool
	clear       bool
	active      Window
}

func (d *recordingDevice) read(r *paramReader) *deviceUpdate {
	u := &deviceUpdate{
		window:      d.window,
		timeInSteps: d.timeInSteps,
	}

	u.window.read(r)
	r.boolean("time_in_steps", &u.timeInSteps)

	nEvents := float64(d.recording.Len())
	r.float("n_events", &nEvents)

	switch {
	case nEvents == 0:
		u.clear = true
	case nEvents != float64(d.recording.Len()):
		r.fail("n_events", "can only be set to 0")
	}

	return u
}

func (d *recordingDevice) check(model string, u *deviceUpdate) error {
	if u.timeInSteps != d.timeInSteps && d.recording.Len() > 0 && !u.clear {
		return configf(model,
			"time_in_steps cannot change while the device holds records")
	}

	active, err := u.window.quantize(model, d.clock)
	if err != nil {
		return err
	}

	u.active = active

	return nil
}

func (d *recordingDevice) apply(u *deviceUpdate) {
	d.window = u.window
	d.active = u.active
	d.timeInSteps = u.timeInSteps

	if u.clear {
		d.recording = Recording{}
	}
}

func (d *recordingDevice) status(p Params) {
	d.window.status(p)
	p["time_in_steps"] = d.timeInSteps
	p["n_events"] = d.recording.Len()
}
