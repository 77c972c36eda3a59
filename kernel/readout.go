package kernel

import (
	"github.com/sarchlab/nsim/model"
	"github.com/sarchlab/nsim/simerr"
)

// GetEvents reads one field of the recordings of the given devices, one
// sequence per device in the order of ids. Times are in milliseconds unless
// the device presents them in steps.
//
// It fails with simerr.ErrStateUnavailable while a run is in progress and
// with simerr.ErrUnknownField if a node does not record the field.
func (k *Kernel) GetEvents(ids []model.ID, field string) ([][]float64, error) {
	ctx, unlock, err := k.read()
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := make([][]float64, len(ids))
	for i, id := range ids {
		rec, err := recorder(ctx, id)
		if err != nil {
			return nil, err
		}

		values, err := rec.Events(field, ctx.clock.StepToMs)
		if err != nil {
			return nil, err
		}

		out[i] = values
	}

	return out, nil
}

// Fields lists the fields GetEvents accepts for a device.
func (k *Kernel) Fields(id model.ID) ([]string, error) {
	ctx, unlock, err := k.read()
	if err != nil {
		return nil, err
	}
	defer unlock()

	rec, err := recorder(ctx, id)
	if err != nil {
		return nil, err
	}

	return rec.Fields(), nil
}

// Records returns a copy of the raw records of a device.
func (k *Kernel) Records(id model.ID) ([]model.Record, error) {
	ctx, unlock, err := k.read()
	if err != nil {
		return nil, err
	}
	defer unlock()

	rec, err := recorder(ctx, id)
	if err != nil {
		return nil, err
	}

	return rec.Recording().Records(), nil
}

func recorder(ctx *simContext, id model.ID) (model.Recorder, error) {
	n, err := ctx.node(id)
	if err != nil {
		return nil, err
	}

	rec, ok := n.(model.Recorder)
	if !ok {
		return nil, simerr.UnknownFieldf("%s %d does not record events",
			n.Model(), id)
	}

	return rec, nil
}
