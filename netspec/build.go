package netspec

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sarchlab/nsim/kernel"
	"github.com/sarchlab/nsim/model"
	"github.com/sarchlab/nsim/simerr"
	"github.com/sarchlab/nsim/timing"
)

// An Instance is a network built into a kernel.
type Instance struct {
	Network *Network
	Kernel  *kernel.Kernel

	ids   map[string][]model.ID
	kinds map[string]string
}

// NewKernel creates a kernel configured by the network and builds the
// network into it.
func (n *Network) NewKernel(opts ...kernel.Option) (*Instance, error) {
	k, err := kernel.NewKernel(append(n.Options(), opts...)...)
	if err != nil {
		return nil, err
	}

	return n.Build(k)
}

// Build creates the populations in file order and then the connections.
func (n *Network) Build(k *kernel.Kernel) (*Instance, error) {
	inst := &Instance{
		Network: n,
		Kernel:  k,
		ids:     make(map[string][]model.ID, len(n.Populations)),
		kinds:   make(map[string]string, len(n.Populations)),
	}

	for _, p := range n.Populations {
		ids, err := k.Create(p.Model, p.count(), p.params())
		if err != nil {
			return nil, fmt.Errorf("node group %q: %w", p.Name, err)
		}

		inst.ids[p.Name] = ids
	}

	for _, c := range n.Connections {
		err := k.Connect(inst.ids[c.Source], inst.ids[c.Target], c.spec())
		if err != nil {
			return nil, fmt.Errorf("connection %s -> %s: %w",
				c.Source, c.Target, err)
		}
	}

	nodes, err := k.Nodes()
	if err != nil {
		return nil, err
	}

	for name, ids := range inst.ids {
		inst.kinds[name] = nodes[ids[0]-1].Kind
	}

	k.Logger().Debug("network built",
		zap.Int("node_groups", len(n.Populations)),
		zap.Int("connections", len(n.Connections)))

	return inst, nil
}

// IDs returns the node ids of a population.
func (i *Instance) IDs(name string) []model.ID {
	return i.ids[name]
}

// Run advances the kernel by each run block of the network in turn.
func (i *Instance) Run() error {
	for _, d := range i.Network.Run {
		if err := i.Kernel.Advance(d); err != nil {
			return err
		}
	}

	return nil
}

// RunInBlocks advances the kernel by the total duration of the network in
// calls of blockMs each, with a shorter final call for any remainder. A block
// that is not a whole number of steps fails with simerr.ErrInvalidDuration
// before any step runs.
func (i *Instance) RunInBlocks(blockMs float64) error {
	total, err := i.Kernel.DurationSteps(i.Network.Duration())
	if err != nil {
		return err
	}

	block, err := i.Kernel.DurationSteps(blockMs)
	if err != nil {
		return err
	}

	if block == 0 {
		return simerr.InvalidDurationf("block of %g ms is shorter than a step", blockMs)
	}

	res, err := i.Kernel.Resolution()
	if err != nil {
		return err
	}

	for done := timing.Step(0); done < total; done += block {
		d := blockMs
		if rest := total - done; rest < block {
			d = float64(rest) * res
		}

		if err := i.Kernel.Advance(d); err != nil {
			return err
		}
	}

	return nil
}

// A DeviceSummary counts the records of one recording population.
type DeviceSummary struct {
	Name    string
	Model   string
	IDs     []model.ID
	Records []int
}

// Devices summarizes the recording populations in file order.
func (i *Instance) Devices() ([]DeviceSummary, error) {
	var out []DeviceSummary

	for _, p := range i.Network.Populations {
		if !isRecording(i.kinds[p.Name]) {
			continue
		}

		s := DeviceSummary{Name: p.Name, Model: p.Model, IDs: i.ids[p.Name]}
		for _, id := range s.IDs {
			records, err := i.Kernel.Records(id)
			if err != nil {
				return nil, err
			}

			s.Records = append(s.Records, len(records))
		}

		out = append(out, s)
	}

	return out, nil
}

func isRecording(kind string) bool {
	return kind == model.KindRecorder.String() ||
		kind == model.KindSampler.String()
}
