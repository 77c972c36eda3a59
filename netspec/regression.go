package netspec

import (
	_ "embed"
	"errors"
	"fmt"
	"log"
	"reflect"
	"sort"

	"github.com/sarchlab/nsim/kernel"
)

//go:embed regression.yaml
var regressionYAML []byte

// ErrMismatch reports recordings that should be identical but are not.
var ErrMismatch = errors.New("recordings differ")

// DefaultBlocks are the Advance call lengths, in milliseconds, that the
// regression network is run with.
var DefaultBlocks = []float64{0.1, 0.3, 0.5, 0.7, 1.0, 1.3, 1.5, 1.7, 110.0}

// RegressionNetwork returns the built-in network that checks that recordings
// depend neither on creation order nor on how time is split into Advance
// calls.
func RegressionNetwork() *Network {
	n, err := ParseBytes(regressionYAML)
	if err != nil {
		log.Panicf("invalid regression network: %v", err)
	}

	return n
}

// Recordings maps "population/field" to the recorded sequences of every
// recording population.
type Recordings map[string][][]float64

// Keys returns the keys in sorted order.
func (r Recordings) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// Recordings reads every field of every recording population.
func (i *Instance) Recordings() (Recordings, error) {
	out := make(Recordings)

	for _, p := range i.Network.Populations {
		if !isRecording(i.kinds[p.Name]) {
			continue
		}

		ids := i.ids[p.Name]

		fields, err := i.Kernel.Fields(ids[0])
		if err != nil {
			return nil, err
		}

		for _, f := range fields {
			events, err := i.Kernel.GetEvents(ids, f)
			if err != nil {
				return nil, err
			}

			out[p.Name+"/"+f] = events
		}
	}

	return out, nil
}

// Verify evaluates the checks of the network.
func (i *Instance) Verify() error {
	for _, c := range i.Network.Checks {
		var first [][]float64

		for j, d := range c.Devices {
			events, err := i.Kernel.GetEvents(i.ids[d], c.Field)
			if err != nil {
				return fmt.Errorf("check %s of %s: %w", c.Field, d, err)
			}

			if j == 0 {
				first = events
				continue
			}

			for _, e := range events {
				if !reflect.DeepEqual(e, first[0]) {
					return fmt.Errorf("%w: %s of %s and %s",
						ErrMismatch, c.Field, c.Devices[0], d)
				}
			}
		}
	}

	return nil
}

// A BlockResult is the outcome of running a network with one block length.
type BlockResult struct {
	BlockMs float64
	Err     error
}

// Passed reports whether the run matched the reference run.
func (r BlockResult) Passed() bool {
	return r.Err == nil
}

// CheckInvariance runs the network once with its own run blocks as the
// reference and then once per block length. Each run must pass the checks of
// the network and record exactly what the reference recorded.
//
// The returned error is set only if the reference run fails.
func CheckInvariance(
	n *Network,
	blocks []float64,
	opts ...kernel.Option,
) ([]BlockResult, error) {
	ref, err := n.NewKernel(opts...)
	if err != nil {
		return nil, err
	}

	if err := ref.Run(); err != nil {
		return nil, err
	}

	if err := ref.Verify(); err != nil {
		return nil, err
	}

	want, err := ref.Recordings()
	if err != nil {
		return nil, err
	}

	results := make([]BlockResult, len(blocks))
	for j, b := range blocks {
		results[j] = BlockResult{BlockMs: b, Err: runBlocked(n, b, want, opts)}
	}

	return results, nil
}

func runBlocked(
	n *Network,
	blockMs float64,
	want Recordings,
	opts []kernel.Option,
) error {
	inst, err := n.NewKernel(opts...)
	if err != nil {
		return err
	}

	if err := inst.RunInBlocks(blockMs); err != nil {
		return err
	}

	if err := inst.Verify(); err != nil {
		return err
	}

	got, err := inst.Recordings()
	if err != nil {
		return err
	}

	for _, key := range want.Keys() {
		if !reflect.DeepEqual(got[key], want[key]) {
			return fmt.Errorf("%w: %s", ErrMismatch, key)
		}
	}

	return nil
}
