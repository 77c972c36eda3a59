package kernel

import (
	"log"

	"go.uber.org/zap"

	"github.com/sarchlab/nsim/model"
	"github.com/sarchlab/nsim/simerr"
)

// Create adds n nodes of the named model, all configured with the same
// parameters, and returns their ids in ascending order. Either all n nodes
// are created or none. Creating nodes freezes the resolution.
func (k *Kernel) Create(
	modelName string,
	n int,
	params model.Params,
) ([]model.ID, error) {
	ctx, unlock, err := k.write()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if n < 1 {
		return nil, simerr.Configf("cannot create %d nodes", n)
	}

	first := ctx.ids.Last() + 1
	nodes := make([]model.Node, n)

	for i := range nodes {
		node, err := model.New(modelName, first+model.ID(i), ctx.clock, params)
		if err != nil {
			return nil, err
		}

		nodes[i] = node
	}

	ids := make([]model.ID, n)
	for i, node := range nodes {
		id := ctx.ids.Generate()
		if id != node.ID() {
			log.Panicf("node id %d was generated as %d", node.ID(), id)
		}

		ctx.add(node)
		ids[i] = id
	}

	ctx.clock.Freeze()

	k.logger.Debug("nodes created",
		zap.String("model", modelName),
		zap.Int("count", n),
		zap.Uint64("first_id", uint64(first)))

	return ids, nil
}

// NodeInfo describes a node.
type NodeInfo struct {
	ID    model.ID `json:"id"`
	Model string   `json:"model"`
	Kind  string   `json:"kind"`
}

// Nodes lists all nodes in ascending id order.
func (k *Kernel) Nodes() ([]NodeInfo, error) {
	ctx, unlock, err := k.read()
	if err != nil {
		return nil, err
	}
	defer unlock()

	infos := make([]NodeInfo, len(ctx.nodes))
	for i, n := range ctx.nodes {
		infos[i] = NodeInfo{
			ID:    n.ID(),
			Model: n.Model(),
			Kind:  n.Kind().String(),
		}
	}

	return infos, nil
}

// GetStatus reports the parameters and state of a node.
func (k *Kernel) GetStatus(id model.ID) (model.Params, error) {
	ctx, unlock, err := k.read()
	if err != nil {
		return nil, err
	}
	defer unlock()

	n, err := ctx.node(id)
	if err != nil {
		return nil, err
	}

	status := n.Status()
	status["global_id"] = uint64(id)

	return status, nil
}

// SetStatus changes parameters of a node between runs. Either all the given
// parameters are applied or none.
func (k *Kernel) SetStatus(id model.ID, params model.Params) error {
	ctx, unlock, err := k.write()
	if err != nil {
		return err
	}
	defer unlock()

	n, err := ctx.node(id)
	if err != nil {
		return err
	}

	p := params.Clone()
	if gid, ok := p["global_id"]; ok {
		if g, isNum := toUint(gid); !isNum || g != uint64(id) {
			return simerr.Configf("global_id of node %d is read-only", id)
		}
		delete(p, "global_id")
	}

	if err := n.SetStatus(p); err != nil {
		return err
	}

	k.logger.Debug("status set",
		zap.Uint64("id", uint64(id)),
		zap.Strings("params", params.Keys()))

	return nil
}

func toUint(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint64:
		return n, true
	case int:
		return uint64(n), n >= 0
	case int64:
		return uint64(n), n >= 0
	case float64:
		return uint64(n), n >= 0 && n == float64(uint64(n))
	default:
		return 0, false
	}
}
