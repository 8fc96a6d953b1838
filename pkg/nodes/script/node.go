// Package script provides the operator-authored logic node. A script is a
// list of context operations applied in order; anything malformed routes
// through the error output instead of aborting the flow.
package script

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gatehouse-id/gatehouse/pkg/models"
	"github.com/gatehouse-id/gatehouse/pkg/protocol"
)

const (
	OutputNext  = "next"
	OutputError = "error"
)

// Supported operations.
const (
	OpSet  = "set"  // set a literal value
	OpCopy = "copy" // copy one context key to another
)

// ScriptNode applies a sequence of declarative context mutations. There is
// no general-purpose language here: loops authored through graph cycles are
// bounded by the executor's hop cap, not by this node.
type ScriptNode struct {
	protocol.BaseNode

	id         string
	operations []map[string]any
	logger     *slog.Logger
}

func NewScriptNode(id string, config map[string]any, deps protocol.Dependencies) (*ScriptNode, error) {
	raw, ok := config["operations"]
	if !ok {
		return nil, errors.New("missing required field 'operations'")
	}

	list, ok := raw.([]any)
	if !ok {
		return nil, errors.New("field 'operations' must be a list")
	}

	operations := make([]map[string]any, 0, len(list))

	for _, item := range list {
		op, ok := item.(map[string]any)
		if !ok {
			return nil, errors.New("each operation must be an object")
		}

		operations = append(operations, op)
	}

	return &ScriptNode{
		id:         id,
		operations: operations,
		logger:     deps.Logger,
	}, nil
}

func (n *ScriptNode) Execute(ctx context.Context, session *models.AuthSession) (protocol.Outcome, error) {
	for i, op := range n.operations {
		kind, _ := op["op"].(string)
		key, _ := op["key"].(string)

		if key == "" {
			n.logger.WarnContext(ctx, "Script operation missing key", "node_id", n.id, "index", i)

			return protocol.ContinueTo(OutputError), nil
		}

		switch kind {
		case OpSet:
			session.Put(key, op["value"])
		case OpCopy:
			from, _ := op["from"].(string)

			value, ok := session.Get(from)
			if !ok {
				n.logger.WarnContext(ctx, "Script copy source missing", "node_id", n.id, "from", from)

				return protocol.ContinueTo(OutputError), nil
			}

			session.Put(key, value)
		default:
			n.logger.WarnContext(ctx, "Unsupported script operation", "node_id", n.id, "op", kind)

			return protocol.ContinueTo(OutputError), nil
		}
	}

	return protocol.ContinueTo(OutputNext), nil
}
