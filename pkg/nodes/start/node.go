// Package start provides the entry node every flow begins at.
package start

import (
	"context"

	"github.com/gatehouse-id/gatehouse/pkg/models"
	"github.com/gatehouse-id/gatehouse/pkg/protocol"
)

const OutputNext = "next"

// StartNode marks the entry point of a flow and immediately hands control
// to whatever it is wired to.
type StartNode struct {
	protocol.BaseNode

	id string
}

func NewStartNode(id string) *StartNode {
	return &StartNode{id: id}
}

func (n *StartNode) Execute(ctx context.Context, session *models.AuthSession) (protocol.Outcome, error) {
	return protocol.ContinueTo(OutputNext), nil
}
