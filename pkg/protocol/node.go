// Package protocol defines the interfaces and contracts for pluggable
// authentication flow nodes and the collaborators the engine calls out to.
package protocol

import (
	"context"
	"errors"

	"github.com/gatehouse-id/gatehouse/pkg/models"
)

// ErrNoInput is returned by HandleInput on node kinds that never pause for
// caller input (logic and terminal nodes).
var ErrNoInput = errors.New("this node does not accept input")

// Node is the four-phase lifecycle every executable node kind implements
// against a mutable authentication session.
//
// OnEnter runs once when control lands on the node. Execute runs immediately
// after and decides whether to continue automatically or pause. HandleInput
// runs when the caller submits data for the node at the session's current
// position. OnExit runs just before control leaves the node.
type Node interface {
	OnEnter(ctx context.Context, session *models.AuthSession) error
	Execute(ctx context.Context, session *models.AuthSession) (Outcome, error)
	HandleInput(ctx context.Context, session *models.AuthSession, input map[string]any) (Outcome, error)
	OnExit(ctx context.Context, session *models.AuthSession) error
}

// NodeFactory creates node instances and provides editor metadata about the
// node kind.
type NodeFactory interface {
	// Create creates a new node instance bound to its compiled config.
	Create(ctx context.Context, id string, config map[string]any, deps Dependencies) (Node, error)

	// ID returns the unique dotted identifier for this node kind,
	// e.g. "core.auth.password".
	ID() string

	// StepType returns the execution category used by the validator and
	// the compiler.
	StepType() models.StepType

	// Metadata returns the editor-facing description of this node kind.
	Metadata() models.NodeMetadata
}

// BaseNode provides the default no-op lifecycle phases. Node kinds embed it
// and override what they need; logic and terminal nodes keep the input
// rejection as-is.
type BaseNode struct{}

func (BaseNode) OnEnter(ctx context.Context, session *models.AuthSession) error {
	return nil
}

func (BaseNode) HandleInput(ctx context.Context, session *models.AuthSession, input map[string]any) (Outcome, error) {
	return Outcome{}, ErrNoInput
}

func (BaseNode) OnExit(ctx context.Context, session *models.AuthSession) error {
	return nil
}
