// Package models defines the core domain models for authentication flow execution.
package models

// StepType is the coarse execution category of a compiled node.
type StepType string

const (
	StepTypeAuthenticator StepType = "authenticator" // Interacts with the end user or their credentials
	StepTypeLogic         StepType = "logic"         // Routes control without user interaction
	StepTypeTerminal      StepType = "terminal"      // Ends the flow with allow or deny
)

// ExecutionNode is a single compiled node inside an ExecutionPlan.
// Next maps an output handle name to the id of the node that handle leads to.
type ExecutionNode struct {
	ID       string            `json:"id"`
	Type     string            `json:"type"`
	StepType StepType          `json:"step_type"`
	Next     map[string]string `json:"next"`
	Config   map[string]any    `json:"config"`
}

// ExecutionPlan is the immutable, addressable artifact produced by the
// compiler. It is serialized into FlowVersion.Artifact and never mutated.
type ExecutionPlan struct {
	StartNodeID string                    `json:"start_node_id"`
	Nodes       map[string]*ExecutionNode `json:"nodes"`
}

// Node returns the plan node with the given id, or nil.
func (p *ExecutionPlan) Node(id string) *ExecutionNode {
	return p.Nodes[id]
}
