package terminal

import (
	"context"

	"github.com/gatehouse-id/gatehouse/pkg/models"
	"github.com/gatehouse-id/gatehouse/pkg/protocol"
)

type AllowFactory struct{}

func NewAllowFactory() protocol.NodeFactory {
	return &AllowFactory{}
}

func (f *AllowFactory) Create(ctx context.Context, id string, config map[string]any, deps protocol.Dependencies) (protocol.Node, error) {
	return NewAllowNode(id), nil
}

func (f *AllowFactory) ID() string {
	return "core.terminal.allow"
}

func (f *AllowFactory) StepType() models.StepType {
	return models.StepTypeTerminal
}

func (f *AllowFactory) Metadata() models.NodeMetadata {
	return models.NodeMetadata{
		ID:          f.ID(),
		Category:    f.StepType(),
		DisplayName: "Allow",
		Description: "Completes the login and issues tokens for the authenticated user.",
		Icon:        "check-circle",
		ConfigSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Inputs:  []string{"in"},
		Outputs: []string{},
	}
}

type DenyFactory struct{}

func NewDenyFactory() protocol.NodeFactory {
	return &DenyFactory{}
}

func (f *DenyFactory) Create(ctx context.Context, id string, config map[string]any, deps protocol.Dependencies) (protocol.Node, error) {
	return NewDenyNode(id, config), nil
}

func (f *DenyFactory) ID() string {
	return "core.terminal.deny"
}

func (f *DenyFactory) StepType() models.StepType {
	return models.StepTypeTerminal
}

func (f *DenyFactory) Metadata() models.NodeMetadata {
	return models.NodeMetadata{
		ID:          f.ID(),
		Category:    f.StepType(),
		DisplayName: "Deny",
		Description: "Ends the login with a denial.",
		Icon:        "x-circle",
		ConfigSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"reason": map[string]any{
					"type":        "string",
					"description": "Denial reason surfaced to the caller.",
				},
			},
		},
		Inputs:  []string{"in"},
		Outputs: []string{},
	}
}
