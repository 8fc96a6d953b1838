package start

import (
	"context"

	"github.com/gatehouse-id/gatehouse/pkg/models"
	"github.com/gatehouse-id/gatehouse/pkg/protocol"
)

type Factory struct{}

func NewFactory() protocol.NodeFactory {
	return &Factory{}
}

func (f *Factory) Create(ctx context.Context, id string, config map[string]any, deps protocol.Dependencies) (protocol.Node, error) {
	return NewStartNode(id), nil
}

func (f *Factory) ID() string {
	return "core.start"
}

func (f *Factory) StepType() models.StepType {
	return models.StepTypeLogic
}

func (f *Factory) Metadata() models.NodeMetadata {
	return models.NodeMetadata{
		ID:          f.ID(),
		Category:    f.StepType(),
		DisplayName: "Start",
		Description: "Entry point of the flow. Every flow has exactly one.",
		Icon:        "play",
		ConfigSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Inputs:  []string{},
		Outputs: []string{OutputNext},
	}
}
