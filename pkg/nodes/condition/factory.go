package condition

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
	return NewConditionNode(id, config)
}

func (f *Factory) ID() string {
	return "core.logic.condition"
}

func (f *Factory) StepType() models.StepType {
	return models.StepTypeLogic
}

func (f *Factory) Metadata() models.NodeMetadata {
	return models.NodeMetadata{
		ID:          f.ID(),
		Category:    f.StepType(),
		DisplayName: "Condition",
		Description: "Compares a session context variable against a value and branches on the result.",
		Icon:        "git-branch",
		ConfigSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"variable": map[string]any{
					"type":        "string",
					"description": "Top-level session context key to read.",
				},
				"operator": map[string]any{
					"type": "string",
					"enum": []string{OperatorEquals, OperatorNotEquals, OperatorGreaterThan, OperatorLessThan, OperatorContains, OperatorExists},
				},
				"value": map[string]any{
					"description": "Value to compare against. Ignored for the exists operator.",
				},
			},
			"required": []string{"variable", "operator"},
		},
		Inputs:  []string{"in"},
		Outputs: []string{OutputTrue, OutputFalse},
	}
}
