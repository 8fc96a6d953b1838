package script

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
	return NewScriptNode(id, config, deps)
}

func (f *Factory) ID() string {
	return "core.logic.script"
}

func (f *Factory) StepType() models.StepType {
	return models.StepTypeLogic
}

func (f *Factory) Metadata() models.NodeMetadata {
	return models.NodeMetadata{
		ID:          f.ID(),
		Category:    f.StepType(),
		DisplayName: "Script",
		Description: "Applies a list of declarative session context operations in order.",
		Icon:        "code",
		ConfigSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"operations": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"op":    map[string]any{"type": "string", "enum": []string{OpSet, OpCopy}},
							"key":   map[string]any{"type": "string"},
							"value": map[string]any{"description": "Literal value for set operations."},
							"from":  map[string]any{"type": "string", "description": "Source key for copy operations."},
						},
						"required": []string{"op", "key"},
					},
				},
			},
			"required": []string{"operations"},
		},
		Inputs:  []string{"in"},
		Outputs: []string{OutputNext, OutputError},
	}
}
