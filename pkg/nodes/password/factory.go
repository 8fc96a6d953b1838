package password

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
	return NewPasswordNode(id, config, deps), nil
}

func (f *Factory) ID() string {
	return "core.auth.password"
}

func (f *Factory) StepType() models.StepType {
	return models.StepTypeAuthenticator
}

func (f *Factory) Metadata() models.NodeMetadata {
	return models.NodeMetadata{
		ID:          f.ID(),
		Category:    f.StepType(),
		DisplayName: "Password",
		Description: "Prompts for username and password and verifies them against the realm's credential store.",
		Icon:        "key",
		ConfigSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"max_attempts": map[string]any{
					"type":        "integer",
					"minimum":     1,
					"default":     defaultMaxAttempts,
					"description": "Failed submissions allowed before routing through the failure output.",
				},
			},
		},
		Inputs:  []string{"in"},
		Outputs: []string{OutputSuccess, OutputFailure},
	}
}
