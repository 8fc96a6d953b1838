package otp

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
	return NewOTPNode(id, config, deps), nil
}

func (f *Factory) ID() string {
	return "core.auth.otp"
}

func (f *Factory) StepType() models.StepType {
	return models.StepTypeAuthenticator
}

func (f *Factory) Metadata() models.NodeMetadata {
	return models.NodeMetadata{
		ID:          f.ID(),
		Category:    f.StepType(),
		DisplayName: "One-Time Code",
		Description: "Sends a one-time code out of band and prompts the user to enter it. Wire resend back to this node to issue a fresh code.",
		Icon:        "shield",
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
		Outputs: []string{OutputSuccess, OutputFailure, OutputResend},
	}
}
