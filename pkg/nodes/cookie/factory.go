package cookie

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
	return NewCookieNode(id, deps), nil
}

func (f *Factory) ID() string {
	return "core.auth.cookie"
}

func (f *Factory) StepType() models.StepType {
	return models.StepTypeAuthenticator
}

func (f *Factory) Metadata() models.NodeMetadata {
	return models.NodeMetadata{
		ID:          f.ID(),
		Category:    f.StepType(),
		DisplayName: "SSO Cookie Check",
		Description: "Checks the request's SSO cookie and records the result in the session context without prompting the user.",
		Icon:        "cookie",
		ConfigSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Inputs:  []string{"in"},
		Outputs: []string{OutputContinue},
	}
}
