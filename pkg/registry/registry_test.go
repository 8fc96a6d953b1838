package registry_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse-id/gatehouse/pkg/models"
	"github.com/gatehouse-id/gatehouse/pkg/protocol"
	"github.com/gatehouse-id/gatehouse/pkg/registry"
)

func newTestRegistry() *registry.Registry {
	reg := registry.NewRegistry(slog.Default(), protocol.Dependencies{})
	reg.RegisterDefaultNodes()

	return reg
}

func TestRegistry_Definition(t *testing.T) {
	reg := newTestRegistry()

	tests := []struct {
		nodeType string
		stepType models.StepType
	}{
		{"core.start", models.StepTypeLogic},
		{"core.auth.cookie", models.StepTypeAuthenticator},
		{"core.auth.password", models.StepTypeAuthenticator},
		{"core.auth.otp", models.StepTypeAuthenticator},
		{"core.logic.condition", models.StepTypeLogic},
		{"core.logic.script", models.StepTypeLogic},
		{"core.terminal.allow", models.StepTypeTerminal},
		{"core.terminal.deny", models.StepTypeTerminal},
	}

	for _, tt := range tests {
		t.Run(tt.nodeType, func(t *testing.T) {
			definition, err := reg.Definition(tt.nodeType)
			require.NoError(t, err)
			assert.Equal(t, tt.stepType, definition.StepType)
		})
	}
}

func TestRegistry_UnknownType(t *testing.T) {
	reg := newTestRegistry()

	_, err := reg.Definition("acme.custom.unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acme.custom.unknown")

	_, err = reg.CreateNode(context.Background(), "acme.custom.unknown", "x", nil)
	assert.Error(t, err)
}

func TestRegistry_ListMetadataSortedByID(t *testing.T) {
	reg := newTestRegistry()

	metadata := reg.ListMetadata()
	require.Len(t, metadata, 8)

	for i := 1; i < len(metadata); i++ {
		assert.Less(t, metadata[i-1].ID, metadata[i].ID)
	}

	for _, m := range metadata {
		assert.NotEmpty(t, m.DisplayName, "metadata for %s has no display name", m.ID)
		assert.NotEmpty(t, m.Category, "metadata for %s has no category", m.ID)
	}
}

func TestRegistry_CreateNode(t *testing.T) {
	reg := newTestRegistry()

	node, err := reg.CreateNode(context.Background(), "core.start", "start", nil)
	require.NoError(t, err)
	require.NotNil(t, node)

	outcome, err := node.Execute(context.Background(), &models.AuthSession{})
	require.NoError(t, err)
	assert.Equal(t, protocol.OutcomeContinue, outcome.Kind)
}

func TestRegistry_ValidateConfigAdvisory(t *testing.T) {
	reg := newTestRegistry()

	// Condition declares required fields in its schema.
	err := reg.ValidateConfig("core.logic.condition", map[string]any{
		"variable": "role",
		"operator": "eq",
		"value":    "admin",
	})
	assert.NoError(t, err)

	err = reg.ValidateConfig("core.logic.condition", map[string]any{"operator": "eq"})
	assert.Error(t, err)
}

func TestRegistry_HealthCheck(t *testing.T) {
	empty := registry.NewRegistry(slog.Default(), protocol.Dependencies{})

	_, ok := empty.HealthCheck()
	assert.False(t, ok)

	msg, ok := newTestRegistry().HealthCheck()
	assert.True(t, ok)
	assert.Contains(t, msg, "8")
}
