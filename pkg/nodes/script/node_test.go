package script_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse-id/gatehouse/pkg/models"
	"github.com/gatehouse-id/gatehouse/pkg/nodes/script"
	"github.com/gatehouse-id/gatehouse/pkg/protocol"
)

func newScriptNode(t *testing.T, operations []any) *script.ScriptNode {
	t.Helper()

	node, err := script.NewScriptNode("script",
		map[string]any{"operations": operations},
		protocol.Dependencies{Logger: slog.Default()})
	require.NoError(t, err)

	return node
}

func TestScriptNode_SetAndCopy(t *testing.T) {
	node := newScriptNode(t, []any{
		map[string]any{"op": "set", "key": "tier", "value": "gold"},
		map[string]any{"op": "copy", "key": "tier_copy", "from": "tier"},
	})

	session := &models.AuthSession{Context: make(map[string]any)}

	outcome, err := node.Execute(context.Background(), session)
	require.NoError(t, err)

	assert.Equal(t, script.OutputNext, outcome.Output)
	assert.Equal(t, "gold", session.GetString("tier"))
	assert.Equal(t, "gold", session.GetString("tier_copy"))
}

func TestScriptNode_MalformedRoutesThroughError(t *testing.T) {
	tests := []struct {
		name       string
		operations []any
	}{
		{
			name:       "unsupported op",
			operations: []any{map[string]any{"op": "delete", "key": "x"}},
		},
		{
			name:       "missing key",
			operations: []any{map[string]any{"op": "set", "value": 1}},
		},
		{
			name:       "copy from absent key",
			operations: []any{map[string]any{"op": "copy", "key": "x", "from": "missing"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := newScriptNode(t, tt.operations)
			session := &models.AuthSession{Context: make(map[string]any)}

			outcome, err := node.Execute(context.Background(), session)
			require.NoError(t, err)

			assert.Equal(t, script.OutputError, outcome.Output)
		})
	}
}

func TestScriptNode_ConfigValidation(t *testing.T) {
	deps := protocol.Dependencies{Logger: slog.Default()}

	_, err := script.NewScriptNode("script", map[string]any{}, deps)
	assert.Error(t, err)

	_, err = script.NewScriptNode("script", map[string]any{"operations": "not-a-list"}, deps)
	assert.Error(t, err)

	_, err = script.NewScriptNode("script", map[string]any{"operations": []any{"not-an-object"}}, deps)
	assert.Error(t, err)
}
