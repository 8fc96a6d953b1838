package condition_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse-id/gatehouse/pkg/models"
	"github.com/gatehouse-id/gatehouse/pkg/nodes/condition"
)

func evaluate(t *testing.T, config map[string]any, sessionContext map[string]any) string {
	t.Helper()

	node, err := condition.NewConditionNode("cond", config)
	require.NoError(t, err)

	session := &models.AuthSession{Context: sessionContext}

	outcome, err := node.Execute(context.Background(), session)
	require.NoError(t, err)

	return outcome.Output
}

func TestConditionNode_Operators(t *testing.T) {
	tests := []struct {
		name    string
		config  map[string]any
		context map[string]any
		want    string
	}{
		{
			name:    "eq true",
			config:  map[string]any{"variable": "role", "operator": "eq", "value": "admin"},
			context: map[string]any{"role": "admin"},
			want:    condition.OutputTrue,
		},
		{
			name:    "eq false",
			config:  map[string]any{"variable": "role", "operator": "eq", "value": "admin"},
			context: map[string]any{"role": "viewer"},
			want:    condition.OutputFalse,
		},
		{
			name:    "eq numeric across json types",
			config:  map[string]any{"variable": "level", "operator": "eq", "value": 3},
			context: map[string]any{"level": float64(3)},
			want:    condition.OutputTrue,
		},
		{
			name:    "neq",
			config:  map[string]any{"variable": "role", "operator": "neq", "value": "admin"},
			context: map[string]any{"role": "viewer"},
			want:    condition.OutputTrue,
		},
		{
			name:    "gt",
			config:  map[string]any{"variable": "age", "operator": "gt", "value": float64(18)},
			context: map[string]any{"age": float64(21)},
			want:    condition.OutputTrue,
		},
		{
			name:    "lt false",
			config:  map[string]any{"variable": "age", "operator": "lt", "value": float64(18)},
			context: map[string]any{"age": float64(21)},
			want:    condition.OutputFalse,
		},
		{
			name:    "contains",
			config:  map[string]any{"variable": "email", "operator": "contains", "value": "@acme."},
			context: map[string]any{"email": "jdoe@acme.example"},
			want:    condition.OutputTrue,
		},
		{
			name:    "exists true",
			config:  map[string]any{"variable": "user_id", "operator": "exists"},
			context: map[string]any{"user_id": "user-42"},
			want:    condition.OutputTrue,
		},
		{
			name:    "exists false",
			config:  map[string]any{"variable": "user_id", "operator": "exists"},
			context: map[string]any{},
			want:    condition.OutputFalse,
		},
		{
			name:    "missing variable with eq",
			config:  map[string]any{"variable": "role", "operator": "eq", "value": "admin"},
			context: map[string]any{},
			want:    condition.OutputFalse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, evaluate(t, tt.config, tt.context))
		})
	}
}

func TestConditionNode_ConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		config map[string]any
	}{
		{name: "missing variable", config: map[string]any{"operator": "eq", "value": 1}},
		{name: "missing operator", config: map[string]any{"variable": "x", "value": 1}},
		{name: "missing value", config: map[string]any{"variable": "x", "operator": "eq"}},
		{name: "unsupported operator", config: map[string]any{"variable": "x", "operator": "regex", "value": 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := condition.NewConditionNode("cond", tt.config)
			assert.Error(t, err)
		})
	}
}

func TestConditionNode_ExistsNeedsNoValue(t *testing.T) {
	_, err := condition.NewConditionNode("cond", map[string]any{"variable": "x", "operator": "exists"})
	assert.NoError(t, err)
}
