package terminal_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse-id/gatehouse/pkg/models"
	"github.com/gatehouse-id/gatehouse/pkg/nodes/terminal"
	"github.com/gatehouse-id/gatehouse/pkg/protocol"
)

func TestAllowNode_AuthenticatedUser(t *testing.T) {
	node := terminal.NewAllowNode("allow")
	session := &models.AuthSession{UserID: "user-42", Context: make(map[string]any)}

	outcome, err := node.Execute(context.Background(), session)
	require.NoError(t, err)

	assert.Equal(t, protocol.OutcomeSuccess, outcome.Kind)
	assert.Equal(t, "user-42", outcome.UserID)
}

func TestAllowNode_UserFromContext(t *testing.T) {
	node := terminal.NewAllowNode("allow")
	session := &models.AuthSession{Context: map[string]any{"user_id": "user-7"}}

	outcome, err := node.Execute(context.Background(), session)
	require.NoError(t, err)

	assert.Equal(t, protocol.OutcomeSuccess, outcome.Kind)
	assert.Equal(t, "user-7", outcome.UserID)
}

func TestAllowNode_AnonymousFails(t *testing.T) {
	node := terminal.NewAllowNode("allow")
	session := &models.AuthSession{Context: make(map[string]any)}

	outcome, err := node.Execute(context.Background(), session)
	require.NoError(t, err)

	assert.Equal(t, protocol.OutcomeFailure, outcome.Kind)
}

func TestDenyNode_DefaultReason(t *testing.T) {
	node := terminal.NewDenyNode("deny", nil)

	outcome, err := node.Execute(context.Background(), &models.AuthSession{})
	require.NoError(t, err)

	assert.Equal(t, protocol.OutcomeFailure, outcome.Kind)
	assert.Equal(t, "access denied", outcome.Reason)
}

func TestDenyNode_ConfiguredReason(t *testing.T) {
	node := terminal.NewDenyNode("deny", map[string]any{"reason": "registration closed"})

	outcome, err := node.Execute(context.Background(), &models.AuthSession{})
	require.NoError(t, err)

	assert.Equal(t, "registration closed", outcome.Reason)
}

func TestTerminalNodes_RejectInput(t *testing.T) {
	allow := terminal.NewAllowNode("allow")

	_, err := allow.HandleInput(context.Background(), &models.AuthSession{}, map[string]any{"x": 1})
	assert.ErrorIs(t, err, protocol.ErrNoInput)
}
