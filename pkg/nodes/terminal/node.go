// Package terminal provides the allow and deny nodes that end every flow.
package terminal

import (
	"context"

	"github.com/gatehouse-id/gatehouse/pkg/models"
	"github.com/gatehouse-id/gatehouse/pkg/protocol"
)

const contextKeyUserID = "user_id"

// AllowNode completes the flow successfully. It requires that some upstream
// authenticator established a user identity; reaching it anonymously is a
// flow design mistake and fails the session.
type AllowNode struct {
	protocol.BaseNode

	id string
}

func NewAllowNode(id string) *AllowNode {
	return &AllowNode{id: id}
}

func (n *AllowNode) Execute(ctx context.Context, session *models.AuthSession) (protocol.Outcome, error) {
	userID := session.UserID
	if userID == "" {
		userID = session.GetString(contextKeyUserID)
	}

	if userID == "" {
		return protocol.Failure("flow reached allow without an authenticated user"), nil
	}

	return protocol.Success(userID), nil
}

// DenyNode fails the flow terminally with a configurable reason.
type DenyNode struct {
	protocol.BaseNode

	id     string
	reason string
}

func NewDenyNode(id string, config map[string]any) *DenyNode {
	reason, _ := config["reason"].(string)
	if reason == "" {
		reason = "access denied"
	}

	return &DenyNode{id: id, reason: reason}
}

func (n *DenyNode) Execute(ctx context.Context, session *models.AuthSession) (protocol.Outcome, error) {
	return protocol.Failure(n.reason), nil
}
