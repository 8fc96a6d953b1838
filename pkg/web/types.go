// Package web provides HTTP request and response types for the flow
// management and authentication API.
package web

import (
	"encoding/json"

	"github.com/gatehouse-id/gatehouse/pkg/models"
)

// CreateFlowRequest is the request body for creating a new flow draft.
type CreateFlowRequest struct {
	RealmID     string          `json:"realm_id"    validate:"required"`
	Name        string          `json:"name"        validate:"required,min=3"`
	Description string          `json:"description"`
	FlowType    models.FlowType `json:"flow_type"   validate:"required,oneof=browser direct_grant registration password_reset"`
	Graph       json.RawMessage `json:"graph,omitempty"`
}

// UpdateFlowRequest supports partial draft edits. Realm and flow type are
// fixed at creation.
type UpdateFlowRequest struct {
	Name        *string         `json:"name,omitempty"        validate:"omitempty,min=3"`
	Description *string         `json:"description,omitempty"`
	Graph       json.RawMessage `json:"graph,omitempty"`
}

// DeployRequest points a (realm, flow type) pair at a published version.
type DeployRequest struct {
	RealmID   string          `json:"realm_id"   validate:"required"`
	FlowType  models.FlowType `json:"flow_type"  validate:"required,oneof=browser direct_grant registration password_reset"`
	VersionID string          `json:"version_id" validate:"required"`
}

// StartRequest carries optional initial input for a new session. Body is
// optional; the SSO cookie, when present on the request, is merged in by
// the handler.
type StartRequest struct {
	Input map[string]any `json:"input,omitempty"`
}

// SubmitRequest carries the caller's input for the node the session is
// paused on.
type SubmitRequest struct {
	Input map[string]any `json:"input" validate:"required"`
}

// ResumeRequest completes an async suspension with its single-use token.
type ResumeRequest struct {
	Token string         `json:"token" validate:"required"`
	Input map[string]any `json:"input,omitempty"`
}

// ValidateConfigRequest is the advisory editor check of a node config
// against the kind's declared schema.
type ValidateConfigRequest struct {
	Config map[string]any `json:"config"`
}
