package models

import (
	"encoding/json"
	"time"
)

// FlowType distinguishes which kind of authentication experience a flow
// drives within a realm. A realm has at most one active deployment per type.
type FlowType string

const (
	FlowTypeBrowser       FlowType = "browser"        // Interactive browser login
	FlowTypeDirectGrant   FlowType = "direct_grant"   // Non-interactive credential exchange
	FlowTypeRegistration  FlowType = "registration"   // Account registration
	FlowTypePasswordReset FlowType = "password_reset" // Credential recovery
)

// FlowDraft is the editable flow definition. The editor mutates its graph
// freely; drafts are never executed directly.
type FlowDraft struct {
	ID          string          `json:"id"`
	RealmID     string          `json:"realm_id"    validate:"required"`
	Name        string          `json:"name"        validate:"required,min=3"`
	Description string          `json:"description"`
	FlowType    FlowType        `json:"flow_type"   validate:"required"`
	Graph       json.RawMessage `json:"graph"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// FlowVersion is an immutable, checksummed snapshot compiled from a draft.
// VersionNumber is strictly increasing per draft, starting at 1. Artifact
// and Checksum never change after creation.
type FlowVersion struct {
	ID            string          `json:"id"`
	DraftID       string          `json:"draft_id"`
	RealmID       string          `json:"realm_id"`
	FlowType      FlowType        `json:"flow_type"`
	VersionNumber int             `json:"version_number"`
	Artifact      json.RawMessage `json:"artifact"`
	Checksum      string          `json:"checksum"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Plan deserializes the version's execution artifact.
func (v *FlowVersion) Plan() (*ExecutionPlan, error) {
	var plan ExecutionPlan

	err := json.Unmarshal(v.Artifact, &plan)
	if err != nil {
		return nil, err
	}

	return &plan, nil
}

// FlowDeployment is the only mutable pointer in the lifecycle: it binds a
// (realm, flow type) pair to the version that serves live logins. Swapping
// it changes behavior for new sessions instantly; in-flight sessions keep
// their own pinned version.
type FlowDeployment struct {
	ID              string    `json:"id"`
	RealmID         string    `json:"realm_id"`
	FlowType        FlowType  `json:"flow_type"`
	ActiveVersionID string    `json:"active_version_id"`
	UpdatedAt       time.Time `json:"updated_at"`
}
