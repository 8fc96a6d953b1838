// Package events defines the audit event types published on the event bus
// for flow lifecycle and authentication session activity.
package events

import "time"

type EventType string

// Event bus topic.
const Topic = "gatehouse.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Flow lifecycle events.
	FlowPublishedEvent EventType = "flow.published"
	FlowDeployedEvent  EventType = "flow.deployed"

	// Authentication session events.
	SessionStartedEvent   EventType = "session.started"
	SessionCompletedEvent EventType = "session.completed"
	SessionFailedEvent    EventType = "session.failed"
)

// Event is implemented by every published event.
type Event interface {
	GetType() EventType
}

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RealmID   string    `json:"realm_id"`
}

type FlowPublished struct {
	BaseEvent

	DraftID       string `json:"draft_id"`
	VersionID     string `json:"version_id"`
	VersionNumber int    `json:"version_number"`
	Checksum      string `json:"checksum"`
}

func (e FlowPublished) GetType() EventType {
	return FlowPublishedEvent
}

type FlowDeployed struct {
	BaseEvent

	FlowType  string `json:"flow_type"`
	VersionID string `json:"version_id"`
}

func (e FlowDeployed) GetType() EventType {
	return FlowDeployedEvent
}

type SessionStarted struct {
	BaseEvent

	SessionID     string `json:"session_id"`
	FlowType      string `json:"flow_type"`
	FlowVersionID string `json:"flow_version_id"`
}

func (e SessionStarted) GetType() EventType {
	return SessionStartedEvent
}

type SessionCompleted struct {
	BaseEvent

	SessionID string        `json:"session_id"`
	UserID    string        `json:"user_id"`
	Duration  time.Duration `json:"duration"`
}

func (e SessionCompleted) GetType() EventType {
	return SessionCompletedEvent
}

type SessionFailed struct {
	BaseEvent

	SessionID string        `json:"session_id"`
	Reason    string        `json:"reason"`
	Duration  time.Duration `json:"duration"`
}

func (e SessionFailed) GetType() EventType {
	return SessionFailedEvent
}
