package protocol

import "time"

// OutcomeKind enumerates the closed set of results a node phase may return.
type OutcomeKind string

const (
	// OutcomeContinue advances immediately via next[Output], no round trip.
	OutcomeContinue OutcomeKind = "continue"
	// OutcomeSuspendForUI persists the session at the current node and
	// returns a challenge screen to the caller.
	OutcomeSuspendForUI OutcomeKind = "suspend_ui"
	// OutcomeSuspendForAsync persists the session plus a single-use
	// continuation ticket, awaiting an external event.
	OutcomeSuspendForAsync OutcomeKind = "suspend_async"
	// OutcomeReject stays at the current node and surfaces an input error.
	OutcomeReject OutcomeKind = "reject"
	// OutcomeSuccess completes the session and triggers token issuance.
	OutcomeSuccess OutcomeKind = "success"
	// OutcomeFailure fails the session terminally.
	OutcomeFailure OutcomeKind = "failure"
)

// Outcome is the value a node phase returns to the executor. Only the
// fields relevant to its Kind are set; use the constructors below.
type Outcome struct {
	Kind OutcomeKind

	// Continue
	Output string

	// SuspendForUI
	Screen    string
	Challenge map[string]any

	// SuspendForAsync
	ActionType string
	Payload    map[string]any
	ActionTTL  time.Duration

	// Reject
	Error string

	// Success
	UserID string

	// Failure
	Reason string
}

// ContinueTo advances through the named output handle.
func ContinueTo(output string) Outcome {
	return Outcome{Kind: OutcomeContinue, Output: output}
}

// SuspendForUI pauses for caller input, rendering the named screen with the
// given challenge payload.
func SuspendForUI(screen string, challenge map[string]any) Outcome {
	return Outcome{Kind: OutcomeSuspendForUI, Screen: screen, Challenge: challenge}
}

// SuspendForAsync pauses awaiting an external event; the executor mints a
// single-use continuation ticket of the given type and TTL.
func SuspendForAsync(actionType string, payload map[string]any, ttl time.Duration) Outcome {
	return Outcome{Kind: OutcomeSuspendForAsync, ActionType: actionType, Payload: payload, ActionTTL: ttl}
}

// Reject keeps the session at the current node and surfaces an input error
// for the caller to re-render the same screen.
func Reject(message string) Outcome {
	return Outcome{Kind: OutcomeReject, Error: message}
}

// Success terminates the flow, authenticating the given user.
func Success(userID string) Outcome {
	return Outcome{Kind: OutcomeSuccess, UserID: userID}
}

// Failure terminates the flow with a denial.
func Failure(reason string) Outcome {
	return Outcome{Kind: OutcomeFailure, Reason: reason}
}
