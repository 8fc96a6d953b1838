package models

// NodeMetadata describes a registered node kind to the flow editor. It is
// derived from the registry at startup and never persisted.
type NodeMetadata struct {
	ID           string         `json:"id"`
	Category     StepType       `json:"category"`
	DisplayName  string         `json:"display_name"`
	Description  string         `json:"description"`
	Icon         string         `json:"icon"`
	ConfigSchema map[string]any `json:"config_schema"`
	Inputs       []string       `json:"inputs"`
	Outputs      []string       `json:"outputs"`
}
