package models

// DefaultHandle is the output handle assigned to an edge whose sourceHandle
// is omitted by the editor.
const DefaultHandle = "default"

// GraphNode is the raw editor representation of a node. It exists only
// during compilation and is never persisted on its own.
type GraphNode struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Config map[string]any `json:"config"`
}

// GraphEdge is the raw editor representation of an edge between two nodes.
type GraphEdge struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
}
