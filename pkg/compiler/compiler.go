package compiler

import (
	"encoding/json"

	"github.com/gatehouse-id/gatehouse/pkg/models"
	"github.com/gatehouse-id/gatehouse/pkg/registry"
)

// unknownNodeType is assigned to raw nodes whose type key is absent. It is
// never registered, so such nodes fail validation with a clear message.
const unknownNodeType = "default"

type rawNode struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Config map[string]any `json:"config"`
	} `json:"data"`
}

type rawEdge struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle"`
}

type rawGraph struct {
	Nodes *[]rawNode `json:"nodes"`
	Edges *[]rawEdge `json:"edges"`
}

// Compile parses a raw graph document, validates it against the registry
// and assembles the execution plan. No partial result is ever produced: any
// failure leaves nothing behind.
func Compile(graphJSON []byte, reg *registry.Registry) (*models.ExecutionPlan, error) {
	var graph rawGraph

	err := json.Unmarshal(graphJSON, &graph)
	if err != nil {
		return nil, NewValidationError("malformed graph document: %v", err)
	}

	if graph.Nodes == nil {
		return nil, NewValidationError("missing nodes in graph definition")
	}

	if graph.Edges == nil {
		return nil, NewValidationError("missing edges in graph definition")
	}

	nodes := make([]models.GraphNode, 0, len(*graph.Nodes))

	for _, raw := range *graph.Nodes {
		nodeType := raw.Type
		if nodeType == "" {
			nodeType = unknownNodeType
		}

		config := raw.Data.Config
		if config == nil {
			config = map[string]any{}
		}

		nodes = append(nodes, models.GraphNode{ID: raw.ID, Type: nodeType, Config: config})
	}

	edges := make([]models.GraphEdge, 0, len(*graph.Edges))

	for _, raw := range *graph.Edges {
		handle := raw.SourceHandle
		if handle == "" {
			handle = models.DefaultHandle
		}

		edges = append(edges, models.GraphEdge{Source: raw.Source, Target: raw.Target, SourceHandle: handle})
	}

	err = Validate(nodes, edges, reg)
	if err != nil {
		return nil, err
	}

	adjacency := make(map[string]map[string]string)
	targets := make(map[string]bool)

	for _, edge := range edges {
		if adjacency[edge.Source] == nil {
			adjacency[edge.Source] = make(map[string]string)
		}

		adjacency[edge.Source][edge.SourceHandle] = edge.Target
		targets[edge.Target] = true
	}

	plan := &models.ExecutionPlan{
		Nodes: make(map[string]*models.ExecutionNode, len(nodes)),
	}

	for _, node := range nodes {
		if !targets[node.ID] {
			plan.StartNodeID = node.ID
		}

		definition, err := reg.Definition(node.Type)
		if err != nil {
			// Validate already proved every type resolves.
			return nil, err
		}

		next := adjacency[node.ID]
		if next == nil {
			next = map[string]string{}
		}

		plan.Nodes[node.ID] = &models.ExecutionNode{
			ID:       node.ID,
			Type:     node.Type,
			StepType: definition.StepType,
			Next:     next,
			Config:   node.Config,
		}
	}

	return plan, nil
}

// Marshal serializes a plan to its canonical byte form. encoding/json sorts
// map keys, so equal plans always serialize identically; this is what
// version checksums are computed over.
func Marshal(plan *models.ExecutionPlan) ([]byte, error) {
	return json.Marshal(plan)
}
