package compiler

import (
	"sort"
	"strings"

	"github.com/gatehouse-id/gatehouse/pkg/models"
	"github.com/gatehouse-id/gatehouse/pkg/registry"
)

// Validate runs the structural checks on a raw graph before compilation:
// non-empty, every edge endpoint resolving to a declared node, exactly one
// entry point, every type known to the registry, and no non-terminal dead
// ends. It deliberately does not perform full cycle analysis on interior
// nodes; the executor's hop cap bounds those at runtime.
func Validate(nodes []models.GraphNode, edges []models.GraphEdge, reg *registry.Registry) error {
	if len(nodes) == 0 {
		return NewValidationError("flow cannot be empty")
	}

	ids := make(map[string]bool, len(nodes))

	for _, node := range nodes {
		ids[node.ID] = true
	}

	targets := make(map[string]bool, len(edges))
	sources := make(map[string]bool, len(edges))

	for _, edge := range edges {
		if !ids[edge.Source] {
			return NewValidationError("edge source references unknown node: %s", edge.Source)
		}

		if !ids[edge.Target] {
			return NewValidationError("edge target references unknown node: %s", edge.Target)
		}

		targets[edge.Target] = true
		sources[edge.Source] = true
	}

	starts := make([]string, 0, 1)

	for _, node := range nodes {
		if !targets[node.ID] {
			starts = append(starts, node.ID)
		}
	}

	if len(starts) == 0 {
		return NewValidationError("no start node detected: every node has an incoming edge (cycle)")
	}

	if len(starts) > 1 {
		sort.Strings(starts)

		return NewValidationError("ambiguous flow: multiple start nodes: %s", strings.Join(starts, ", "))
	}

	deadEnds := make([]string, 0)

	for _, node := range nodes {
		definition, err := reg.Definition(node.Type)
		if err != nil {
			return NewValidationError("unknown node type: %s", node.Type)
		}

		if definition.StepType != models.StepTypeTerminal && !sources[node.ID] {
			deadEnds = append(deadEnds, "dead end detected at node "+node.ID)
		}
	}

	if len(deadEnds) > 0 {
		return NewValidationError("%s", strings.Join(deadEnds, "; "))
	}

	return nil
}
