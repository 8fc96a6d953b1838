// Package registry provides the node-type catalog for flow compilation and
// execution. It is constructed once at startup and treated as immutable
// afterwards, so the compiler and executor stay pure functions of their
// inputs.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/gatehouse-id/gatehouse/pkg/models"
	"github.com/gatehouse-id/gatehouse/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

// Definition is what the compiler needs to know about a node kind.
type Definition struct {
	StepType models.StepType
	Metadata models.NodeMetadata
}

type Registry struct {
	logger        *slog.Logger
	deps          protocol.Dependencies
	nodeFactories map[string]protocol.NodeFactory
}

func NewRegistry(logger *slog.Logger, deps protocol.Dependencies) *Registry {
	deps.Logger = logger

	return &Registry{
		logger:        logger,
		deps:          deps,
		nodeFactories: make(map[string]protocol.NodeFactory),
	}
}

// RegisterNode registers a node kind factory. Later registrations with the
// same id replace earlier ones.
func (r *Registry) RegisterNode(factory protocol.NodeFactory) {
	r.nodeFactories[factory.ID()] = factory
}

// Definition resolves a node-type id. An unknown id is a hard error: the
// registry is the single source of truth for which kinds may appear in a
// graph.
func (r *Registry) Definition(nodeType string) (Definition, error) {
	factory, ok := r.nodeFactories[nodeType]
	if !ok {
		return Definition{}, fmt.Errorf("unknown node type: %s", nodeType)
	}

	return Definition{StepType: factory.StepType(), Metadata: factory.Metadata()}, nil
}

// CreateNode instantiates the lifecycle implementation for a compiled node.
func (r *Registry) CreateNode(ctx context.Context, nodeType, id string, config map[string]any) (protocol.Node, error) {
	factory, ok := r.nodeFactories[nodeType]
	if !ok {
		return nil, fmt.Errorf("unknown node type: %s", nodeType)
	}

	return factory.Create(ctx, id, config, r.deps)
}

// ListMetadata returns editor metadata for every registered node kind,
// ordered by id for stable output.
func (r *Registry) ListMetadata() []models.NodeMetadata {
	out := make([]models.NodeMetadata, 0, len(r.nodeFactories))
	for _, factory := range r.nodeFactories {
		out = append(out, factory.Metadata())
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

// ValidateConfig checks a node config against the kind's declared JSON
// schema. This is advisory for the editor only; the compiler never calls it.
func (r *Registry) ValidateConfig(nodeType string, config map[string]any) error {
	factory, ok := r.nodeFactories[nodeType]
	if !ok {
		return fmt.Errorf("unknown node type: %s", nodeType)
	}

	schema := factory.Metadata().ConfigSchema
	if schema == nil {
		return nil
	}

	if config == nil {
		config = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", nodeType, err)
	}

	if !result.Valid() {
		return fmt.Errorf("invalid config for %s: %s", nodeType, result.Errors()[0].String())
	}

	return nil
}

// HealthCheck reports whether the registry has any node kinds to offer.
func (r *Registry) HealthCheck() (string, bool) {
	if len(r.nodeFactories) == 0 {
		return "No node types registered", false
	}

	return fmt.Sprintf("%d node types registered", len(r.nodeFactories)), true
}
