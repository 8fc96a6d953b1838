// Package cmd provides common initialization functions for command-line
// applications.
package cmd

import (
	"log/slog"

	"github.com/gatehouse-id/gatehouse/pkg/protocol"
	"github.com/gatehouse-id/gatehouse/pkg/registry"
)

// NewRegistry builds the node-type registry with the built-in kinds and the
// given collaborators.
func NewRegistry(logger *slog.Logger, deps protocol.Dependencies) *registry.Registry {
	reg := registry.NewRegistry(logger, deps)
	reg.RegisterDefaultNodes()

	return reg
}
