// Package condition provides the conditional branching logic node.
package condition

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gatehouse-id/gatehouse/pkg/models"
	"github.com/gatehouse-id/gatehouse/pkg/protocol"
)

const (
	OutputTrue  = "true"
	OutputFalse = "false"
)

// Supported comparison operators.
const (
	OperatorEquals      = "eq"
	OperatorNotEquals   = "neq"
	OperatorGreaterThan = "gt"
	OperatorLessThan    = "lt"
	OperatorContains    = "contains"
	OperatorExists      = "exists"
)

// ConditionNode reads a top-level session context variable, compares it to
// a configured value and routes through the true or false output.
type ConditionNode struct {
	protocol.BaseNode

	id       string
	variable string
	operator string
	value    any
}

func NewConditionNode(id string, config map[string]any) (*ConditionNode, error) {
	variable, ok := config["variable"].(string)
	if !ok || variable == "" {
		return nil, errors.New("missing required field 'variable'")
	}

	operator, ok := config["operator"].(string)
	if !ok || operator == "" {
		return nil, errors.New("missing required field 'operator'")
	}

	value, ok := config["value"]
	if !ok && operator != OperatorExists {
		return nil, errors.New("missing required field 'value'")
	}

	switch operator {
	case OperatorEquals, OperatorNotEquals, OperatorGreaterThan, OperatorLessThan, OperatorContains, OperatorExists:
	default:
		return nil, fmt.Errorf("unsupported operator: %s", operator)
	}

	return &ConditionNode{
		id:       id,
		variable: variable,
		operator: operator,
		value:    value,
	}, nil
}

func (n *ConditionNode) Execute(ctx context.Context, session *models.AuthSession) (protocol.Outcome, error) {
	actual, present := session.Get(n.variable)

	if n.evaluate(actual, present) {
		return protocol.ContinueTo(OutputTrue), nil
	}

	return protocol.ContinueTo(OutputFalse), nil
}

func (n *ConditionNode) evaluate(actual any, present bool) bool {
	switch n.operator {
	case OperatorExists:
		return present
	case OperatorEquals:
		return compareEqual(actual, n.value)
	case OperatorNotEquals:
		return !compareEqual(actual, n.value)
	case OperatorGreaterThan:
		a, aok := asFloat(actual)
		b, bok := asFloat(n.value)

		return aok && bok && a > b
	case OperatorLessThan:
		a, aok := asFloat(actual)
		b, bok := asFloat(n.value)

		return aok && bok && a < b
	case OperatorContains:
		a, aok := actual.(string)
		b, bok := n.value.(string)

		return aok && bok && strings.Contains(a, b)
	default:
		return false
	}
}

// compareEqual compares across the numeric representations JSON round-trips
// produce, falling back to direct comparison for everything else.
func compareEqual(a, b any) bool {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)

	if aok && bok {
		return af == bf
	}

	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
