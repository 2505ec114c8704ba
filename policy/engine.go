// Package policy gates guide invocations through an OPA policy. The model
// decides which guides to call; the policy decides which calls are allowed
// to execute.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Engine evaluates the guide policy.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.guide_policy.decision"),
		rego.Module("guide_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate checks the guide policy. Input carries guide_name, args, and
// companion_id. Returns "allow" or "block".
func (e *Engine) Evaluate(ctx context.Context, input interface{}) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return "allow", nil
	}
	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return "allow", nil
}

// DefaultPolicy allows every declared guide. Deployments can block guides
// by name, as the commented rule shows for intention relaying.
const DefaultPolicy = `
package guide_policy

default decision = "allow"

# Example: block intention creation for anonymous companions
# decision = "block" {
# 	input.guide_name == "createIntention"
# 	startswith(input.companion_id, "anon")
# }
decision = "block" {
	input.guide_name == "dangerous.command"
}
`
