// Package policy decides whether an interview session may be admitted.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Engine is the OPA admission policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.interview_policy.decision"),
		rego.Module("interview_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// AdmissionInput is the input document for a START_INTERVIEW decision.
type AdmissionInput struct {
	JobRole       string `json:"job_role"`
	QuestionCount int    `json:"question_count"`
}

// Evaluate checks the admission policy. Returns the decision ("allow" or
// "block") and an optional reason.
func (e *Engine) Evaluate(ctx context.Context, input AdmissionInput) (string, string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(map[string]interface{}{
		"job_role":       input.JobRole,
		"question_count": input.QuestionCount,
	}))
	if err != nil {
		return "", "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return "allow", "default", nil
	}

	val := results[0].Expressions[0].Value
	if s, ok := val.(string); ok {
		return s, "", nil
	}
	if obj, ok := val.(map[string]interface{}); ok {
		decision, _ := obj["decision"].(string)
		reason, _ := obj["reason"].(string)
		if decision != "" {
			return decision, reason, nil
		}
	}

	return "allow", "unexpected return type", nil
}

// DefaultPolicy is the default admission policy content.
const DefaultPolicy = `
package interview_policy

default decision = "allow"

# Reject sessions with an out-of-bounds question budget.
decision = "block" {
	input.question_count < 1
}

decision = "block" {
	input.question_count > 20
}

# Reject sessions without a role to interview for.
decision = "block" {
	input.job_role == ""
}
`
