package policy

import (
	"context"
	"testing"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(context.Background(), DefaultPolicy)
	if err != nil {
		t.Fatalf("failed to create policy engine: %v", err)
	}
	return engine
}

func TestDefaultPolicyAllows(t *testing.T) {
	engine := newTestEngine(t)

	decision, _, err := engine.Evaluate(context.Background(), AdmissionInput{
		JobRole:       "Backend Engineer",
		QuestionCount: 5,
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if decision != "allow" {
		t.Fatalf("decision = %q, want allow", decision)
	}
}

func TestDefaultPolicyBlocks(t *testing.T) {
	cases := []struct {
		name  string
		input AdmissionInput
	}{
		{"zero questions", AdmissionInput{JobRole: "SRE", QuestionCount: 0}},
		{"too many questions", AdmissionInput{JobRole: "SRE", QuestionCount: 21}},
		{"empty role", AdmissionInput{JobRole: "", QuestionCount: 5}},
	}

	engine := newTestEngine(t)
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			decision, _, err := engine.Evaluate(context.Background(), c.input)
			if err != nil {
				t.Fatalf("Evaluate failed: %v", err)
			}
			if decision != "block" {
				t.Fatalf("decision = %q, want block", decision)
			}
		})
	}
}

func TestInvalidPolicyContent(t *testing.T) {
	if _, err := NewEngine(context.Background(), "this is not rego"); err == nil {
		t.Fatal("expected error for invalid policy")
	}
}
