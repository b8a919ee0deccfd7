package engine

import (
	"testing"

	"github.com/voxhire/interviewd/domain"
)

var allStates = []domain.InterviewState{
	domain.StateSetup,
	domain.StateAskQuestion,
	domain.StatePlayPrompt,
	domain.StateListen,
	domain.StateSilenceDetect,
	domain.StateTranscribe,
	domain.StateEvaluate,
	domain.StateFollowup,
	domain.StateNextQuestion,
	domain.StateFinalEvaluation,
	domain.StateReport,
	domain.StateCompleted,
	domain.StateError,
}

func TestStateMachineStartsAtSetup(t *testing.T) {
	m := NewStateMachine()
	if m.Current() != domain.StateSetup {
		t.Fatalf("expected SETUP, got %s", m.Current())
	}
	if m.IsTerminal() {
		t.Fatal("fresh machine should not be terminal")
	}
}

func TestStateMachineFullTransitionMatrix(t *testing.T) {
	allowed := func(from, to domain.InterviewState) bool {
		for _, s := range validTransitions[from] {
			if s == to {
				return true
			}
		}
		return false
	}

	for _, from := range allStates {
		for _, to := range allStates {
			m := NewStateMachine()
			m.current = from

			err := m.TransitionTo(to)
			if allowed(from, to) {
				if err != nil {
					t.Errorf("%s -> %s: expected success, got %v", from, to, err)
				}
				if m.Current() != to {
					t.Errorf("%s -> %s: current is %s", from, to, m.Current())
				}
			} else {
				if err == nil {
					t.Errorf("%s -> %s: expected rejection", from, to)
				}
				if m.Current() != from {
					t.Errorf("%s -> %s: rejected transition changed state to %s", from, to, m.Current())
				}
			}
		}
	}
}

func TestStateMachineInvalidTransitionError(t *testing.T) {
	m := NewStateMachine()
	err := m.TransitionTo(domain.StateEvaluate)
	if err == nil {
		t.Fatal("expected error")
	}
	ite, ok := err.(*domain.InvalidTransitionError)
	if !ok {
		t.Fatalf("expected *domain.InvalidTransitionError, got %T", err)
	}
	if ite.From != domain.StateSetup || ite.To != domain.StateEvaluate {
		t.Fatalf("unexpected error fields: %+v", ite)
	}
	if len(m.History()) != 0 {
		t.Fatal("rejected transition must not be logged")
	}
}

func TestStateMachineCompletedIsTerminal(t *testing.T) {
	m := NewStateMachine()
	m.current = domain.StateCompleted
	if !m.IsTerminal() {
		t.Fatal("COMPLETED should be terminal")
	}
	for _, to := range allStates {
		if err := m.TransitionTo(to); err == nil {
			t.Fatalf("COMPLETED -> %s should be rejected", to)
		}
	}
}

func TestStateMachineErrorRecovery(t *testing.T) {
	m := NewStateMachine()
	m.current = domain.StateError
	if err := m.TransitionTo(domain.StateSetup); err != nil {
		t.Fatalf("ERROR -> SETUP should be allowed: %v", err)
	}

	m.current = domain.StateError
	if err := m.TransitionTo(domain.StateCompleted); err != nil {
		t.Fatalf("ERROR -> COMPLETED should be allowed: %v", err)
	}
}

func TestStateMachineHistory(t *testing.T) {
	m := NewStateMachine()
	path := []domain.InterviewState{
		domain.StateAskQuestion,
		domain.StatePlayPrompt,
		domain.StateListen,
		domain.StateSilenceDetect,
		domain.StateTranscribe,
		domain.StateEvaluate,
	}
	for _, s := range path {
		if err := m.TransitionTo(s); err != nil {
			t.Fatalf("transition to %s failed: %v", s, err)
		}
	}

	history := m.History()
	if len(history) != len(path) {
		t.Fatalf("expected %d transitions, got %d", len(path), len(history))
	}
	if history[0].From != domain.StateSetup || history[0].To != domain.StateAskQuestion {
		t.Fatalf("unexpected first transition: %+v", history[0])
	}
	for i := 1; i < len(history); i++ {
		if history[i].From != history[i-1].To {
			t.Fatalf("transition log not contiguous at %d: %+v", i, history[i])
		}
	}

	// History returns a copy.
	history[0].To = domain.StateError
	if m.History()[0].To != domain.StateAskQuestion {
		t.Fatal("History must return a copy")
	}
}

func TestStateMachineTimeIn(t *testing.T) {
	m := NewStateMachine()
	if _, ok := m.TimeIn(domain.StateEvaluate); ok {
		t.Fatal("EVALUATE never entered")
	}
	if _, ok := m.TimeIn(domain.StateSetup); !ok {
		t.Fatal("SETUP entered at construction")
	}
}

func TestStateMachineReset(t *testing.T) {
	m := NewStateMachine()
	if err := m.TransitionTo(domain.StateAskQuestion); err != nil {
		t.Fatal(err)
	}
	m.Reset()
	if m.Current() != domain.StateSetup {
		t.Fatalf("expected SETUP after reset, got %s", m.Current())
	}
	if len(m.History()) != 0 {
		t.Fatal("reset must clear history")
	}
}
