// Package engine implements the interview session protocol engine:
// state machine, evaluation aggregation, and the per-session
// orchestrator control loop.
package engine

import (
	"time"

	"github.com/voxhire/interviewd/domain"
)

// validTransitions is the closed transition table. COMPLETED is terminal.
var validTransitions = map[domain.InterviewState][]domain.InterviewState{
	domain.StateSetup:         {domain.StateAskQuestion, domain.StateError},
	domain.StateAskQuestion:   {domain.StatePlayPrompt, domain.StateError},
	domain.StatePlayPrompt:    {domain.StateListen, domain.StateError},
	domain.StateListen:        {domain.StateSilenceDetect, domain.StateError},
	domain.StateSilenceDetect: {domain.StateTranscribe, domain.StateError},
	domain.StateTranscribe:    {domain.StateEvaluate, domain.StateError},
	domain.StateEvaluate: {
		domain.StateFollowup,
		domain.StateNextQuestion,
		domain.StateFinalEvaluation,
		domain.StateError,
	},
	domain.StateFollowup: {domain.StateAskQuestion, domain.StateError},
	domain.StateNextQuestion: {
		domain.StateAskQuestion,
		domain.StateFinalEvaluation,
		domain.StateError,
	},
	domain.StateFinalEvaluation: {domain.StateReport, domain.StateError},
	domain.StateReport:          {domain.StateCompleted, domain.StateError},
	domain.StateError:           {domain.StateSetup, domain.StateCompleted},
	domain.StateCompleted:       {},
}

// Transition is one entry in the append-only transition log.
type Transition struct {
	From      domain.InterviewState `json:"from"`
	To        domain.InterviewState `json:"to"`
	Timestamp time.Time             `json:"timestamp"`
}

// StateMachine enforces the legal sequence of interview phases. It has
// no knowledge of session content and is reusable across sessions. Not
// safe for concurrent use; a session's messages are handled one at a
// time.
type StateMachine struct {
	current    domain.InterviewState
	history    []Transition
	entryTimes map[domain.InterviewState]time.Time
}

// NewStateMachine creates a state machine starting at SETUP.
func NewStateMachine() *StateMachine {
	m := &StateMachine{
		current:    domain.StateSetup,
		entryTimes: make(map[domain.InterviewState]time.Time),
	}
	m.enterState(domain.StateSetup)
	return m
}

// Current returns the current state.
func (m *StateMachine) Current() domain.InterviewState {
	return m.current
}

// CanTransitionTo reports whether a transition to target is legal.
func (m *StateMachine) CanTransitionTo(target domain.InterviewState) bool {
	for _, t := range validTransitions[m.current] {
		if t == target {
			return true
		}
	}
	return false
}

// TransitionTo moves to target if legal. On violation it returns a
// *domain.InvalidTransitionError and leaves the current state unchanged.
func (m *StateMachine) TransitionTo(target domain.InterviewState) error {
	if !m.CanTransitionTo(target) {
		return &domain.InvalidTransitionError{From: m.current, To: target}
	}

	from := m.current
	m.current = target
	m.history = append(m.history, Transition{
		From:      from,
		To:        target,
		Timestamp: time.Now().UTC(),
	})
	m.enterState(target)
	return nil
}

func (m *StateMachine) enterState(state domain.InterviewState) {
	m.entryTimes[state] = time.Now().UTC()
}

// TimeIn returns how long ago the state was last entered, and whether it
// has been entered at all. Used for dwell-time diagnostics.
func (m *StateMachine) TimeIn(state domain.InterviewState) (time.Duration, bool) {
	entered, ok := m.entryTimes[state]
	if !ok {
		return 0, false
	}
	return time.Since(entered), true
}

// History returns a copy of the transition log.
func (m *StateMachine) History() []Transition {
	out := make([]Transition, len(m.history))
	copy(out, m.history)
	return out
}

// IsTerminal reports whether the machine is in COMPLETED or ERROR.
func (m *StateMachine) IsTerminal() bool {
	return m.current == domain.StateCompleted || m.current == domain.StateError
}

// Reset returns the machine to SETUP with an empty log.
func (m *StateMachine) Reset() {
	m.current = domain.StateSetup
	m.history = nil
	m.entryTimes = make(map[domain.InterviewState]time.Time)
	m.enterState(domain.StateSetup)
}
