package llm

import (
	"context"
	"fmt"

	"github.com/voxhire/interviewd/domain"
)

// MockClient is a deterministic Interviewer for tests and keyless dev
// runs.
type MockClient struct {
	// FollowupEvery triggers needs_followup on every Nth evaluation.
	// Zero disables follow-ups.
	FollowupEvery int
	// BaseScore is the score returned for every metric (default 7.0).
	BaseScore float64

	evalCount int
}

// NewMockClient creates a mock that never requests follow-ups.
func NewMockClient() *MockClient {
	return &MockClient{BaseScore: 7.0}
}

// GenerateFirstQuestion returns a fixed opening question.
func (m *MockClient) GenerateFirstQuestion(ctx context.Context, jobRole, jobDescription string) (*Question, error) {
	return &Question{
		Text:  fmt.Sprintf("Tell me about your background and what draws you to the %s role.", jobRole),
		Topic: "Introduction",
	}, nil
}

// GenerateNextQuestion returns a question derived from its position.
func (m *MockClient) GenerateNextQuestion(ctx context.Context, jobRole, jobDescription string, history []Turn, questionIndex, totalQuestions int, difficulty domain.Difficulty) (*Question, error) {
	return &Question{
		Text:  fmt.Sprintf("Question %d of %d (%s): describe a challenge relevant to the %s role and how you solved it.", questionIndex+1, totalQuestions, difficulty, jobRole),
		Topic: "Experience",
	}, nil
}

// GenerateFollowup returns a fixed probing question.
func (m *MockClient) GenerateFollowup(ctx context.Context, originalQuestion, answer string, weaknesses []string, jobRole string) (*Question, error) {
	return &Question{
		Text:  "Can you go deeper into the trade-offs you considered there?",
		Topic: "Deep Dive",
	}, nil
}

// EvaluateAnswer returns BaseScore for every metric.
func (m *MockClient) EvaluateAnswer(ctx context.Context, question, answer, jobRole, jobDescription string) (*EvaluationResult, error) {
	m.evalCount++

	score := m.BaseScore
	if score == 0 {
		score = 7.0
	}

	scores := make(map[string]float64, len(domain.Metrics))
	for _, metric := range domain.Metrics {
		scores[metric] = score
	}

	needsFollowup := m.FollowupEvery > 0 && m.evalCount%m.FollowupEvery == 0

	return &EvaluationResult{
		Scores:        scores,
		NeedsFollowup: needsFollowup,
		Weaknesses:    []string{"could use more concrete detail"},
		Strengths:     []string{"clear structure"},
		Reasoning:     "mock evaluation",
	}, nil
}
