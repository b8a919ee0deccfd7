// Package llm provides the question-generation and answer-evaluation
// collaborators consumed by the interview engine.
package llm

import (
	"context"

	"github.com/voxhire/interviewd/domain"
)

// Question is a generated interview question.
type Question struct {
	Text  string `json:"text"`
	Topic string `json:"topic"`
}

// Turn is one completed question/answer exchange.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// EvaluationResult is the raw structured output of the answer evaluator.
// Scores may be partial or out of range; the engine normalizes them.
type EvaluationResult struct {
	Scores        map[string]float64 `json:"scores"`
	NeedsFollowup bool               `json:"needs_followup"`
	Weaknesses    []string           `json:"weaknesses"`
	Strengths     []string           `json:"strengths"`
	Reasoning     string             `json:"reasoning"`
}

// QuestionGenerator produces interview questions.
type QuestionGenerator interface {
	GenerateFirstQuestion(ctx context.Context, jobRole, jobDescription string) (*Question, error)
	GenerateNextQuestion(ctx context.Context, jobRole, jobDescription string, history []Turn, questionIndex, totalQuestions int, difficulty domain.Difficulty) (*Question, error)
	GenerateFollowup(ctx context.Context, originalQuestion, answer string, weaknesses []string, jobRole string) (*Question, error)
}

// AnswerEvaluator scores a candidate answer.
type AnswerEvaluator interface {
	EvaluateAnswer(ctx context.Context, question, answer, jobRole, jobDescription string) (*EvaluationResult, error)
}

// Interviewer is the full collaborator surface the orchestrator needs.
type Interviewer interface {
	QuestionGenerator
	AnswerEvaluator
}

// Ensure implementations satisfy the interface.
var (
	_ Interviewer = (*Client)(nil)
	_ Interviewer = (*MockClient)(nil)
)
