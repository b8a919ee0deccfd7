package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/voxhire/interviewd/domain"
	"github.com/voxhire/interviewd/engine"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleSession(id string) *domain.Session {
	session := domain.NewSession(id, "Backend Engineer", "Build APIs", 3)
	session.State = domain.StateCompleted
	session.CurrentQuestionNumber = 3
	session.Questions = []string{"q1", "q2", "q3"}
	session.Answers = []string{"a1", "a2", "a3"}
	session.EvaluationHistory = []domain.AnswerEvaluation{
		{
			QuestionNumber: 1,
			Question:       "q1",
			Answer:         "a1",
			Scores: map[string]float64{
				domain.MetricTechnicalDepth: 8.0,
				domain.MetricCommunication:  7.0,
			},
			Weaknesses: []string{"vague"},
			Strengths:  []string{"structured"},
			Timestamp:  time.Now().UTC(),
		},
	}
	session.FinalEvaluation = &domain.FinalEvaluation{
		OverallScore:      7.2,
		AggregatedMetrics: map[string]float64{domain.MetricTechnicalDepth: 8.0},
		Verdict:           domain.VerdictBorderline,
		TotalQuestions:    3,
		TotalAnswers:      3,
		Timestamp:         time.Now().UTC(),
	}
	return session
}

func TestSQLiteStoreSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	session := sampleSession("s1")
	if err := s.SaveSession(ctx, session); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	got, err := s.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.JobRole != "Backend Engineer" || got.State != domain.StateCompleted {
		t.Fatalf("unexpected session: %+v", got)
	}
	if len(got.Questions) != 3 || len(got.Answers) != 3 {
		t.Fatalf("questions=%d answers=%d", len(got.Questions), len(got.Answers))
	}
	if len(got.EvaluationHistory) != 1 {
		t.Fatalf("evaluations = %d", len(got.EvaluationHistory))
	}
	if got.EvaluationHistory[0].Scores[domain.MetricTechnicalDepth] != 8.0 {
		t.Fatalf("score lost in round trip: %+v", got.EvaluationHistory[0].Scores)
	}
	if got.FinalEvaluation == nil || got.FinalEvaluation.Verdict != domain.VerdictBorderline {
		t.Fatalf("final evaluation lost: %+v", got.FinalEvaluation)
	}
}

func TestSQLiteStoreSaveSessionIsUpsert(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	session := domain.NewSession("s1", "SRE", "", 5)
	if err := s.SaveSession(ctx, session); err != nil {
		t.Fatal(err)
	}

	session.State = domain.StateCompleted
	session.CurrentQuestionNumber = 5
	if err := s.SaveSession(ctx, session); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetSession(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if got.State != domain.StateCompleted || got.CurrentQuestionNumber != 5 {
		t.Fatalf("upsert did not replace: %+v", got)
	}
}

func TestSQLiteStoreGetSessionNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.GetSession(ctx, "missing")
	var notFound *domain.SessionNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected *domain.SessionNotFoundError, got %v", err)
	}
}

func TestSQLiteStoreListSessions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, id := range []string{"s1", "s2", "s3"} {
		session := domain.NewSession(id, "SRE", "", 3)
		if err := s.SaveSession(ctx, session); err != nil {
			t.Fatal(err)
		}
	}

	sessions, err := s.ListSessions(ctx, 2)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
}

func TestSQLiteStoreTransitions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	session := domain.NewSession("s1", "SRE", "", 3)
	if err := s.SaveSession(ctx, session); err != nil {
		t.Fatal(err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	transitions := []engine.Transition{
		{From: domain.StateSetup, To: domain.StateAskQuestion, Timestamp: now},
		{From: domain.StateAskQuestion, To: domain.StatePlayPrompt, Timestamp: now.Add(time.Second)},
	}
	if err := s.SaveTransitions(ctx, "s1", transitions); err != nil {
		t.Fatalf("SaveTransitions failed: %v", err)
	}

	got, err := s.GetTransitions(ctx, "s1")
	if err != nil {
		t.Fatalf("GetTransitions failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 transitions, got %d", len(got))
	}
	if got[0].From != domain.StateSetup || got[0].To != domain.StateAskQuestion {
		t.Fatalf("unexpected first transition: %+v", got[0])
	}
	if got[1].To != domain.StatePlayPrompt {
		t.Fatalf("unexpected second transition: %+v", got[1])
	}
}

func TestSQLiteStoreSaveTransitionsEmpty(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	if err := s.SaveTransitions(ctx, "s1", nil); err != nil {
		t.Fatalf("empty save should be a no-op: %v", err)
	}
}
