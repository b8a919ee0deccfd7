package report

import (
	"testing"
	"time"

	"github.com/voxhire/interviewd/domain"
	"github.com/voxhire/interviewd/engine"
)

func completedSession() *domain.Session {
	session := domain.NewSession("s1", "Backend Engineer", "Build APIs", 2)
	session.Questions = []string{"q1", "q2"}
	session.Answers = []string{"a1", "a2"}
	session.CurrentQuestionNumber = 2
	session.EvaluationHistory = []domain.AnswerEvaluation{
		{
			QuestionNumber: 1, Question: "q1", Answer: "a1",
			Scores:     engine.NormalizeScores(map[string]float64{domain.MetricTechnicalDepth: 8}),
			Weaknesses: []string{"vague"}, Strengths: []string{"structured"},
			Timestamp: time.Now().UTC(),
		},
		{
			QuestionNumber: 2, Question: "q2", Answer: "a2",
			Scores:    engine.NormalizeScores(map[string]float64{domain.MetricTechnicalDepth: 6}),
			Timestamp: time.Now().UTC(),
		},
	}
	final := engine.Finalize(session.EvaluationHistory, session.QuestionCount)
	final.Timestamp = time.Now().UTC()
	session.FinalEvaluation = &final
	session.State = domain.StateCompleted
	return session
}

func TestBuildDashboard(t *testing.T) {
	session := completedSession()
	d := BuildDashboard(session)

	if d.SessionInfo.SessionID != "s1" || d.SessionInfo.JobRole != "Backend Engineer" {
		t.Fatalf("session info: %+v", d.SessionInfo)
	}
	if d.FinalEvaluation == nil {
		t.Fatal("final evaluation missing")
	}
	if len(d.EvaluationHistory) != 2 {
		t.Fatalf("history rows = %d", len(d.EvaluationHistory))
	}
	if len(d.QAPairs) != 2 || d.QAPairs[0].Answer != "a1" {
		t.Fatalf("qa pairs: %+v", d.QAPairs)
	}

	if len(d.Charts.Radar.Labels) != len(domain.Metrics) || len(d.Charts.Radar.Values) != len(domain.Metrics) {
		t.Fatalf("radar shape: %d labels, %d values", len(d.Charts.Radar.Labels), len(d.Charts.Radar.Values))
	}
	if len(d.Charts.Line.Values) != 2 {
		t.Fatalf("line points = %d", len(d.Charts.Line.Values))
	}
	if d.Charts.Bar.Threshold != suggestionThreshold {
		t.Fatalf("bar threshold = %v", d.Charts.Bar.Threshold)
	}
}

func TestBuildDashboardSuggestionsForWeakMetrics(t *testing.T) {
	session := completedSession()
	d := BuildDashboard(session)

	// Most metrics sit at the 5.0 midpoint default, below the 6.0
	// threshold, so suggestions must be present.
	if len(d.Suggestions) == 0 {
		t.Fatal("expected suggestions for weak metrics")
	}
}

func TestBuildDashboardInProgressSession(t *testing.T) {
	session := domain.NewSession("s2", "SRE", "", 3)
	d := BuildDashboard(session)

	if d.FinalEvaluation != nil {
		t.Fatal("no final evaluation expected")
	}
	if len(d.Suggestions) != 0 {
		t.Fatal("no suggestions before completion")
	}
	for _, v := range d.Charts.Radar.Values {
		if v != 0.0 {
			t.Fatalf("radar value %v before completion", v)
		}
	}
}

func TestGeneratePDF(t *testing.T) {
	session := completedSession()
	pdf, err := GeneratePDF(session)
	if err != nil {
		t.Fatalf("GeneratePDF failed: %v", err)
	}
	if len(pdf) == 0 {
		t.Fatal("empty pdf")
	}
	if string(pdf[:5]) != "%PDF-" {
		t.Fatalf("not a pdf header: %q", pdf[:5])
	}
}

func TestGeneratePDFWithoutFinalEvaluation(t *testing.T) {
	session := domain.NewSession("s3", "SRE", "", 3)
	pdf, err := GeneratePDF(session)
	if err != nil {
		t.Fatalf("GeneratePDF failed: %v", err)
	}
	if len(pdf) == 0 {
		t.Fatal("empty pdf")
	}
}
