package domain

import "time"

// Session represents one interview instance from setup to completion.
// It is owned by the orchestrator created for it; the hub holds a
// reference but never mutates session content directly.
type Session struct {
	SessionID      string         `json:"session_id"`
	State          InterviewState `json:"state"`
	JobRole        string         `json:"job_role"`
	JobDescription string         `json:"job_description"`
	QuestionCount  int            `json:"question_count"`

	// CurrentQuestionNumber counts original questions only; follow-ups
	// never advance it.
	CurrentQuestionNumber int `json:"current_question_number"`

	// Questions includes follow-ups; Answers is parallel and may be
	// shorter by one mid-turn.
	Questions []string `json:"questions"`
	Answers   []string `json:"answers"`

	EvaluationHistory []AnswerEvaluation `json:"evaluation_history"`
	FinalEvaluation   *FinalEvaluation   `json:"final_evaluation,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates a session in the SETUP state.
func NewSession(sessionID, jobRole, jobDescription string, questionCount int) *Session {
	now := time.Now().UTC()
	return &Session{
		SessionID:      sessionID,
		State:          StateSetup,
		JobRole:        jobRole,
		JobDescription: jobDescription,
		QuestionCount:  questionCount,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// AnswerEvaluation is one scored answer. Scores always holds every
// metric key with a value clamped into [0,10].
type AnswerEvaluation struct {
	QuestionNumber int                `json:"question_number"`
	Question       string             `json:"question"`
	Answer         string             `json:"answer"`
	Scores         map[string]float64 `json:"scores"`
	NeedsFollowup  bool               `json:"needs_followup"`
	Weaknesses     []string           `json:"weaknesses"`
	Strengths      []string           `json:"strengths"`
	Reasoning      string             `json:"reasoning,omitempty"`
	Timestamp      time.Time          `json:"timestamp"`
}

// AverageScore returns the unweighted mean across all metrics.
func (e *AnswerEvaluation) AverageScore() float64 {
	if len(e.Scores) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, s := range e.Scores {
		sum += s
	}
	return sum / float64(len(e.Scores))
}

// MetricScore returns the score for a metric, 0.0 if absent.
func (e *AnswerEvaluation) MetricScore(metric string) float64 {
	return e.Scores[metric]
}

// Insights summarizes the evaluation history for reporting.
type Insights struct {
	StrongestMetric  string   `json:"strongest_metric"`
	WeakestMetric    string   `json:"weakest_metric"`
	CommonWeaknesses []string `json:"common_weaknesses"`
	CommonStrengths  []string `json:"common_strengths"`
	TotalAnswers     int      `json:"total_answers"`
	AverageScore     float64  `json:"average_score"`
}

// FinalEvaluation is the session-level result. Created exactly once at
// completion, immutable afterward.
type FinalEvaluation struct {
	OverallScore      float64            `json:"overall_score"`
	AggregatedMetrics map[string]float64 `json:"aggregated_metrics"`
	Verdict           Verdict            `json:"verdict"`
	Insights          Insights           `json:"insights"`
	TotalQuestions    int                `json:"total_questions"`
	TotalAnswers      int                `json:"total_answers"`
	Timestamp         time.Time          `json:"timestamp"`
}
