// Package report builds dashboard data and PDF reports from completed
// interview sessions.
package report

import (
	"fmt"

	"github.com/voxhire/interviewd/domain"
)

// suggestionThreshold is the aggregated score below which a metric gets
// an improvement suggestion.
const suggestionThreshold = 6.0

// Dashboard is the full JSON payload served for a session's report view.
type Dashboard struct {
	SessionInfo       SessionInfo             `json:"session_info"`
	FinalEvaluation   *domain.FinalEvaluation `json:"final_evaluation,omitempty"`
	EvaluationHistory []QuestionScore         `json:"evaluation_history"`
	QAPairs           []QAPair                `json:"qa_pairs"`
	Charts            Charts                  `json:"charts"`
	Suggestions       []string                `json:"suggestions"`
}

// SessionInfo is the header block of the dashboard.
type SessionInfo struct {
	SessionID     string                `json:"session_id"`
	JobRole       string                `json:"job_role"`
	State         domain.InterviewState `json:"state"`
	QuestionCount int                   `json:"question_count"`
	CreatedAt     string                `json:"created_at"`
}

// QuestionScore is the per-question score row used by the line chart and
// the history table.
type QuestionScore struct {
	QuestionNumber int                `json:"question_number"`
	Scores         map[string]float64 `json:"scores"`
	Overall        float64            `json:"overall"`
	NeedsFollowup  bool               `json:"needs_followup"`
}

// QAPair pairs a question with the answer given to it.
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Charts holds the pre-shaped data series for the dashboard front end.
type Charts struct {
	Radar RadarChart `json:"radar"`
	Bar   BarChart   `json:"bar"`
	Line  LineChart  `json:"line"`
}

// RadarChart plots aggregated metric scores on one axis per metric.
type RadarChart struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// BarChart compares aggregated metric scores against the hire threshold.
type BarChart struct {
	Labels    []string  `json:"labels"`
	Values    []float64 `json:"values"`
	Threshold float64   `json:"threshold"`
}

// LineChart tracks per-answer overall score over the interview.
type LineChart struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// BuildDashboard assembles the dashboard payload from a session. The
// session may be in progress; chart blocks derived from the final
// evaluation are zeroed until it exists.
func BuildDashboard(session *domain.Session) *Dashboard {
	d := &Dashboard{
		SessionInfo: SessionInfo{
			SessionID:     session.SessionID,
			JobRole:       session.JobRole,
			State:         session.State,
			QuestionCount: session.QuestionCount,
			CreatedAt:     session.CreatedAt.Format("2006-01-02 15:04:05"),
		},
		FinalEvaluation: session.FinalEvaluation,
	}

	d.EvaluationHistory = make([]QuestionScore, 0, len(session.EvaluationHistory))
	lineLabels := make([]string, 0, len(session.EvaluationHistory))
	lineValues := make([]float64, 0, len(session.EvaluationHistory))
	for i, eval := range session.EvaluationHistory {
		overall := eval.AverageScore()
		d.EvaluationHistory = append(d.EvaluationHistory, QuestionScore{
			QuestionNumber: eval.QuestionNumber,
			Scores:         eval.Scores,
			Overall:        overall,
			NeedsFollowup:  eval.NeedsFollowup,
		})
		lineLabels = append(lineLabels, fmt.Sprintf("A%d", i+1))
		lineValues = append(lineValues, overall)
	}
	d.Charts.Line = LineChart{Labels: lineLabels, Values: lineValues}

	d.QAPairs = make([]QAPair, 0, len(session.Questions))
	for i, q := range session.Questions {
		pair := QAPair{Question: q}
		if i < len(session.Answers) {
			pair.Answer = session.Answers[i]
		}
		d.QAPairs = append(d.QAPairs, pair)
	}

	aggregated := map[string]float64{}
	if session.FinalEvaluation != nil {
		aggregated = session.FinalEvaluation.AggregatedMetrics
	}
	values := make([]float64, len(domain.Metrics))
	for i, metric := range domain.Metrics {
		values[i] = aggregated[metric]
	}
	d.Charts.Radar = RadarChart{Labels: domain.Metrics, Values: values}
	d.Charts.Bar = BarChart{Labels: domain.Metrics, Values: values, Threshold: suggestionThreshold}

	if session.FinalEvaluation != nil {
		d.Suggestions = buildSuggestions(session.FinalEvaluation.AggregatedMetrics)
	}

	return d
}

// buildSuggestions produces one improvement line per weak metric, in
// canonical metric order.
func buildSuggestions(aggregated map[string]float64) []string {
	templates := map[string]string{
		domain.MetricTechnicalDepth:  "Deepen technical fundamentals: practice explaining internals, trade-offs, and failure modes of systems you have worked with.",
		domain.MetricCommunication:   "Work on structuring answers: lead with the conclusion, then support it, and avoid trailing off mid-thought.",
		domain.MetricConfidence:      "Build confidence by rehearsing answers aloud; commit to a position before hedging it.",
		domain.MetricLogicalThinking: "Practice decomposing problems step by step and stating your assumptions before diving into a solution.",
		domain.MetricProblemSolving:  "Drill open-ended design and debugging exercises; narrate alternatives you considered and why you rejected them.",
		domain.MetricCultureFit:      "Prepare concrete stories about collaboration, feedback, and conflict resolution from past projects.",
	}

	var suggestions []string
	for _, metric := range domain.Metrics {
		if aggregated[metric] < suggestionThreshold {
			suggestions = append(suggestions, templates[metric])
		}
	}
	return suggestions
}
