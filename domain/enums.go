// Package domain defines the core domain models for the interview engine.
package domain

// InterviewState represents a phase of the interview session lifecycle.
type InterviewState string

const (
	StateSetup           InterviewState = "SETUP"
	StateAskQuestion     InterviewState = "ASK_QUESTION"
	StatePlayPrompt      InterviewState = "PLAY_PROMPT"
	StateListen          InterviewState = "LISTEN"
	StateSilenceDetect   InterviewState = "SILENCE_DETECT"
	StateTranscribe      InterviewState = "TRANSCRIBE"
	StateEvaluate        InterviewState = "EVALUATE"
	StateFollowup        InterviewState = "FOLLOWUP"
	StateNextQuestion    InterviewState = "NEXT_QUESTION"
	StateFinalEvaluation InterviewState = "FINAL_EVALUATION"
	StateReport          InterviewState = "REPORT"
	StateCompleted       InterviewState = "COMPLETED"
	StateError           InterviewState = "ERROR"
)

// Difficulty represents a question difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Verdict is the three-way hire recommendation.
type Verdict string

const (
	VerdictHire       Verdict = "Hire"
	VerdictBorderline Verdict = "Borderline"
	VerdictNoHire     Verdict = "No-Hire"
)

// Metric names for answer evaluation. Metrics is the fixed enumeration
// order used everywhere scores are aggregated or tie-broken.
const (
	MetricTechnicalDepth  = "technical_depth"
	MetricCommunication   = "communication"
	MetricConfidence      = "confidence"
	MetricLogicalThinking = "logical_thinking"
	MetricProblemSolving  = "problem_solving"
	MetricCultureFit      = "culture_fit"
)

// Metrics lists all evaluation metrics in canonical order.
var Metrics = []string{
	MetricTechnicalDepth,
	MetricCommunication,
	MetricConfidence,
	MetricLogicalThinking,
	MetricProblemSolving,
	MetricCultureFit,
}
