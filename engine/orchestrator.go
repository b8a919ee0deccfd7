package engine

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/voxhire/interviewd/domain"
	"github.com/voxhire/interviewd/llm"
)

// historyWindow limits how many prior turns are passed to the question
// generator.
const historyWindow = 6

// NextAction names the orchestrator's decision after an answer is scored.
type NextAction string

const (
	ActionFollowup     NextAction = "followup"
	ActionNextQuestion NextAction = "next_question"
)

// TurnResult describes the outcome of processing one answer.
type TurnResult struct {
	Evaluation    *domain.AnswerEvaluation
	NeedsFollowup bool
	NextAction    NextAction
	QualityScore  float64
}

// AnswerOutcome is the result of the full answer-handling sequence:
// evaluation plus the next question, or completion.
type AnswerOutcome struct {
	Evaluation    *domain.AnswerEvaluation
	NextQuestion  *llm.Question
	IsFollowup    bool
	QuestionIndex int
	Complete      bool
	Final         *domain.FinalEvaluation
}

// Orchestrator drives one interview session: question flow, difficulty
// ramping, follow-up branching, and final evaluation. It holds no
// internal locking; a session's inbound messages must be handled one at
// a time in arrival order.
type Orchestrator struct {
	session     *domain.Session
	machine     *StateMachine
	interviewer llm.Interviewer

	// Conversation memory, private to the orchestrator.
	history         []llm.Turn
	answerBuffer    string
	pendingFollowup bool
	weakAreas       []string
	strengths       []string
	difficulty      domain.Difficulty
	difficultyLog   []domain.Difficulty
}

// NewOrchestrator creates the orchestrator owning the given session.
func NewOrchestrator(session *domain.Session, interviewer llm.Interviewer) *Orchestrator {
	return &Orchestrator{
		session:     session,
		machine:     NewStateMachine(),
		interviewer: interviewer,
		difficulty:  domain.DifficultyEasy,
	}
}

// Session returns the session owned by this orchestrator.
func (o *Orchestrator) Session() *domain.Session {
	return o.session
}

// Machine exposes the state machine for diagnostics.
func (o *Orchestrator) Machine() *StateMachine {
	return o.machine
}

// TryTransition attempts a state transition, logging and swallowing
// violations. The transition log is diagnostic, not safety-critical;
// session-level control flow stays authoritative.
func (o *Orchestrator) TryTransition(target domain.InterviewState) {
	if err := o.machine.TransitionTo(target); err != nil {
		log.Printf("WARN: session %s: %v, continuing", o.session.SessionID, err)
	}
}

// CurrentDifficulty returns the difficulty the next original question
// will be generated at.
func (o *Orchestrator) CurrentDifficulty() domain.Difficulty {
	return o.difficulty
}

// DifficultyFor returns the target difficulty for 1-based question n of
// total: first 30% easy, next 40% medium, last 30% hard.
func DifficultyFor(n, total int) domain.Difficulty {
	switch {
	case float64(n) <= float64(total)*0.3:
		return domain.DifficultyEasy
	case float64(n) <= float64(total)*0.7:
		return domain.DifficultyMedium
	default:
		return domain.DifficultyHard
	}
}

// GenerateFirstQuestion produces the opening question and starts the
// question flow.
func (o *Orchestrator) GenerateFirstQuestion(ctx context.Context) (*llm.Question, error) {
	o.TryTransition(domain.StateAskQuestion)

	q, err := o.interviewer.GenerateFirstQuestion(ctx, o.session.JobRole, o.session.JobDescription)
	if err != nil {
		return nil, &domain.CollaboratorError{Collaborator: "llm", Op: "generate_first_question", Err: err}
	}

	o.session.Questions = append(o.session.Questions, q.Text)
	o.session.CurrentQuestionNumber = 1
	o.session.State = domain.StateAskQuestion
	o.session.UpdatedAt = time.Now().UTC()
	o.difficulty = domain.DifficultyEasy
	o.difficultyLog = append(o.difficultyLog, o.difficulty)

	log.Printf("Generated first question for session %s", o.session.SessionID)
	return q, nil
}

// GenerateNextQuestion produces the next original question, ramping
// difficulty. Returns (nil, nil) when the question budget is exhausted.
func (o *Orchestrator) GenerateNextQuestion(ctx context.Context) (*llm.Question, error) {
	if o.session.CurrentQuestionNumber >= o.session.QuestionCount {
		log.Printf("Reached question limit for session %s", o.session.SessionID)
		return nil, nil
	}

	next := o.session.CurrentQuestionNumber + 1
	o.difficulty = DifficultyFor(next, o.session.QuestionCount)

	o.TryTransition(domain.StateAskQuestion)

	q, err := o.interviewer.GenerateNextQuestion(
		ctx,
		o.session.JobRole,
		o.session.JobDescription,
		o.recentHistory(),
		o.session.CurrentQuestionNumber,
		o.session.QuestionCount,
		o.difficulty,
	)
	if err != nil {
		return nil, &domain.CollaboratorError{Collaborator: "llm", Op: "generate_next_question", Err: err}
	}

	o.session.Questions = append(o.session.Questions, q.Text)
	o.session.CurrentQuestionNumber = next
	o.session.State = domain.StateAskQuestion
	o.session.UpdatedAt = time.Now().UTC()
	o.pendingFollowup = false
	o.difficultyLog = append(o.difficultyLog, o.difficulty)

	log.Printf("Generated question %d (difficulty: %s) for session %s",
		next, o.difficulty, o.session.SessionID)
	return q, nil
}

// AddTranscriptChunk folds a transcript fragment into the answer buffer.
// Interim fragments replace the buffer; final fragments append.
func (o *Orchestrator) AddTranscriptChunk(transcript string, isFinal bool) {
	if isFinal {
		o.answerBuffer = strings.TrimSpace(o.answerBuffer + " " + transcript)
	} else {
		o.answerBuffer = transcript
	}
}

// AnswerBuffer returns the transcript accumulated for the answer in
// progress.
func (o *Orchestrator) AnswerBuffer() string {
	return o.answerBuffer
}

// ProcessAnswer evaluates the buffered answer and decides the next
// action. With no buffered answer it is a no-op signalling advancement.
// Conversation memory and the evaluation history are only updated after
// the evaluator call succeeds.
func (o *Orchestrator) ProcessAnswer(ctx context.Context) (*TurnResult, error) {
	if o.answerBuffer == "" || len(o.session.Questions) == 0 {
		log.Printf("No answer to process for session %s", o.session.SessionID)
		return &TurnResult{NextAction: ActionNextQuestion}, nil
	}

	question := o.session.Questions[len(o.session.Questions)-1]
	answer := o.answerBuffer

	result, err := o.interviewer.EvaluateAnswer(ctx, question, answer, o.session.JobRole, o.session.JobDescription)
	if err != nil {
		return nil, &domain.CollaboratorError{Collaborator: "llm", Op: "evaluate_answer", Err: err}
	}

	eval := domain.AnswerEvaluation{
		QuestionNumber: o.session.CurrentQuestionNumber,
		Question:       question,
		Answer:         answer,
		Scores:         NormalizeScores(result.Scores),
		NeedsFollowup:  result.NeedsFollowup,
		Weaknesses:     result.Weaknesses,
		Strengths:      result.Strengths,
		Reasoning:      result.Reasoning,
		Timestamp:      time.Now().UTC(),
	}

	o.session.EvaluationHistory = append(o.session.EvaluationHistory, eval)
	o.session.Answers = append(o.session.Answers, answer)
	o.session.UpdatedAt = time.Now().UTC()
	o.history = append(o.history, llm.Turn{Question: question, Answer: answer})
	o.weakAreas = append(o.weakAreas, result.Weaknesses...)
	o.strengths = append(o.strengths, result.Strengths...)

	// At most one follow-up per original question.
	needsFollowup := result.NeedsFollowup && !o.pendingFollowup

	o.TryTransition(domain.StateEvaluate)
	o.answerBuffer = ""

	action := ActionNextQuestion
	if needsFollowup {
		action = ActionFollowup
	}

	stored := &o.session.EvaluationHistory[len(o.session.EvaluationHistory)-1]
	log.Printf("Processed answer for session %s: score=%.1f, followup=%v",
		o.session.SessionID, stored.AverageScore(), needsFollowup)

	return &TurnResult{
		Evaluation:    stored,
		NeedsFollowup: needsFollowup,
		NextAction:    action,
		QualityScore:  stored.AverageScore(),
	}, nil
}

// GenerateFollowup produces a follow-up probing the weaknesses of the
// answer just scored. Follow-ups are appended to the question list but
// never advance the main question counter.
func (o *Orchestrator) GenerateFollowup(ctx context.Context, eval *domain.AnswerEvaluation) (*llm.Question, error) {
	if len(o.session.Questions) == 0 || eval == nil {
		return nil, nil
	}

	q, err := o.interviewer.GenerateFollowup(ctx, eval.Question, eval.Answer, eval.Weaknesses, o.session.JobRole)
	if err != nil {
		return nil, &domain.CollaboratorError{Collaborator: "llm", Op: "generate_followup", Err: err}
	}

	o.session.Questions = append(o.session.Questions, q.Text)
	o.session.UpdatedAt = time.Now().UTC()
	o.pendingFollowup = true

	o.TryTransition(domain.StateFollowup)
	o.TryTransition(domain.StateAskQuestion)
	o.session.State = domain.StateAskQuestion

	log.Printf("Generated follow-up question for session %s", o.session.SessionID)
	return q, nil
}

// ShouldContinue reports whether more original questions remain.
func (o *Orchestrator) ShouldContinue() bool {
	return o.session.CurrentQuestionNumber < o.session.QuestionCount
}

// CompleteInterview drives the machine to COMPLETED and computes the
// final evaluation exactly once. Rejected completion transitions are
// warnings, never fatal: completion must always succeed for the caller.
func (o *Orchestrator) CompleteInterview() *domain.FinalEvaluation {
	if o.session.FinalEvaluation != nil {
		return o.session.FinalEvaluation
	}

	if o.machine.Current() != domain.StateFinalEvaluation {
		o.TryTransition(domain.StateFinalEvaluation)
	}
	o.TryTransition(domain.StateReport)
	o.TryTransition(domain.StateCompleted)

	var final domain.FinalEvaluation
	if len(o.session.EvaluationHistory) > 0 {
		final = Finalize(o.session.EvaluationHistory, o.session.QuestionCount)
	} else {
		// No scored answers: report zero rather than aggregating nothing.
		final = domain.FinalEvaluation{
			OverallScore:      0.0,
			AggregatedMetrics: Aggregate(nil, nil),
			Verdict:           VerdictFor(0.0),
			Insights:          domain.Insights{},
			TotalQuestions:    o.session.QuestionCount,
		}
	}
	final.Timestamp = time.Now().UTC()
	final.TotalAnswers = len(o.session.Answers)

	o.session.FinalEvaluation = &final
	o.session.State = domain.StateCompleted
	o.session.UpdatedAt = time.Now().UTC()

	log.Printf("Interview completed for session %s: overall=%.1f, verdict=%s",
		o.session.SessionID, final.OverallScore, final.Verdict)
	return &final
}

// HandleAnswer runs the full per-answer sequence: evaluate, branch to a
// follow-up or the next question, or complete the interview when the
// budget is exhausted.
func (o *Orchestrator) HandleAnswer(ctx context.Context, answer string) (*AnswerOutcome, error) {
	if answer != "" {
		o.answerBuffer = answer
	}

	turn, err := o.ProcessAnswer(ctx)
	if err != nil {
		return nil, err
	}

	outcome := &AnswerOutcome{
		Evaluation:    turn.Evaluation,
		QuestionIndex: o.session.CurrentQuestionNumber,
	}

	if turn.NeedsFollowup {
		q, err := o.GenerateFollowup(ctx, turn.Evaluation)
		if err != nil {
			// Degrade to the regular flow rather than losing the turn.
			log.Printf("WARN: follow-up generation failed for session %s: %v", o.session.SessionID, err)
		} else if q != nil {
			outcome.NextQuestion = q
			outcome.IsFollowup = true
			outcome.QuestionIndex = o.session.CurrentQuestionNumber
			return outcome, nil
		}
	}

	if o.ShouldContinue() {
		q, err := o.GenerateNextQuestion(ctx)
		if err != nil {
			return nil, err
		}
		if q != nil {
			outcome.NextQuestion = q
			outcome.QuestionIndex = o.session.CurrentQuestionNumber
			return outcome, nil
		}
	}

	outcome.Complete = true
	outcome.Final = o.CompleteInterview()
	return outcome, nil
}

// ContextSummary reports conversation-memory diagnostics.
func (o *Orchestrator) ContextSummary() map[string]interface{} {
	return map[string]interface{}{
		"difficulty_progression": o.difficultyLog,
		"weak_areas":             dedupeCapped(o.weakAreas, len(o.weakAreas)),
		"strengths":              dedupeCapped(o.strengths, len(o.strengths)),
		"transition_history":     o.machine.History(),
	}
}

func (o *Orchestrator) recentHistory() []llm.Turn {
	if len(o.history) <= historyWindow {
		return o.history
	}
	return o.history[len(o.history)-historyWindow:]
}
