// Package ws provides the WebSocket endpoint carrying the interview
// session protocol.
package ws

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/voxhire/interviewd/config"
	"github.com/voxhire/interviewd/domain"
	"github.com/voxhire/interviewd/engine"
	"github.com/voxhire/interviewd/hub"
	"github.com/voxhire/interviewd/llm"
	"github.com/voxhire/interviewd/policy"
	"github.com/voxhire/interviewd/protocol"
	"github.com/voxhire/interviewd/store"
	"github.com/voxhire/interviewd/tts"
)

// Server handles WebSocket connections for interview sessions. Each
// connection's messages are read and handled sequentially in its read
// loop, which serializes all work for a session ahead of the
// orchestrator.
type Server struct {
	cfg         *config.Config
	hub         *hub.Hub
	interviewer llm.Interviewer
	synthesizer tts.Synthesizer // nil disables TTS_AUDIO
	admission   *policy.Engine  // nil admits everything
	store       store.Store     // nil disables persistence
	upgrader    websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(cfg *config.Config, h *hub.Hub, interviewer llm.Interviewer, synthesizer tts.Synthesizer, admission *policy.Engine, st store.Store) *Server {
	return &Server{
		cfg:         cfg,
		hub:         h,
		interviewer: interviewer,
		synthesizer: synthesizer,
		admission:   admission,
		store:       st,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWebSocket handles WebSocket upgrade and connection lifecycle for
// GET /ws/interview/:session_id.
func (s *Server) HandleWebSocket(c echo.Context) error {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session_id is required")
	}

	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Printf("Failed to upgrade WebSocket: %v", err)
		return err
	}

	conn := s.hub.Connect(ws, sessionID)
	conn.SetReadLimit(s.cfg.MaxMessageSize)

	done := make(chan struct{})
	go s.pingLoop(conn, done)
	go s.readPump(conn, done)

	return nil
}

// readPump reads and handles messages from the connection one at a
// time, in arrival order.
func (s *Server) readPump(conn *hub.Connection, done chan struct{}) {
	defer func() {
		close(done)
		s.hub.Disconnect(conn.SessionID)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error for session %s: %v", conn.SessionID, err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))

		s.handleMessage(conn.SessionID, message)
	}
}

// pingLoop keeps the connection alive until the read pump exits.
func (s *Server) pingLoop(conn *hub.Connection, done chan struct{}) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage parses an inbound message and dispatches it. Domain
// errors are answered with protocol ERROR messages; only transport
// failures tear down the connection.
func (s *Server) handleMessage(sessionID string, data []byte) {
	msg, err := protocol.ParseInbound(data)
	if err != nil {
		var malformed *domain.MalformedMessageError
		if errors.As(err, &malformed) {
			s.sendError(sessionID, domain.ErrCodeInvalidMessage, malformed.Error())
			return
		}
		s.sendError(sessionID, domain.ErrCodeInternalError, err.Error())
		return
	}

	switch m := msg.(type) {
	case *protocol.StartInterview:
		s.handleStartInterview(sessionID, m)
	case *protocol.Transcribe:
		s.withOrchestrator(sessionID, msg, s.handleTranscribe)
	case *protocol.SilenceDetected:
		s.withOrchestrator(sessionID, msg, s.handleSilenceDetected)
	case *protocol.EndInterview:
		s.withOrchestrator(sessionID, msg, s.handleEndInterview)
	case *protocol.Ping:
		s.handlePing(sessionID)
	default:
		// ParseInbound rejects unknown types; this is unreachable.
		s.sendError(sessionID, domain.ErrCodeUnknownMessageType, "unhandled message variant")
	}
}

// withOrchestrator routes through the hub, answering a routing miss with
// a typed error while keeping the connection open.
func (s *Server) withOrchestrator(sessionID string, msg protocol.Inbound, handle hub.InboundHandler) {
	if _, ok := s.hub.Orchestrator(sessionID); !ok {
		s.sendError(sessionID, domain.ErrCodeSessionNotFound, "session not found: "+sessionID)
	}
	s.hub.Dispatch(sessionID, msg, handle)
}

// handleStartInterview admits, creates, and kicks off a session.
func (s *Server) handleStartInterview(sessionID string, msg *protocol.StartInterview) {
	ctx, cancel := s.turnContext()
	defer cancel()

	if s.admission != nil {
		decision, reason, err := s.admission.Evaluate(ctx, policy.AdmissionInput{
			JobRole:       msg.JobRole,
			QuestionCount: msg.QuestionCount,
		})
		if err != nil {
			log.Printf("Admission policy evaluation failed for %s: %v", sessionID, err)
			s.sendError(sessionID, domain.ErrCodeInternalError, "admission policy unavailable")
			return
		}
		if decision != "allow" {
			if reason == "" {
				reason = "session not admitted"
			}
			s.sendError(sessionID, domain.ErrCodeSessionBlocked, reason)
			return
		}
	}

	session := domain.NewSession(sessionID, msg.JobRole, msg.JobDescription, msg.QuestionCount)
	orch := engine.NewOrchestrator(session, s.interviewer)
	s.hub.CreateSession(session, orch)

	if s.store != nil {
		if err := s.store.SaveSession(ctx, session); err != nil {
			log.Printf("WARN: failed to persist new session %s: %v", sessionID, err)
		}
	}

	q, err := orch.GenerateFirstQuestion(ctx)
	if err != nil {
		s.sendCollaboratorError(sessionID, err)
		return
	}

	s.sendStateUpdate(sessionID, domain.StateAskQuestion)
	s.emitQuestion(sessionID, orch, q, 1, session.QuestionCount)

	log.Printf("Interview started: %s - %s (%d questions)", sessionID, msg.JobRole, msg.QuestionCount)
}

// handleTranscribe folds transcript fragments into the answer buffer.
// Scoring is driven by SILENCE_DETECTED, not by final transcripts.
func (s *Server) handleTranscribe(orch *engine.Orchestrator, msg protocol.Inbound) {
	m := msg.(*protocol.Transcribe)
	orch.AddTranscriptChunk(m.Transcript, m.IsFinal)
	if m.IsFinal {
		log.Printf("Final transcript buffered for session %s (%d chars)",
			orch.Session().SessionID, len(orch.AnswerBuffer()))
	}
}

// handleSilenceDetected runs the full answer pipeline: evaluate the
// buffered answer, branch to a follow-up or the next question, or
// complete the interview.
func (s *Server) handleSilenceDetected(orch *engine.Orchestrator, msg protocol.Inbound) {
	m := msg.(*protocol.SilenceDetected)
	session := orch.Session()
	sessionID := session.SessionID

	log.Printf("Silence detected for %s: %.1fs", sessionID, m.DurationSeconds)

	s.sendStateUpdate(sessionID, domain.StateSilenceDetect)
	orch.TryTransition(domain.StateSilenceDetect)
	orch.TryTransition(domain.StateTranscribe)
	s.sendStateUpdate(sessionID, domain.StateEvaluate)

	ctx, cancel := s.turnContext()
	defer cancel()

	outcome, err := orch.HandleAnswer(ctx, "")
	if err != nil {
		s.sendCollaboratorError(sessionID, err)
		return
	}

	if outcome.Evaluation != nil {
		s.sendEvaluationUpdate(sessionID, outcome.Evaluation)
	}

	if outcome.Complete {
		s.finishInterview(ctx, sessionID, orch, outcome.Final)
		return
	}

	s.sendStateUpdate(sessionID, domain.StateAskQuestion)
	s.emitQuestion(sessionID, orch, outcome.NextQuestion, outcome.QuestionIndex, session.QuestionCount)
}

// handleEndInterview terminates the session early and still produces a
// final evaluation from whatever history exists.
func (s *Server) handleEndInterview(orch *engine.Orchestrator, msg protocol.Inbound) {
	sessionID := orch.Session().SessionID
	final := orch.CompleteInterview()

	ctx, cancel := s.turnContext()
	defer cancel()
	s.finishInterview(ctx, sessionID, orch, final)

	log.Printf("Interview ended manually: %s", sessionID)
}

func (s *Server) handlePing(sessionID string) {
	s.send(sessionID, &protocol.PongMessage{
		BaseMessage: s.base(protocol.TypePong, sessionID),
	})
}

// emitQuestion sends QUESTION_READY and, when a synthesizer is
// configured, the spoken prompt. Synthesis failures degrade the turn to
// text only.
func (s *Server) emitQuestion(sessionID string, orch *engine.Orchestrator, q *llm.Question, number, total int) {
	if q == nil {
		return
	}

	s.send(sessionID, &protocol.QuestionReadyMessage{
		BaseMessage:    s.base(protocol.TypeQuestionReady, sessionID),
		Question:       q.Text,
		Topic:          q.Topic,
		QuestionNumber: number,
		TotalQuestions: total,
	})

	orch.TryTransition(domain.StatePlayPrompt)
	if s.synthesizer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.TTSTimeout)
		defer cancel()

		audio, format, err := s.synthesizer.Synthesize(ctx, q.Text)
		if err != nil {
			log.Printf("WARN: synthesis failed for session %s: %v", sessionID, err)
		} else {
			s.send(sessionID, &protocol.TTSAudioMessage{
				BaseMessage: s.base(protocol.TypeTTSAudio, sessionID),
				AudioBase64: audio,
				AudioFormat: format,
			})
		}
	}
	orch.TryTransition(domain.StateListen)
}

// finishInterview persists the completed session and notifies the
// client. Persistence failures are logged, never fatal: the in-memory
// record still serves the report.
func (s *Server) finishInterview(ctx context.Context, sessionID string, orch *engine.Orchestrator, final *domain.FinalEvaluation) {
	session := orch.Session()

	if s.store != nil {
		if err := s.store.SaveSession(ctx, session); err != nil {
			log.Printf("WARN: failed to persist session %s: %v", sessionID, err)
		}
		if err := s.store.SaveTransitions(ctx, sessionID, orch.Machine().History()); err != nil {
			log.Printf("WARN: failed to persist transitions for %s: %v", sessionID, err)
		}
	}

	finalScores := make(map[string]float64, len(final.AggregatedMetrics)+1)
	for metric, score := range final.AggregatedMetrics {
		finalScores[metric] = score
	}
	finalScores["overall_score"] = final.OverallScore

	s.send(sessionID, &protocol.InterviewCompleteMessage{
		BaseMessage: s.base(protocol.TypeInterviewComplete, sessionID),
		FinalScores: finalScores,
		Verdict:     final.Verdict,
		ReportURL:   "/api/reports/" + sessionID + "/pdf",
	})
	s.sendStateUpdate(sessionID, domain.StateCompleted)
}

func (s *Server) sendEvaluationUpdate(sessionID string, eval *domain.AnswerEvaluation) {
	scores := make(map[string]float64, len(eval.Scores)+1)
	for metric, score := range eval.Scores {
		scores[metric] = score
	}
	scores["overall"] = eval.AverageScore()

	s.send(sessionID, &protocol.EvaluationUpdateMessage{
		BaseMessage:           s.base(protocol.TypeEvaluationUpdate, sessionID),
		Scores:                scores,
		CurrentQuestionNumber: eval.QuestionNumber,
	})
}

func (s *Server) sendStateUpdate(sessionID string, state domain.InterviewState) {
	s.send(sessionID, &protocol.StateUpdateMessage{
		BaseMessage: s.base(protocol.TypeStateUpdate, sessionID),
		State:       state,
	})
}

func (s *Server) sendCollaboratorError(sessionID string, err error) {
	log.Printf("Collaborator failure for session %s: %v", sessionID, err)
	s.sendError(sessionID, domain.ErrCodeCollaboratorError, err.Error())
}

func (s *Server) sendError(sessionID, code, message string) {
	s.send(sessionID, &protocol.ErrorMessage{
		BaseMessage:  s.base(protocol.TypeError, sessionID),
		ErrorCode:    code,
		ErrorMessage: message,
	})
}

func (s *Server) send(sessionID string, v interface{}) {
	if err := s.hub.Send(sessionID, v); err != nil {
		log.Printf("WARN: failed to deliver message to session %s: %v", sessionID, err)
	}
}

func (s *Server) base(msgType, sessionID string) protocol.BaseMessage {
	return protocol.BaseMessage{
		Type:      msgType,
		SessionID: sessionID,
		Ts:        time.Now().UnixMilli(),
	}
}

// turnContext bounds one pipeline turn, which may span up to two
// collaborator calls.
func (s *Server) turnContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 2*s.cfg.LLMTimeout)
}
