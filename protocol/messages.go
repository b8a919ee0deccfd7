// Package protocol defines the WebSocket message protocol between
// interview clients and the server.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/voxhire/interviewd/domain"
)

// Message types from client to server
const (
	TypeStartInterview  = "START_INTERVIEW"
	TypeTranscribe      = "TRANSCRIBE"
	TypeSilenceDetected = "SILENCE_DETECTED"
	TypeEndInterview    = "END_INTERVIEW"
	TypePing            = "PING"
)

// Message types from server to client
const (
	TypeQuestionReady     = "QUESTION_READY"
	TypeTTSAudio          = "TTS_AUDIO"
	TypeEvaluationUpdate  = "EVALUATION_UPDATE"
	TypeInterviewComplete = "INTERVIEW_COMPLETE"
	TypeStateUpdate       = "STATE_UPDATE"
	TypeError             = "ERROR"
	TypePong              = "PONG"
)

// BaseMessage contains fields common to all protocol messages.
type BaseMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Ts        int64  `json:"ts,omitempty"`
}

// Inbound is the closed set of client-to-server messages. Adding a
// variant requires extending ParseInbound and every dispatch switch.
type Inbound interface {
	inbound()
}

// StartInterview initializes an interview session.
type StartInterview struct {
	BaseMessage
	JobRole        string `json:"job_role"`
	JobDescription string `json:"job_description"`
	QuestionCount  int    `json:"question_count"`
}

// Transcribe carries a transcript fragment from the client.
type Transcribe struct {
	BaseMessage
	Transcript string `json:"transcript"`
	IsFinal    bool   `json:"is_final"`
}

// SilenceDetected signals client-side end-of-answer silence.
type SilenceDetected struct {
	BaseMessage
	DurationSeconds float64 `json:"duration_seconds"`
}

// EndInterview terminates the session early.
type EndInterview struct {
	BaseMessage
}

// Ping is a keepalive.
type Ping struct {
	BaseMessage
}

func (*StartInterview) inbound()  {}
func (*Transcribe) inbound()      {}
func (*SilenceDetected) inbound() {}
func (*EndInterview) inbound()    {}
func (*Ping) inbound()            {}

// DefaultQuestionCount is used when START_INTERVIEW omits question_count.
const DefaultQuestionCount = 5

// Question count bounds for a session.
const (
	MinQuestionCount = 1
	MaxQuestionCount = 20
)

// ParseInbound decodes and validates a client message. Unknown types and
// schema violations come back as *domain.MalformedMessageError.
func ParseInbound(data []byte) (Inbound, error) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, &domain.MalformedMessageError{Reason: "invalid JSON"}
	}

	switch base.Type {
	case TypeStartInterview:
		var msg StartInterview
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, &domain.MalformedMessageError{Reason: "invalid START_INTERVIEW payload"}
		}
		if msg.JobRole == "" {
			return nil, &domain.MalformedMessageError{Reason: "job_role is required"}
		}
		if msg.QuestionCount == 0 {
			msg.QuestionCount = DefaultQuestionCount
		}
		if msg.QuestionCount < MinQuestionCount || msg.QuestionCount > MaxQuestionCount {
			return nil, &domain.MalformedMessageError{
				Reason: fmt.Sprintf("question_count must be in [%d,%d]", MinQuestionCount, MaxQuestionCount),
			}
		}
		return &msg, nil

	case TypeTranscribe:
		var msg Transcribe
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, &domain.MalformedMessageError{Reason: "invalid TRANSCRIBE payload"}
		}
		return &msg, nil

	case TypeSilenceDetected:
		var msg SilenceDetected
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, &domain.MalformedMessageError{Reason: "invalid SILENCE_DETECTED payload"}
		}
		return &msg, nil

	case TypeEndInterview:
		var msg EndInterview
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, &domain.MalformedMessageError{Reason: "invalid END_INTERVIEW payload"}
		}
		return &msg, nil

	case TypePing:
		var msg Ping
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, &domain.MalformedMessageError{Reason: "invalid PING payload"}
		}
		return &msg, nil

	default:
		return nil, &domain.MalformedMessageError{Reason: "unknown message type: " + base.Type}
	}
}

// QuestionReadyMessage announces a generated question.
type QuestionReadyMessage struct {
	BaseMessage
	Question       string `json:"question"`
	Topic          string `json:"topic,omitempty"`
	QuestionNumber int    `json:"question_number"`
	TotalQuestions int    `json:"total_questions"`
}

// TTSAudioMessage carries synthesized speech for a question prompt.
type TTSAudioMessage struct {
	BaseMessage
	AudioBase64 string `json:"audio_base64"`
	AudioFormat string `json:"audio_format"`
}

// EvaluationUpdateMessage is a real-time per-answer score update.
type EvaluationUpdateMessage struct {
	BaseMessage
	Scores                map[string]float64 `json:"scores"`
	CurrentQuestionNumber int                `json:"current_question_number"`
}

// InterviewCompleteMessage carries the final result and report location.
type InterviewCompleteMessage struct {
	BaseMessage
	FinalScores map[string]float64 `json:"final_scores"`
	Verdict     domain.Verdict     `json:"verdict"`
	ReportURL   string             `json:"report_url"`
}

// StateUpdateMessage notifies the client of a phase change.
type StateUpdateMessage struct {
	BaseMessage
	State domain.InterviewState `json:"state"`
}

// ErrorMessage reports a domain error without closing the connection.
type ErrorMessage struct {
	BaseMessage
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// PongMessage answers a PING.
type PongMessage struct {
	BaseMessage
}
