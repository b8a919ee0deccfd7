package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/voxhire/interviewd/config"
	"github.com/voxhire/interviewd/domain"
	"github.com/voxhire/interviewd/hub"
	"github.com/voxhire/interviewd/llm"
	"github.com/voxhire/interviewd/policy"
	"github.com/voxhire/interviewd/protocol"
	"github.com/voxhire/interviewd/tests/helpers"
	"github.com/voxhire/interviewd/tts"
)

type testEnv struct {
	server *httptest.Server
	hub    *hub.Hub
}

func newTestEnv(t *testing.T, interviewer llm.Interviewer, synth tts.Synthesizer) *testEnv {
	t.Helper()

	cfg := config.Load()
	h := hub.NewHub()
	st := helpers.NewTestSQLiteStore(t)

	admission, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("failed to create policy engine: %v", err)
	}

	wsServer := NewServer(cfg, h, interviewer, synth, admission, st)

	e := echo.New()
	e.HideBanner = true
	e.GET("/ws/interview/:session_id", wsServer.HandleWebSocket)

	server := httptest.NewServer(e)
	t.Cleanup(server.Close)

	return &testEnv{server: server, hub: h}
}

func (env *testEnv) dial(t *testing.T, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws/interview/" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readUntil reads messages until one of the given type arrives, failing
// on timeout or an unexpected ERROR.
func readUntil(t *testing.T, conn *websocket.Conn, msgType string) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	conn.SetReadDeadline(deadline)

	for time.Now().Before(deadline) {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read failed waiting for %s: %v", msgType, err)
		}
		var msg map[string]interface{}
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("bad frame: %s", data)
		}
		got, _ := msg["type"].(string)
		if got == msgType {
			return msg
		}
		if got == protocol.TypeError && msgType != protocol.TypeError {
			t.Fatalf("unexpected ERROR waiting for %s: %s", msgType, data)
		}
	}
	t.Fatalf("timed out waiting for %s", msgType)
	return nil
}

func sendJSON(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func TestInterviewEndToEnd(t *testing.T) {
	env := newTestEnv(t, llm.NewMockClient(), nil)
	conn := env.dial(t, "e2e-1")

	sendJSON(t, conn, map[string]interface{}{
		"type":            protocol.TypeStartInterview,
		"session_id":      "e2e-1",
		"job_role":        "Backend Engineer",
		"job_description": "Build APIs",
		"question_count":  3,
	})

	q := readUntil(t, conn, protocol.TypeQuestionReady)
	if q["question_number"].(float64) != 1 || q["total_questions"].(float64) != 3 {
		t.Fatalf("first question: %v", q)
	}
	if q["question"].(string) == "" {
		t.Fatal("empty question text")
	}

	// Answer all three questions via the transcript-plus-silence flow.
	for i := 0; i < 3; i++ {
		sendJSON(t, conn, map[string]interface{}{
			"type":       protocol.TypeTranscribe,
			"session_id": "e2e-1",
			"transcript": "I would shard by tenant and add retries.",
			"is_final":   true,
		})
		sendJSON(t, conn, map[string]interface{}{
			"type":             protocol.TypeSilenceDetected,
			"session_id":       "e2e-1",
			"duration_seconds": 2.0,
		})

		update := readUntil(t, conn, protocol.TypeEvaluationUpdate)
		scores := update["scores"].(map[string]interface{})
		if len(scores) != len(domain.Metrics)+1 {
			t.Fatalf("evaluation scores: %v", scores)
		}
		if scores["overall"].(float64) != 7.0 {
			t.Fatalf("overall = %v", scores["overall"])
		}

		if i < 2 {
			q := readUntil(t, conn, protocol.TypeQuestionReady)
			if got := q["question_number"].(float64); got != float64(i+2) {
				t.Fatalf("question number = %v, want %d", got, i+2)
			}
		}
	}

	complete := readUntil(t, conn, protocol.TypeInterviewComplete)
	if complete["verdict"].(string) != string(domain.VerdictBorderline) {
		t.Fatalf("verdict = %v", complete["verdict"])
	}
	if !strings.Contains(complete["report_url"].(string), "e2e-1") {
		t.Fatalf("report_url = %v", complete["report_url"])
	}
	finalScores := complete["final_scores"].(map[string]interface{})
	if overall := finalScores["overall_score"].(float64); overall < 6.99 || overall > 7.01 {
		t.Fatalf("overall_score = %v", overall)
	}

	state := readUntil(t, conn, protocol.TypeStateUpdate)
	if state["state"].(string) != string(domain.StateCompleted) {
		t.Fatalf("state = %v", state["state"])
	}

	session, ok := env.hub.GetSession("e2e-1")
	if !ok {
		t.Fatal("session missing from registry")
	}
	if session.FinalEvaluation == nil {
		t.Fatal("final evaluation not stored")
	}
}

func TestEndInterviewEarly(t *testing.T) {
	env := newTestEnv(t, llm.NewMockClient(), nil)
	conn := env.dial(t, "e2e-2")

	sendJSON(t, conn, map[string]interface{}{
		"type":       protocol.TypeStartInterview,
		"session_id": "e2e-2",
		"job_role":   "SRE",
	})
	readUntil(t, conn, protocol.TypeQuestionReady)

	sendJSON(t, conn, map[string]interface{}{
		"type":       protocol.TypeEndInterview,
		"session_id": "e2e-2",
	})

	complete := readUntil(t, conn, protocol.TypeInterviewComplete)
	// No scored answers: zero overall, No-Hire.
	if complete["verdict"].(string) != string(domain.VerdictNoHire) {
		t.Fatalf("verdict = %v", complete["verdict"])
	}
	finalScores := complete["final_scores"].(map[string]interface{})
	if finalScores["overall_score"].(float64) != 0.0 {
		t.Fatalf("overall_score = %v", finalScores["overall_score"])
	}
}

func TestTTSAudioEmitted(t *testing.T) {
	env := newTestEnv(t, llm.NewMockClient(), &tts.MockSynthesizer{})
	conn := env.dial(t, "e2e-3")

	sendJSON(t, conn, map[string]interface{}{
		"type":       protocol.TypeStartInterview,
		"session_id": "e2e-3",
		"job_role":   "Backend Engineer",
	})

	readUntil(t, conn, protocol.TypeQuestionReady)
	audio := readUntil(t, conn, protocol.TypeTTSAudio)
	if audio["audio_base64"].(string) == "" {
		t.Fatal("empty audio payload")
	}
	if audio["audio_format"].(string) != tts.DefaultAudioFormat {
		t.Fatalf("audio format = %v", audio["audio_format"])
	}
}

func TestPingPong(t *testing.T) {
	env := newTestEnv(t, llm.NewMockClient(), nil)
	conn := env.dial(t, "e2e-4")

	sendJSON(t, conn, map[string]interface{}{"type": protocol.TypePing})
	readUntil(t, conn, protocol.TypePong)
}

func TestMessageBeforeStartReturnsSessionNotFound(t *testing.T) {
	env := newTestEnv(t, llm.NewMockClient(), nil)
	conn := env.dial(t, "e2e-5")

	sendJSON(t, conn, map[string]interface{}{
		"type":             protocol.TypeSilenceDetected,
		"session_id":       "e2e-5",
		"duration_seconds": 1.0,
	})

	errMsg := readUntil(t, conn, protocol.TypeError)
	if errMsg["error_code"].(string) != domain.ErrCodeSessionNotFound {
		t.Fatalf("error_code = %v", errMsg["error_code"])
	}
}

func TestMalformedMessageKeepsConnectionOpen(t *testing.T) {
	env := newTestEnv(t, llm.NewMockClient(), nil)
	conn := env.dial(t, "e2e-6")

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"BOGUS"}`)); err != nil {
		t.Fatal(err)
	}
	errMsg := readUntil(t, conn, protocol.TypeError)
	if errMsg["error_code"].(string) != domain.ErrCodeInvalidMessage {
		t.Fatalf("error_code = %v", errMsg["error_code"])
	}

	// The connection is still usable after a protocol error.
	sendJSON(t, conn, map[string]interface{}{"type": protocol.TypePing})
	readUntil(t, conn, protocol.TypePong)
}

func TestStartInterviewValidationError(t *testing.T) {
	env := newTestEnv(t, llm.NewMockClient(), nil)
	conn := env.dial(t, "e2e-7")

	sendJSON(t, conn, map[string]interface{}{
		"type":       protocol.TypeStartInterview,
		"session_id": "e2e-7",
		// job_role missing
	})
	errMsg := readUntil(t, conn, protocol.TypeError)
	if errMsg["error_code"].(string) != domain.ErrCodeInvalidMessage {
		t.Fatalf("error_code = %v", errMsg["error_code"])
	}
}
