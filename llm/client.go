package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/voxhire/interviewd/domain"
)

// Client talks to an OpenAI-compatible chat-completions gateway and
// shapes the interview prompts and response parsing around it.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient creates a new gateway client.
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ChatMessage represents a chat message.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest represents the chat completion request.
type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
}

// ChatCompletionResponse represents the chat completion response.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// Choice represents a completion choice.
type Choice struct {
	Index        int          `json:"index"`
	Message      *ChatMessage `json:"message,omitempty"`
	FinishReason string       `json:"finish_reason,omitempty"`
}

// Usage represents token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// APIError represents the error details.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

func systemPrompt(jobRole, jobDescription string) string {
	return fmt.Sprintf(`You are a strict FAANG-style HR interviewer conducting a mock interview.

Your role:
- Ask concise, deep, job-relevant questions
- Probe weaknesses in answers
- Maintain professional corporate tone
- Assess: technical depth, communication, confidence, logical thinking, problem-solving, culture fit

Job Role: %s
Job Description: %s

Keep questions concise (1-2 sentences max). Be direct and professional.`, jobRole, jobDescription)
}

// GenerateFirstQuestion produces the opening question.
func (c *Client) GenerateFirstQuestion(ctx context.Context, jobRole, jobDescription string) (*Question, error) {
	prompt := fmt.Sprintf(`Generate the first interview question for a %s position.

Job Description: %s

Generate a concise, professional opening question (1-2 sentences).

OUTPUT FORMAT:
TOPIC: [Short 2-3 word title, e.g. "Introduction"]
QUESTION: [The question text]`, jobRole, jobDescription)

	text, err := c.complete(ctx, systemPrompt(jobRole, jobDescription), prompt, 0.7)
	if err != nil {
		return nil, err
	}
	return parseQuestion(text, "Introduction"), nil
}

// GenerateNextQuestion produces the next question from the conversation
// so far, at the requested difficulty.
func (c *Client) GenerateNextQuestion(ctx context.Context, jobRole, jobDescription string, history []Turn, questionIndex, totalQuestions int, difficulty domain.Difficulty) (*Question, error) {
	var sb strings.Builder
	for i, turn := range history {
		fmt.Fprintf(&sb, "Q%d: %s\nA%d: %s\n", i+1, turn.Question, i+1, turn.Answer)
	}

	prompt := fmt.Sprintf(`This is question %d of %d in a %s interview. Target difficulty: %s.

Conversation so far:
%s
Generate the next interview question. Build on previous answers, avoid repetition, and match the target difficulty.

OUTPUT FORMAT:
TOPIC: [Short 2-3 word title]
QUESTION: [The question text]`, questionIndex+1, totalQuestions, jobRole, difficulty, sb.String())

	text, err := c.complete(ctx, systemPrompt(jobRole, jobDescription), prompt, 0.7)
	if err != nil {
		return nil, err
	}
	return parseQuestion(text, "General"), nil
}

// GenerateFollowup produces a follow-up probing the listed weaknesses.
func (c *Client) GenerateFollowup(ctx context.Context, originalQuestion, answer string, weaknesses []string, jobRole string) (*Question, error) {
	prompt := fmt.Sprintf(`The candidate for a %s position was asked:
%s

They answered:
%s

Observed weaknesses: %s

Generate ONE follow-up question that probes the weakest part of the answer.

OUTPUT FORMAT:
TOPIC: [Short 2-3 word title, e.g. "Deep Dive"]
QUESTION: [The question text]`, jobRole, originalQuestion, answer, strings.Join(weaknesses, "; "))

	text, err := c.complete(ctx, systemPrompt(jobRole, ""), prompt, 0.7)
	if err != nil {
		return nil, err
	}
	return parseQuestion(text, "Deep Dive"), nil
}

// EvaluateAnswer scores an answer across all six metrics.
func (c *Client) EvaluateAnswer(ctx context.Context, question, answer, jobRole, jobDescription string) (*EvaluationResult, error) {
	prompt := fmt.Sprintf(`Evaluate this interview answer for a %s position.

Question: %s
Answer: %s

Score each metric from 0 to 10 and respond with ONLY a JSON object:
{
  "technical_depth": <0-10>,
  "communication": <0-10>,
  "confidence": <0-10>,
  "logical_thinking": <0-10>,
  "problem_solving": <0-10>,
  "culture_fit": <0-10>,
  "needs_followup": <true|false>,
  "weaknesses": ["..."],
  "strengths": ["..."],
  "reasoning": "..."
}`, jobRole, question, answer)

	text, err := c.complete(ctx, systemPrompt(jobRole, jobDescription), prompt, 0.3)
	if err != nil {
		return nil, err
	}
	return parseEvaluation(text)
}

// complete performs one non-streaming chat completion.
func (c *Client) complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	reqBody := &ChatCompletionRequest{
		Model: c.model,
		Messages: []ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: &temperature,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != nil {
			return "", fmt.Errorf("gateway error (status %d): %s", resp.StatusCode, errResp.Error.Message)
		}
		return "", fmt.Errorf("gateway error (status %d)", resp.StatusCode)
	}

	var completion ChatCompletionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message == nil {
		return "", fmt.Errorf("empty completion response")
	}

	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}

// parseQuestion extracts TOPIC/QUESTION lines; falls back to treating
// the whole text as the question when the format is absent.
func parseQuestion(text, defaultTopic string) *Question {
	q := &Question{Topic: defaultTopic}
	var questionLines []string
	inQuestion := false

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "TOPIC:"):
			if topic := strings.TrimSpace(strings.TrimPrefix(trimmed, "TOPIC:")); topic != "" {
				q.Topic = topic
			}
			inQuestion = false
		case strings.HasPrefix(trimmed, "QUESTION:"):
			questionLines = append(questionLines, strings.TrimSpace(strings.TrimPrefix(trimmed, "QUESTION:")))
			inQuestion = true
		case inQuestion && trimmed != "":
			questionLines = append(questionLines, trimmed)
		}
	}

	q.Text = strings.TrimSpace(strings.Join(questionLines, " "))
	if q.Text == "" {
		q.Text = strings.TrimSpace(text)
	}
	return q
}

// parseEvaluation decodes the evaluation JSON, tolerating markdown code
// fences around the object.
func parseEvaluation(text string) (*EvaluationResult, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	// Tolerate prose around the object.
	if start := strings.Index(cleaned, "{"); start > 0 {
		if end := strings.LastIndex(cleaned, "}"); end > start {
			cleaned = cleaned[start : end+1]
		}
	}

	var raw struct {
		TechnicalDepth  *float64 `json:"technical_depth"`
		Communication   *float64 `json:"communication"`
		Confidence      *float64 `json:"confidence"`
		LogicalThinking *float64 `json:"logical_thinking"`
		ProblemSolving  *float64 `json:"problem_solving"`
		CultureFit      *float64 `json:"culture_fit"`
		NeedsFollowup   bool     `json:"needs_followup"`
		Weaknesses      []string `json:"weaknesses"`
		Strengths       []string `json:"strengths"`
		Reasoning       string   `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("malformed evaluation response: %w", err)
	}

	scores := make(map[string]float64)
	put := func(metric string, v *float64) {
		if v != nil {
			scores[metric] = *v
		}
	}
	put(domain.MetricTechnicalDepth, raw.TechnicalDepth)
	put(domain.MetricCommunication, raw.Communication)
	put(domain.MetricConfidence, raw.Confidence)
	put(domain.MetricLogicalThinking, raw.LogicalThinking)
	put(domain.MetricProblemSolving, raw.ProblemSolving)
	put(domain.MetricCultureFit, raw.CultureFit)

	return &EvaluationResult{
		Scores:        scores,
		NeedsFollowup: raw.NeedsFollowup,
		Weaknesses:    raw.Weaknesses,
		Strengths:     raw.Strengths,
		Reasoning:     raw.Reasoning,
	}, nil
}
