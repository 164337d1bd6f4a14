// Package client talks to the game backend: the chat-stream endpoint plus
// the rules, new-rule, and reset endpoints.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tatianab/password-game/internal/models"
)

// dataPrefix tags the stream records of interest; other lines are
// keep-alives or comments and are dropped.
const dataPrefix = "data: "

// Outcome aggregates one full chat-stream exchange.
type Outcome struct {
	FinalText          string
	WasPasswordAttempt bool
	SessionCompleted   bool
}

// streamEvent is the payload of one prefixed stream record.
type streamEvent struct {
	Message           string `json:"message"`
	IsDone            bool   `json:"is_done"`
	IsPasswordAttempt bool   `json:"is_password_attempt"`
}

type chatStreamRequest struct {
	Message     models.Message   `json:"message"`
	ChatHistory []models.Message `json:"chat_history"`
	RulesList   []models.Rule    `json:"rules_list"`
	SessionID   string           `json:"session_id"`
}

type newRuleRequest struct {
	ChatHistory []models.Message `json:"chat_history"`
	RulesList   []models.Rule    `json:"rules_list"`
}

// Client issues requests against the backend. StreamDelay is the minimum
// interval between delivered stream records; it smooths the typing effect
// and applies even when the network delivers records faster.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	streamDelay time.Duration
	logger      *zap.Logger
}

func New(baseURL string, streamDelay time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{},
		streamDelay: streamDelay,
		logger:      logger,
	}
}

func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.httpClient.Do(req)
}

// StreamChat sends one user turn and consumes the response stream. Each
// parsed record extends the accumulated AI text and pushes the result to
// onFragment, in arrival order. The password-attempt flag is true if any
// record set it; is_done is sticky once seen. A record that fails to parse
// is logged and skipped; only transport-level failures return an error.
func (c *Client) StreamChat(ctx context.Context, userMsg models.Message, history []models.Message, rules []models.Rule, sessionID string, onFragment func(text string)) (Outcome, error) {
	if history == nil {
		history = []models.Message{}
	}
	if rules == nil {
		rules = []models.Rule{}
	}
	resp, err := c.post(ctx, "/api/chat-stream", chatStreamRequest{
		Message:     userMsg,
		ChatHistory: history,
		RulesList:   rules,
		SessionID:   sessionID,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("chat-stream request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Outcome{}, fmt.Errorf("chat-stream status %d", resp.StatusCode)
	}

	var out Outcome
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		payload := strings.TrimSpace(line[len(dataPrefix):])
		if payload == "" {
			continue
		}

		started := time.Now()
		var ev streamEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			c.logger.Warn("skipping malformed stream record", zap.String("line", line), zap.Error(err))
			continue
		}

		if ev.IsPasswordAttempt {
			out.WasPasswordAttempt = true
		}
		if ev.IsDone {
			out.SessionCompleted = true
		}
		out.FinalText += ev.Message
		if onFragment != nil {
			onFragment(out.FinalText)
		}

		// Pace delivery so fast-arriving records still read as typing.
		if remaining := c.streamDelay - time.Since(started); remaining > 0 {
			select {
			case <-ctx.Done():
				return Outcome{}, ctx.Err()
			case <-time.After(remaining):
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return Outcome{}, fmt.Errorf("reading chat stream: %w", err)
	}

	return out, nil
}

// GenerateRule asks the backend for the next difficulty rule after a
// completed session.
func (c *Client) GenerateRule(ctx context.Context, history []models.Message, rules []models.Rule) (models.Rule, error) {
	if history == nil {
		history = []models.Message{}
	}
	if rules == nil {
		rules = []models.Rule{}
	}
	resp, err := c.post(ctx, "/api/new-rule", newRuleRequest{
		ChatHistory: history,
		RulesList:   rules,
	})
	if err != nil {
		return models.Rule{}, fmt.Errorf("new-rule request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.Rule{}, fmt.Errorf("new-rule status %d", resp.StatusCode)
	}

	var rule models.Rule
	if err := json.NewDecoder(resp.Body).Decode(&rule); err != nil {
		return models.Rule{}, fmt.Errorf("decoding new rule: %w", err)
	}
	return rule, nil
}

// FetchRules loads the current rule set from the backend.
func (c *Client) FetchRules(ctx context.Context) ([]models.Rule, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/rules", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rules request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("rules status %d", resp.StatusCode)
	}

	var rules []models.Rule
	if err := json.NewDecoder(resp.Body).Decode(&rules); err != nil {
		return nil, fmt.Errorf("decoding rules: %w", err)
	}
	return rules, nil
}

// ResetGame tells the backend to reset its session-scoped state. Fire and
// forget: the response body is not interpreted and failures are only logged.
func (c *Client) ResetGame(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/reset-game", nil)
	if err != nil {
		c.logger.Warn("building reset request", zap.Error(err))
		return
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("resetting backend game state", zap.Error(err))
		return
	}
	resp.Body.Close()
}
