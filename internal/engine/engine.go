// Package engine coordinates one player submission end to end: conversation
// bookkeeping, the response stream, and the game-state consequences.
package engine

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tatianab/password-game/internal/chats"
	"github.com/tatianab/password-game/internal/client"
	"github.com/tatianab/password-game/internal/game"
	"github.com/tatianab/password-game/internal/models"
)

// streamErrorText replaces the AI placeholder when the stream fails.
const streamErrorText = "Sorry, there was an error processing your message."

var lastMessageID atomic.Int64

// nextMessageID issues wall-clock-derived message ids that stay strictly
// increasing even when two are drawn within the same millisecond.
func nextMessageID() int64 {
	for {
		id := time.Now().UnixMilli()
		last := lastMessageID.Load()
		if id <= last {
			id = last + 1
		}
		if lastMessageID.CompareAndSwap(last, id) {
			return id
		}
	}
}

// Engine is the session orchestrator. A process-wide streaming gate rejects
// a second submission while one is in flight, so the active chat's message
// list only ever has a single writer.
type Engine struct {
	chats     *chats.Store
	game      *game.State
	client    *client.Client
	streaming atomic.Bool
	onChange  atomic.Pointer[func()]
	logger    *zap.Logger
}

func New(ch *chats.Store, gs *game.State, cl *client.Client, logger *zap.Logger) *Engine {
	return &Engine{chats: ch, game: gs, client: cl, logger: logger}
}

// SetOnChange registers a hook invoked after every observable state change,
// used by the UI to redraw. May be called before or after submissions begin.
func (e *Engine) SetOnChange(fn func()) {
	e.onChange.Store(&fn)
}

func (e *Engine) notify() {
	if fn := e.onChange.Load(); fn != nil {
		(*fn)()
	}
}

func (e *Engine) Chats() *chats.Store { return e.chats }

func (e *Engine) Game() *game.State { return e.game }

func (e *Engine) IsStreaming() bool { return e.streaming.Load() }

// Submit runs one player turn. Preconditions: non-blank input, no stream in
// flight, session not complete, lives remaining. A violated precondition is
// a silent no-op (the UI already disables the affected controls) and Submit
// reports false. Exactly one game-state consequence is applied per accepted
// submission: completion wins over a life loss.
func (e *Engine) Submit(ctx context.Context, text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || e.game.IsSessionComplete() || e.game.Lives() <= 0 {
		return false
	}
	if !e.streaming.CompareAndSwap(false, true) {
		return false
	}
	defer e.streaming.Store(false)

	chatID := e.chats.ActiveChatID()
	if chatID == "" {
		chatID = e.chats.NewChat(false)
	}

	// History captured before this turn's messages are appended; the new
	// user message travels in its own request field.
	history := e.chats.Messages(chatID)

	userMsg := models.Message{
		ID:     nextMessageID(),
		Text:   trimmed,
		IsUser: true,
	}
	e.chats.AppendMessage(chatID, userMsg)

	aiMsg := models.Message{
		ID:        nextMessageID(),
		IsLoading: true,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	e.chats.AppendMessage(chatID, aiMsg)
	e.notify()

	rules := e.game.Rules()
	outcome, err := e.client.StreamChat(ctx, userMsg, history, rules, e.game.SessionID(), func(text string) {
		e.chats.UpdateMessageText(chatID, aiMsg.ID, text)
		e.notify()
	})
	if err != nil {
		e.logger.Warn("chat stream failed", zap.String("chat_id", chatID), zap.Error(err))
		e.chats.UpdateMessageText(chatID, aiMsg.ID, streamErrorText)
		e.notify()
		return true
	}

	if outcome.SessionCompleted {
		e.game.CompleteSession()
		e.chats.MarkComplete(chatID)
		rule, err := e.client.GenerateRule(ctx, history, rules)
		if err != nil {
			// The session stays complete; the rule list just lags the
			// backend until the next rules fetch.
			e.logger.Warn("new-rule fetch failed", zap.Error(err))
		} else {
			e.game.AddRule(rule)
		}
	} else if outcome.WasPasswordAttempt {
		e.game.DecreaseLives()
	}
	e.notify()
	return true
}

// NewAttempt opens a fresh chat, refreshes the rule set, and clears the
// session-complete state for another round.
func (e *Engine) NewAttempt(ctx context.Context) string {
	id := e.chats.NewChat(false)
	if _, err := e.game.FetchRules(ctx); err != nil {
		e.logger.Warn("rules fetch failed", zap.Error(err))
	}
	e.game.StartNewSession()
	e.notify()
	return id
}

// ResetAll wipes the whole game: signals the backend, resets local game
// state, drops every chat, and opens a fresh first attempt.
func (e *Engine) ResetAll(ctx context.Context) {
	e.client.ResetGame(ctx)
	e.game.Reset()
	e.chats.ClearAll()
	e.chats.NewChat(false)
	e.notify()
}
