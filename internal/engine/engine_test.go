package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tatianab/password-game/internal/chats"
	"github.com/tatianab/password-game/internal/client"
	"github.com/tatianab/password-game/internal/game"
	"github.com/tatianab/password-game/internal/models"
	"github.com/tatianab/password-game/internal/storage"
)

func newTestEngine(t *testing.T, handler http.Handler) *Engine {
	t.Helper()
	baseURL := "http://127.0.0.1:1"
	if handler != nil {
		srv := httptest.NewServer(handler)
		t.Cleanup(srv.Close)
		baseURL = srv.URL
	}
	st := storage.New(t.TempDir(), 5, zap.NewNop())
	cl := client.New(baseURL, 0, zap.NewNop())
	ch := chats.New(st)
	gs := game.New(st, cl, 5, zap.NewNop())
	return New(ch, gs, cl, zap.NewNop())
}

func streamHandler(records ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat-stream" {
			http.NotFound(w, r)
			return
		}
		for _, rec := range records {
			w.Write([]byte("data: " + rec + "\n"))
		}
	})
}

func TestSubmitPlainExchange(t *testing.T) {
	e := newTestEngine(t, streamHandler(`{"message":"Hi there","is_password_attempt":false,"is_done":false}`))

	require.True(t, e.Submit(context.Background(), "hello"))

	chat, ok := e.Chats().ActiveChat()
	require.True(t, ok)
	require.Len(t, chat.Messages, 2)
	assert.Equal(t, "hello", chat.Messages[0].Text)
	assert.True(t, chat.Messages[0].IsUser)
	assert.Equal(t, "Hi there", chat.Messages[1].Text)
	assert.False(t, chat.Messages[1].IsUser)
	assert.False(t, chat.IsSessionComplete)
	assert.Equal(t, 5, e.Game().Lives())
	assert.False(t, e.Game().IsSessionComplete())
}

func TestSubmitCompletionSuppressesLifeLoss(t *testing.T) {
	e := newTestEngine(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/chat-stream":
			w.Write([]byte(`data: {"message":"DOG","is_password_attempt":true,"is_done":true}` + "\n"))
		case "/api/new-rule":
			json.NewEncoder(w).Encode(models.Rule{ID: 10, Title: "No animals", Description: "Animal words are off limits."})
		default:
			http.NotFound(w, r)
		}
	}))

	require.True(t, e.Submit(context.Background(), "is it dog?"))

	chat, _ := e.Chats().ActiveChat()
	require.Len(t, chat.Messages, 2)
	assert.Equal(t, "DOG", chat.Messages[1].Text)
	assert.True(t, chat.IsSessionComplete)
	assert.True(t, e.Game().IsSessionComplete())
	assert.Equal(t, 5, e.Game().Lives(), "completion suppresses the life decrement")

	rules := e.Game().Rules()
	require.Len(t, rules, 1)
	assert.Equal(t, 10, rules[0].ID, "new rule lands at the front")
}

func TestSubmitPasswordAttemptCostsALife(t *testing.T) {
	e := newTestEngine(t, streamHandler(`{"message":"Nice try.","is_password_attempt":true,"is_done":false}`))

	require.True(t, e.Submit(context.Background(), "the password is CAT"))

	assert.Equal(t, 4, e.Game().Lives())
	assert.False(t, e.Game().IsSessionComplete())
}

func TestSubmitRuleFetchFailureKeepsCompletion(t *testing.T) {
	e := newTestEngine(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/chat-stream":
			w.Write([]byte(`data: {"message":"You got it.","is_done":true}` + "\n"))
		default:
			http.Error(w, "no rule for you", http.StatusInternalServerError)
		}
	}))

	require.True(t, e.Submit(context.Background(), "DOG"))

	assert.True(t, e.Game().IsSessionComplete(), "completion stands even without the new rule")
	chat, _ := e.Chats().ActiveChat()
	assert.True(t, chat.IsSessionComplete)
	assert.Empty(t, e.Game().Rules())
}

func TestSubmitStreamFailureWritesErrorMessage(t *testing.T) {
	e := newTestEngine(t, nil) // unreachable backend

	require.True(t, e.Submit(context.Background(), "hello"))

	chat, _ := e.Chats().ActiveChat()
	require.Len(t, chat.Messages, 2)
	assert.Equal(t, streamErrorText, chat.Messages[1].Text)
	assert.False(t, chat.Messages[1].IsLoading)
	assert.Equal(t, 5, e.Game().Lives(), "failures never touch game state")
}

func TestSubmitPreconditions(t *testing.T) {
	e := newTestEngine(t, streamHandler(`{"message":"hi"}`))

	assert.False(t, e.Submit(context.Background(), "   "), "blank input")

	e.Game().CompleteSession()
	assert.False(t, e.Submit(context.Background(), "hello"), "completed session")
	e.Game().StartNewSession()

	for i := 0; i < 5; i++ {
		e.Game().DecreaseLives()
	}
	assert.False(t, e.Submit(context.Background(), "hello"), "no lives left")
}

func TestSubmitRejectsOverlap(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	e := newTestEngine(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`data: {"message":"thinking"}` + "\n"))
		w.(http.Flusher).Flush()
		close(started)
		<-release
		w.Write([]byte(`data: {"message":"... done"}` + "\n"))
	}))

	done := make(chan bool)
	go func() {
		done <- e.Submit(context.Background(), "first")
	}()

	<-started
	assert.False(t, e.Submit(context.Background(), "second"), "second submit is gated while streaming")

	close(release)
	assert.True(t, <-done)

	chat, _ := e.Chats().ActiveChat()
	require.Len(t, chat.Messages, 2, "the gated submit appended nothing")
	assert.Equal(t, "thinking... done", chat.Messages[1].Text)
}

func TestSubmitStreamsHistoryWithoutCurrentTurn(t *testing.T) {
	var mu sync.Mutex
	var bodies []map[string]json.RawMessage
	e := newTestEngine(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]json.RawMessage
		json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		bodies = append(bodies, body)
		mu.Unlock()
		w.Write([]byte(`data: {"message":"ok"}` + "\n"))
	}))

	require.True(t, e.Submit(context.Background(), "first turn"))
	require.True(t, e.Submit(context.Background(), "second turn"))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, bodies, 2)

	var history []models.Message
	require.NoError(t, json.Unmarshal(bodies[1]["chat_history"], &history))
	require.Len(t, history, 2, "prior user and AI messages only")
	assert.Equal(t, "first turn", history[0].Text)
	assert.Equal(t, "ok", history[1].Text)
}

func TestNewAttempt(t *testing.T) {
	e := newTestEngine(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/rules" {
			json.NewEncoder(w).Encode([]models.Rule{{ID: 1, Title: "Base"}})
			return
		}
		http.NotFound(w, r)
	}))

	e.Game().CompleteSession()
	id := e.NewAttempt(context.Background())

	assert.Equal(t, id, e.Chats().ActiveChatID())
	assert.False(t, e.Game().IsSessionComplete())
	require.Len(t, e.Game().Rules(), 1)
}

func TestResetAll(t *testing.T) {
	resetSignaled := false
	e := newTestEngine(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/reset-game" {
			resetSignaled = true
		}
	}))

	e.Chats().NewChat(false)
	e.Game().AddRule(models.Rule{ID: 1})
	e.Game().DecreaseLives()
	before := e.Game().SessionID()

	e.ResetAll(context.Background())

	assert.True(t, resetSignaled)
	assert.Equal(t, 5, e.Game().Lives())
	assert.Empty(t, e.Game().Rules())
	assert.False(t, e.Game().IsSessionComplete())
	assert.NotEqual(t, before, e.Game().SessionID())
	require.Len(t, e.Chats().Chats(), 1, "a fresh attempt is opened")
	assert.Equal(t, "Attempt 1", e.Chats().Chats()[0].Title)
}

func TestOnChangeFiresDuringStream(t *testing.T) {
	e := newTestEngine(t, streamHandler(
		`{"message":"A"}`,
		`{"message":"B"}`,
	))

	changes := make(chan struct{}, 64)
	e.SetOnChange(func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	})

	require.True(t, e.Submit(context.Background(), "hello"))

	select {
	case <-changes:
	case <-time.After(time.Second):
		t.Fatal("expected at least one change notification")
	}

	chat, _ := e.Chats().ActiveChat()
	assert.Equal(t, "AB", chat.Messages[1].Text)
}
