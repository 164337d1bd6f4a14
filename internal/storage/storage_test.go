package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tatianab/password-game/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(t.TempDir(), 5, zap.NewNop())
}

func TestDefaultsWhenEmpty(t *testing.T) {
	s := newTestStore(t)

	assert.Empty(t, s.LoadChats())
	assert.Empty(t, s.LoadRules())
	assert.Equal(t, "", s.LoadActiveChatID())
	assert.Equal(t, 5, s.LoadLives())
	assert.Equal(t, "", s.LoadSessionID())
}

func TestChatsRoundTrip(t *testing.T) {
	s := newTestStore(t)

	chats := []models.Chat{
		{ID: "chat_a", Title: "Attempt 1", Messages: []models.Message{{ID: 1, Text: "hi", IsUser: true}}},
		{ID: "chat_b", Title: "Attempt 2", Messages: []models.Message{}},
	}
	s.SaveChats(chats)

	loaded := s.LoadChats()
	require.Len(t, loaded, 2)
	assert.Equal(t, "chat_a", loaded[0].ID)
	assert.Equal(t, "hi", loaded[0].Messages[0].Text)
	assert.True(t, loaded[0].Messages[0].IsUser)
}

func TestActiveChatID(t *testing.T) {
	s := newTestStore(t)

	s.SaveActiveChatID("chat_a")
	assert.Equal(t, "chat_a", s.LoadActiveChatID())

	// Saving the empty id removes the key entirely.
	s.SaveActiveChatID("")
	assert.Equal(t, "", s.LoadActiveChatID())
}

func TestLivesAndSessionID(t *testing.T) {
	s := newTestStore(t)

	s.SaveLives(2)
	assert.Equal(t, 2, s.LoadLives())

	s.SaveSessionID("04217")
	assert.Equal(t, "04217", s.LoadSessionID())
}

func TestCorruptFilesFallBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, 5, zap.NewNop())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "chats.yaml"), []byte("{not yaml: ["), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lives"), []byte("a few"), 0o644))

	assert.Empty(t, s.LoadChats())
	assert.Equal(t, 5, s.LoadLives())
}

func TestClearAll(t *testing.T) {
	s := newTestStore(t)

	s.SaveChats([]models.Chat{{ID: "chat_a"}})
	s.SaveActiveChatID("chat_a")
	s.SaveRules([]models.Rule{{ID: 1, Title: "No hints"}})
	s.SaveLives(3)
	s.SaveSessionID("00042")

	s.ClearAll()

	assert.Empty(t, s.LoadChats())
	assert.Equal(t, "", s.LoadActiveChatID())
	assert.Empty(t, s.LoadRules())
	assert.Equal(t, 5, s.LoadLives())
	assert.Equal(t, "", s.LoadSessionID())
}
