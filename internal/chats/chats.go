// Package chats owns the conversation list and the active-chat pointer.
// Every mutation persists through the storage layer before returning, so a
// reload picks up exactly what the UI last saw. Operations referencing an
// unknown chat or message id are silent no-ops: the store is driven only by
// trusted internal code and favors availability over validation.
package chats

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/tatianab/password-game/internal/models"
	"github.com/tatianab/password-game/internal/storage"
)

type Store struct {
	mu       sync.Mutex
	chats    []models.Chat
	activeID string
	storage  *storage.Store
}

// New loads the persisted chat list and active pointer. An active pointer
// that no longer references a stored chat is dropped.
func New(st *storage.Store) *Store {
	s := &Store{
		chats:   st.LoadChats(),
		storage: st,
	}
	activeID := st.LoadActiveChatID()
	if _, ok := s.find(activeID); ok {
		s.activeID = activeID
	}
	return s
}

func (s *Store) find(id string) (int, bool) {
	for i := range s.chats {
		if s.chats[i].ID == id {
			return i, true
		}
	}
	return 0, false
}

func (s *Store) persist() {
	s.storage.SaveChats(s.chats)
	s.storage.SaveActiveChatID(s.activeID)
}

// Chats returns a snapshot of the chat list, most recent first.
func (s *Store) Chats() []models.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Chat, len(s.chats))
	for i, c := range s.chats {
		out[i] = c
		out[i].Messages = append([]models.Message(nil), c.Messages...)
	}
	return out
}

// ActiveChatID returns the id of the active chat, or "" when none is set.
func (s *Store) ActiveChatID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// ActiveChat returns a copy of the active chat.
func (s *Store) ActiveChat() (models.Chat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.find(s.activeID)
	if !ok {
		return models.Chat{}, false
	}
	c := s.chats[i]
	c.Messages = append([]models.Message(nil), c.Messages...)
	return c, true
}

// Messages returns a copy of a chat's message history.
func (s *Store) Messages(id string) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.find(id)
	if !ok {
		return nil
	}
	return append([]models.Message(nil), s.chats[i].Messages...)
}

// NewChat creates a fresh chat, inserts it at the front of the list, makes
// it active, and returns its id. The title is the lowest unused "Attempt N"
// number unless skipNumbering is set, in which case it is always Attempt 1.
func (s *Store) NewChat(skipNumbering bool) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 1
	if !skipNumbering {
		titles := lo.Map(s.chats, func(c models.Chat, _ int) string { return c.Title })
		n = models.NextAttemptNumber(titles)
	}

	now := time.Now()
	chat := models.Chat{
		ID:        "chat_" + uuid.NewString(),
		Title:     models.AttemptTitle(n),
		Messages:  []models.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.chats = append([]models.Chat{chat}, s.chats...)
	s.activeID = chat.ID
	s.persist()
	return chat.ID
}

// AppendMessage adds a message to a chat. The first message of a chat also
// sets its title from the message text.
func (s *Store) AppendMessage(chatID string, msg models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.find(chatID)
	if !ok {
		return
	}
	if len(s.chats[i].Messages) == 0 {
		s.chats[i].Title = models.DeriveTitle(msg.Text)
	}
	s.chats[i].Messages = append(s.chats[i].Messages, msg)
	s.chats[i].UpdatedAt = time.Now()
	s.persist()
}

// UpdateMessageText replaces a message's text in place. Called repeatedly
// while a response streams, so it also clears the loading flag.
func (s *Store) UpdateMessageText(chatID string, messageID int64, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.find(chatID)
	if !ok {
		return
	}
	for j := range s.chats[i].Messages {
		if s.chats[i].Messages[j].ID == messageID {
			s.chats[i].Messages[j].Text = text
			s.chats[i].Messages[j].IsLoading = false
			s.chats[i].UpdatedAt = time.Now()
			s.persist()
			return
		}
	}
}

// MarkComplete records that this chat's password was found.
func (s *Store) MarkComplete(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.find(chatID)
	if !ok {
		return
	}
	s.chats[i].IsSessionComplete = true
	s.chats[i].UpdatedAt = time.Now()
	s.persist()
}

// MarkCongratulationsSeen records that the player dismissed the win notice
// for this chat, so it does not reappear on revisit.
func (s *Store) MarkCongratulationsSeen(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.find(chatID)
	if !ok {
		return
	}
	s.chats[i].HasSeenCongratulations = true
	s.persist()
}

// Select makes the given chat active.
func (s *Store) Select(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.find(chatID); !ok {
		return
	}
	s.activeID = chatID
	s.persist()
}

// Delete removes a chat. Deleting the active chat hands the pointer to the
// new head of the list; deleting the last chat leaves the emptied list
// persisted first and only then creates a replacement, so storage never
// holds a pointer to a chat that is gone.
func (s *Store) Delete(chatID string) {
	s.mu.Lock()
	i, ok := s.find(chatID)
	if !ok {
		s.mu.Unlock()
		return
	}
	s.chats = append(s.chats[:i], s.chats[i+1:]...)
	needFresh := false
	if chatID == s.activeID {
		if len(s.chats) > 0 {
			s.activeID = s.chats[0].ID
		} else {
			s.activeID = ""
			needFresh = true
		}
	}
	s.persist()
	s.mu.Unlock()

	if needFresh {
		s.NewChat(false)
	}
}

// Rename applies a trimmed non-empty title to a chat.
func (s *Store) Rename(chatID, title string) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.find(chatID)
	if !ok {
		return
	}
	s.chats[i].Title = trimmed
	s.chats[i].UpdatedAt = time.Now()
	s.persist()
}

// ClearAll empties the list and nulls the active pointer.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = []models.Chat{}
	s.activeID = ""
	s.persist()
}
