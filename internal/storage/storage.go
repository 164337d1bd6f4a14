// Package storage persists each slice of game state to its own file under
// the data directory, so every key loads and saves independently and a
// corrupt or missing file only costs its own slice.
package storage

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/tatianab/password-game/internal/models"
)

const (
	chatsFile      = "chats.yaml"
	activeChatFile = "active_chat"
	rulesFile      = "rules.yaml"
	livesFile      = "lives"
	sessionIDFile  = "session_id"
)

// Store reads and writes per-key state files. Reads fall back to defaults
// and writes are best-effort: failures are logged, never returned, because
// the game keeps playing on in-memory state.
type Store struct {
	dir          string
	defaultLives int
	logger       *zap.Logger
}

func New(dir string, defaultLives int, logger *zap.Logger) *Store {
	return &Store{dir: dir, defaultLives: defaultLives, logger: logger}
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *Store) write(name string, data []byte) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.logger.Warn("create data dir", zap.String("dir", s.dir), zap.Error(err))
		return
	}
	if err := os.WriteFile(s.path(name), data, 0o644); err != nil {
		s.logger.Warn("write state file", zap.String("file", name), zap.Error(err))
	}
}

// LoadChats returns the stored chat list, or an empty list.
func (s *Store) LoadChats() []models.Chat {
	data, err := os.ReadFile(s.path(chatsFile))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("read chats", zap.Error(err))
		}
		return []models.Chat{}
	}
	var chats []models.Chat
	if err := yaml.Unmarshal(data, &chats); err != nil {
		s.logger.Warn("parse chats", zap.Error(err))
		return []models.Chat{}
	}
	return chats
}

func (s *Store) SaveChats(chats []models.Chat) {
	data, err := yaml.Marshal(chats)
	if err != nil {
		s.logger.Warn("marshal chats", zap.Error(err))
		return
	}
	s.write(chatsFile, data)
}

// LoadActiveChatID returns the stored active chat id, or "" when none is set.
func (s *Store) LoadActiveChatID() string {
	data, err := os.ReadFile(s.path(activeChatFile))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("read active chat id", zap.Error(err))
		}
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (s *Store) SaveActiveChatID(id string) {
	if id == "" {
		if err := os.Remove(s.path(activeChatFile)); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("remove active chat id", zap.Error(err))
		}
		return
	}
	s.write(activeChatFile, []byte(id))
}

// LoadRules returns the stored rule list, or an empty list.
func (s *Store) LoadRules() []models.Rule {
	data, err := os.ReadFile(s.path(rulesFile))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("read rules", zap.Error(err))
		}
		return []models.Rule{}
	}
	var rules []models.Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		s.logger.Warn("parse rules", zap.Error(err))
		return []models.Rule{}
	}
	return rules
}

func (s *Store) SaveRules(rules []models.Rule) {
	data, err := yaml.Marshal(rules)
	if err != nil {
		s.logger.Warn("marshal rules", zap.Error(err))
		return
	}
	s.write(rulesFile, data)
}

// LoadLives returns the stored life count, or the configured default.
func (s *Store) LoadLives() int {
	data, err := os.ReadFile(s.path(livesFile))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("read lives", zap.Error(err))
		}
		return s.defaultLives
	}
	lives, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		s.logger.Warn("parse lives", zap.Error(err))
		return s.defaultLives
	}
	return lives
}

func (s *Store) SaveLives(lives int) {
	s.write(livesFile, []byte(strconv.Itoa(lives)))
}

// LoadSessionID returns the stored session id, or "" when none exists yet.
func (s *Store) LoadSessionID() string {
	data, err := os.ReadFile(s.path(sessionIDFile))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("read session id", zap.Error(err))
		}
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (s *Store) SaveSessionID(id string) {
	s.write(sessionIDFile, []byte(id))
}

// ClearAll removes every state file unconditionally.
func (s *Store) ClearAll() {
	for _, name := range []string{chatsFile, activeChatFile, rulesFile, livesFile, sessionIDFile} {
		if err := os.Remove(s.path(name)); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("remove state file", zap.String("file", name), zap.Error(err))
		}
	}
}
