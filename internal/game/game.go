// Package game owns the session-level state: lives, accumulated rules, the
// session id shared with the backend, and the completion flags.
package game

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/tatianab/password-game/internal/client"
	"github.com/tatianab/password-game/internal/models"
	"github.com/tatianab/password-game/internal/storage"
)

// State is the game state controller. All mutation is funneled through its
// methods; each mutator persists before returning.
type State struct {
	mu                sync.Mutex
	rules             []models.Rule
	lives             int
	sessionID         string
	isSessionComplete bool
	hasSeenGameOver   bool
	celebrating       bool

	defaultLives int
	storage      *storage.Store
	client       *client.Client
	logger       *zap.Logger
}

// New restores persisted rules, lives, and session id. A missing session id
// is generated and persisted immediately.
func New(st *storage.Store, cl *client.Client, defaultLives int, logger *zap.Logger) *State {
	s := &State{
		rules:        st.LoadRules(),
		lives:        st.LoadLives(),
		sessionID:    st.LoadSessionID(),
		defaultLives: defaultLives,
		storage:      st,
		client:       cl,
		logger:       logger,
	}
	if s.sessionID == "" {
		s.sessionID = newSessionID()
		st.SaveSessionID(s.sessionID)
	}
	return s
}

// newSessionID returns a 5-digit zero-padded random token.
func newSessionID() string {
	return fmt.Sprintf("%05d", rand.Intn(100000))
}

func (s *State) Lives() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lives
}

// MaxLives is the configured full life count, for display scales.
func (s *State) MaxLives() int {
	return s.defaultLives
}

func (s *State) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

func (s *State) IsSessionComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isSessionComplete
}

func (s *State) HasSeenGameOver() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasSeenGameOver
}

func (s *State) MarkGameOverSeen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasSeenGameOver = true
}

// Celebrating reports whether a completion celebration is armed.
func (s *State) Celebrating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.celebrating
}

// Rules returns a copy of the rule list, most recently added first.
func (s *State) Rules() []models.Rule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Rule(nil), s.rules...)
}

// FetchRules returns the rule set: the stored rules when any exist,
// otherwise a remote fetch whose result is cached and persisted. The copy
// is sorted by descending rule id, since the backend issues ids in
// increasing order, so the newest rule sorts first.
func (s *State) FetchRules(ctx context.Context) ([]models.Rule, error) {
	s.mu.Lock()
	if len(s.rules) > 0 {
		rules := sortedDesc(s.rules)
		s.mu.Unlock()
		return rules, nil
	}
	s.mu.Unlock()

	fetched, err := s.client.FetchRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching rules: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = sortedDesc(fetched)
	s.storage.SaveRules(s.rules)
	return append([]models.Rule(nil), s.rules...), nil
}

func sortedDesc(rules []models.Rule) []models.Rule {
	out := append([]models.Rule(nil), rules...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// Reset clears all game storage, regenerates the session id, restores the
// default life count, and drops rules and completion flags.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.storage.ClearAll()
	s.rules = []models.Rule{}
	s.lives = s.defaultLives
	s.isSessionComplete = false
	s.hasSeenGameOver = false
	s.celebrating = false
	s.sessionID = newSessionID()
	s.storage.SaveSessionID(s.sessionID)
	s.storage.SaveLives(s.lives)
	s.logger.Info("game state reset", zap.String("session_id", s.sessionID))
}

// CompleteSession records that the password was found and arms the
// celebration.
func (s *State) CompleteSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isSessionComplete = true
	s.celebrating = true
	s.hasSeenGameOver = false
}

// StartNewSession clears the completion state for a fresh attempt.
func (s *State) StartNewSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isSessionComplete = false
	s.celebrating = false
}

// DecreaseLives removes one life, clamped at zero.
func (s *State) DecreaseLives() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lives <= 0 {
		return
	}
	s.lives--
	s.storage.SaveLives(s.lives)
}

// AddRule prepends a newly discovered rule and persists it immediately, so
// it cannot be lost to an unrelated state write racing the update.
func (s *State) AddRule(rule models.Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append([]models.Rule{rule}, s.rules...)
	s.storage.SaveRules(s.rules)
}
