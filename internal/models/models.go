package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Message is a single turn in a conversation. AI messages start empty with
// IsLoading set and have their Text grown in place while the response streams.
type Message struct {
	ID        int64  `json:"id" yaml:"id"`
	Text      string `json:"text" yaml:"text"`
	IsUser    bool   `json:"isUser" yaml:"is_user"`
	Timestamp string `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	IsLoading bool   `json:"isLoading,omitempty" yaml:"is_loading,omitempty"`
}

// Chat is one guessing attempt against the AI: an ordered message history
// plus its completion state.
type Chat struct {
	ID                     string    `json:"id" yaml:"id"`
	Title                  string    `json:"title" yaml:"title"`
	Messages               []Message `json:"messages" yaml:"messages"`
	CreatedAt              time.Time `json:"createdAt" yaml:"created_at"`
	UpdatedAt              time.Time `json:"updatedAt" yaml:"updated_at"`
	IsSessionComplete      bool      `json:"isSessionComplete,omitempty" yaml:"is_session_complete,omitempty"`
	HasSeenCongratulations bool      `json:"hasSeenCongratulations,omitempty" yaml:"has_seen_congratulations,omitempty"`
}

// Rule is a constraint the AI adopts after each successful password
// discovery. Rule ids are issued by the backend and increase over time.
type Rule struct {
	ID          int    `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
}

const (
	titleMaxWords = 6
	titleMaxChars = 50
)

// DeriveTitle builds a chat title from the first user message: the leading
// words only, capped at 50 characters with an ellipsis.
func DeriveTitle(firstMessage string) string {
	words := strings.Fields(strings.TrimSpace(firstMessage))
	if len(words) > titleMaxWords {
		words = words[:titleMaxWords]
	}
	title := strings.Join(words, " ")
	if r := []rune(title); len(r) > titleMaxChars {
		title = string(r[:titleMaxChars-3]) + "..."
	}
	return title
}

var attemptPattern = regexp.MustCompile(`^Attempt (\d+)$`)

// NextAttemptNumber returns the smallest positive integer not already used
// by an "Attempt N" title, so deleted attempts free their numbers.
func NextAttemptNumber(titles []string) int {
	used := make(map[int]bool, len(titles))
	for _, title := range titles {
		m := attemptPattern.FindStringSubmatch(title)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			used[n] = true
		}
	}
	next := 1
	for used[next] {
		next++
	}
	return next
}

// AttemptTitle formats the display title for a fresh chat.
func AttemptTitle(n int) string {
	return fmt.Sprintf("Attempt %d", n)
}
