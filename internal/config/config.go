package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

const (
	// DefaultLives is the life count players start with and are restored
	// to on reset.
	DefaultLives = 5

	// DefaultStreamDelay is the minimum interval between delivered stream
	// records.
	DefaultStreamDelay = 10 * time.Millisecond
)

// Config holds the application configuration.
type Config struct {
	APIBaseURL  string
	DataDir     string
	Lives       int
	StreamDelay time.Duration
	Verbose     bool
}

// Default returns the configuration baseline before flags and environment
// are applied.
func Default() Config {
	return Config{
		APIBaseURL:  "http://localhost:8000",
		DataDir:     defaultDataDir(),
		Lives:       DefaultLives,
		StreamDelay: DefaultStreamDelay,
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".password-game"
	}
	return filepath.Join(home, ".password-game")
}

// LoadEnv reads a .env file from the working directory when one exists.
func LoadEnv() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return errors.New("api-url must not be empty")
	}
	if c.Lives < 1 {
		return fmt.Errorf("lives must be at least 1, got %d", c.Lives)
	}
	if c.StreamDelay < 0 {
		return fmt.Errorf("stream-delay must not be negative, got %s", c.StreamDelay)
	}
	return nil
}
