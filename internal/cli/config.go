package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/leeschmalz/secret-hitler-role-assigner/internal/model"
)

// Config holds CLI configuration
type Config struct {
	ServerURL string
	Token     string
	TokenDir  string
	Output    string
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL: getEnvOrDefault("SHRA_SERVER", "http://localhost:8080"),
		Token:     os.Getenv("SHRA_TOKEN"),
		TokenDir:  getEnvOrDefault("SHRA_TOKEN_DIR", defaultTokenDir()),
		Output:    "text",
	}
}

// tokenPath returns the file holding the player token for a session. The id
// is validated first so it can never escape the token directory.
func (c *Config) tokenPath(rawID string) (string, error) {
	id, err := model.ParseSessionID(rawID)
	if err != nil {
		return "", err
	}
	return filepath.Join(c.TokenDir, string(id)), nil
}

// LoadToken returns the token for a session. An explicit --token or
// SHRA_TOKEN wins over the stored file; a missing file yields "".
func (c *Config) LoadToken(rawID string) (string, error) {
	if c.Token != "" {
		return c.Token, nil
	}

	path, err := c.tokenPath(rawID)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// SaveToken stores the token for a session
func (c *Config) SaveToken(rawID, token string) error {
	path, err := c.tokenPath(rawID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.TokenDir, 0700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(token), 0600)
}

// RemoveToken deletes the stored token for a session, if any
func (c *Config) RemoveToken(rawID string) error {
	path, err := c.tokenPath(rawID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func defaultTokenDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".shra", "tokens")
	}
	return filepath.Join(home, ".shra", "tokens")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
