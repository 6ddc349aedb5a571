package auth

import (
	"context"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/leeschmalz/secret-hitler-role-assigner/internal/dependencies/random"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/model"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/storage"
)

// Service issues player tokens and resolves them back to players.
// Only token digests are ever persisted.
type Service struct {
	storage storage.Storage
	random  random.Random
}

// New creates a new auth Service
func New(storage storage.Storage, random random.Random) *Service {
	return &Service{
		storage: storage,
		random:  random,
	}
}

// IssueToken returns a fresh bearer token and the digest to store for it
func (s *Service) IssueToken() (token, digest string) {
	token = s.random.Token()
	return token, Digest(token)
}

// Digest returns the hex-encoded BLAKE2b-256 digest of a token
func Digest(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Authenticate resolves a token to a player in the given session
func (s *Service) Authenticate(ctx context.Context, sessionID model.SessionID, token string) (*model.Player, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, model.ErrMissingToken
	}
	return s.storage.GetPlayerByToken(ctx, sessionID, Digest(token))
}
