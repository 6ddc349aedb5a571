package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/leeschmalz/secret-hitler-role-assigner/internal/api/apierr"
)

// MaxBodyBytes bounds every request body the API reads
const MaxBodyBytes = 64 << 10

type contextKey string

const tokenContextKey contextKey = "player_token"

// Token extracts the player token from the request and stores it in the
// context. The Authorization header wins; otherwise a "token" field in the
// JSON body is used. The body is left readable for the handler.
func Token() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" && r.Body != nil {
				body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
				if err != nil {
					apierr.WriteError(w, apierr.NewInvalidRequestError("request body too large"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				token = bodyToken(body)
			}

			ctx := context.WithValue(r.Context(), tokenContextKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken returns the token from an Authorization: Bearer header
func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}

// bodyToken reads a top-level "token" string from a JSON body, if any
func bodyToken(body []byte) string {
	if len(bytes.TrimSpace(body)) == 0 {
		return ""
	}
	var payload struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Token)
}

// GetToken returns the player token found by the Token middleware, or ""
func GetToken(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey).(string)
	return token
}
