package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/leeschmalz/secret-hitler-role-assigner/internal/api/apierr"
	apimiddleware "github.com/leeschmalz/secret-hitler-role-assigner/internal/api/middleware"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/middleware"
)

// WriteError writes an error response, logging anything that maps to a 500
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if apierr.IsInternal(err) {
		logger.Error("request failed",
			slog.String("request_id", middleware.RequestID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	apierr.WriteError(w, err)
}

// decodeBody decodes an optional JSON body into dst. An empty body is fine.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	body := http.MaxBytesReader(w, r.Body, apimiddleware.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return apierr.NewInvalidRequestError("invalid JSON body")
	}
	return nil
}
