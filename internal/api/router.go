package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/leeschmalz/secret-hitler-role-assigner/internal/api/handler"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/api/middleware"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/api/response"
	logmiddleware "github.com/leeschmalz/secret-hitler-role-assigner/internal/middleware"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/services/devtools"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/services/session"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger            *slog.Logger
	SessionController *session.Controller
	DevTools          *devtools.Service
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	sessionHandler := handler.NewSessionHandler(cfg.SessionController, cfg.Logger)
	devHandler := handler.NewDevHandler(cfg.DevTools, cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(logmiddleware.Logging(cfg.Logger))
	api.Use(middleware.Recovery(cfg.Logger))

	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	sessions := api.PathPrefix("/sessions").Subrouter()
	sessions.HandleFunc("", sessionHandler.Create).Methods(http.MethodPost)
	sessions.HandleFunc("/{id}", sessionHandler.Get).Methods(http.MethodGet)
	sessions.HandleFunc("/{id}", sessionHandler.End).Methods(http.MethodDelete)
	sessions.HandleFunc("/{id}/join", sessionHandler.Join).Methods(http.MethodPost)
	sessions.HandleFunc("/{id}/start", sessionHandler.Start).Methods(http.MethodPost)
	sessions.HandleFunc("/{id}/assign", sessionHandler.Assign).Methods(http.MethodPost)
	sessions.HandleFunc("/{id}/end", sessionHandler.End).Methods(http.MethodPost)

	// Player routes carry a token in the header or body
	playerRoutes := sessions.PathPrefix("/{id}").Subrouter()
	playerRoutes.Use(middleware.Token())
	playerRoutes.HandleFunc("/reveal", sessionHandler.Reveal).Methods(http.MethodPost)
	playerRoutes.HandleFunc("/view-party", sessionHandler.ViewParty).Methods(http.MethodPost)

	dev := api.PathPrefix("/dev").Subrouter()
	dev.HandleFunc("/status", devHandler.Status).Methods(http.MethodGet)
	dev.HandleFunc("/sessions/{id}/players", devHandler.AddPlayers).Methods(http.MethodPost)
	dev.HandleFunc("/sessions/{id}/roles", devHandler.Roles).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, response.Status{Status: "ok"})
}
