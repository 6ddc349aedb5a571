package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/leeschmalz/secret-hitler-role-assigner/internal/api/middleware"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/api/request"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/api/response"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/services/session"
)

// SessionHandler handles session lifecycle endpoints
type SessionHandler struct {
	controller *session.Controller
	logger     *slog.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(controller *session.Controller, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		controller: controller,
		logger:     logger,
	}
}

func sessionID(r *http.Request) string {
	return mux.Vars(r)["id"]
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	created, err := h.controller.Create(r.Context())
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusCreated, response.CreatedSession{ID: string(created.ID)})
}

// Get handles GET /api/v1/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.controller.View(r.Context(), sessionID(r))
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, response.SessionFromView(view))
}

// Join handles POST /api/v1/sessions/{id}/join
func (h *SessionHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req request.JoinRequest
	if err := decodeBody(w, r, &req); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	result, err := h.controller.Join(r.Context(), sessionID(r), req.Name)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusCreated, response.JoinedFromResult(result))
}

// Start handles POST /api/v1/sessions/{id}/start
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	state, err := h.controller.Start(r.Context(), sessionID(r))
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, response.Started{State: string(state)})
}

// Assign handles POST /api/v1/sessions/{id}/assign
func (h *SessionHandler) Assign(w http.ResponseWriter, r *http.Request) {
	round, err := h.controller.AssignRoles(r.Context(), sessionID(r))
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, response.Assigned{Round: round})
}

// Reveal handles POST /api/v1/sessions/{id}/reveal
func (h *SessionHandler) Reveal(w http.ResponseWriter, r *http.Request) {
	message, err := h.controller.RevealRole(r.Context(), sessionID(r), middleware.GetToken(r.Context()))
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, response.Revealed{Message: message})
}

// ViewParty handles POST /api/v1/sessions/{id}/view-party
func (h *SessionHandler) ViewParty(w http.ResponseWriter, r *http.Request) {
	var req request.ViewPartyRequest
	if err := decodeBody(w, r, &req); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	view, err := h.controller.ViewParty(r.Context(), sessionID(r), middleware.GetToken(r.Context()), req.TargetName)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, response.PartyFromView(view))
}

// End handles POST /api/v1/sessions/{id}/end and DELETE /api/v1/sessions/{id}
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.End(r.Context(), sessionID(r)); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, response.Ended{Deleted: true})
}
