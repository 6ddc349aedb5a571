package handler

import (
	"log/slog"
	"net/http"

	"github.com/leeschmalz/secret-hitler-role-assigner/internal/api/request"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/api/response"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/services/devtools"
)

// DevHandler exposes the dev tools. Every endpoint except Status answers
// 403 unless dev mode is on.
type DevHandler struct {
	devtools *devtools.Service
	logger   *slog.Logger
}

// NewDevHandler creates a new dev handler
func NewDevHandler(service *devtools.Service, logger *slog.Logger) *DevHandler {
	return &DevHandler{
		devtools: service,
		logger:   logger,
	}
}

// Status handles GET /api/v1/dev/status
func (h *DevHandler) Status(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, response.DevStatus{DevMode: h.devtools.Status()})
}

// AddPlayers handles POST /api/v1/dev/sessions/{id}/players
func (h *DevHandler) AddPlayers(w http.ResponseWriter, r *http.Request) {
	var req request.AddPlayersRequest
	if err := decodeBody(w, r, &req); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	added, err := h.devtools.AddPlayers(r.Context(), sessionID(r), req.Count)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	resp := response.AddedPlayers{Added: make([]response.Joined, len(added))}
	for i, p := range added {
		resp.Added[i] = response.JoinedFromResult(p)
	}
	response.JSON(w, http.StatusCreated, resp)
}

// Roles handles GET /api/v1/dev/sessions/{id}/roles
func (h *DevHandler) Roles(w http.ResponseWriter, r *http.Request) {
	roster, err := h.devtools.Roles(r.Context(), sessionID(r))
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, response.RosterFromDevtools(roster))
}
