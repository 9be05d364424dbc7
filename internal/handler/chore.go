package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hollyoak/chorebank/internal/model"
	"github.com/hollyoak/chorebank/internal/store"
	"github.com/hollyoak/chorebank/internal/websocket"
)

type ChoreHandler struct {
	chores   *store.ChoreStore
	families *store.FamilyStore
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewChoreHandler(cs *store.ChoreStore, fs *store.FamilyStore, hub *websocket.Hub, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{chores: cs, families: fs, hub: hub, logger: logger}
}

func (h *ChoreHandler) broadcast(ev websocket.Event) {
	if h.hub != nil {
		h.hub.Broadcast(ev)
	}
}

type choreRequest struct {
	FamilyID    int64           `json:"family_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Frequency   model.Frequency `json:"frequency"`
	RewardPence int             `json:"reward_pence"`
	Competitive bool            `json:"competitive"`
	Active      bool            `json:"active"`
}

func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req choreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}
	if !req.Frequency.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid frequency"})
		return
	}
	if req.RewardPence <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reward must be positive"})
		return
	}

	family, err := h.families.GetByID(req.FamilyID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check family"})
		return
	}
	if family == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "family not found"})
		return
	}

	chore, err := h.chores.Create(req.FamilyID, req.Title, req.Description, req.Frequency, req.RewardPence, req.Competitive)
	if err != nil {
		h.logger.Error("create chore", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create chore"})
		return
	}

	h.broadcast(websocket.NewEvent(req.FamilyID, "chore", "created", chore.ID, nil))
	writeJSON(w, http.StatusCreated, chore)
}

func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	familyID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	chores, err := h.chores.ListByFamily(familyID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list chores"})
		return
	}
	if chores == nil {
		chores = []model.Chore{}
	}
	writeJSON(w, http.StatusOK, chores)
}

func (h *ChoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.chores.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get chore"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "chore not found"})
		return
	}

	var req choreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}
	if req.RewardPence <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reward must be positive"})
		return
	}

	// Frequency is fixed after creation; assignment history depends on it.
	chore, err := h.chores.Update(id, req.Title, req.Description, req.RewardPence, req.Competitive, req.Active)
	if err != nil {
		h.logger.Error("update chore", "chore_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update chore"})
		return
	}

	h.broadcast(websocket.NewEvent(chore.FamilyID, "chore", "updated", id, nil))
	writeJSON(w, http.StatusOK, chore)
}

// Delete removes a chore outright only while nothing references it; once
// assignments exist the chore is deactivated so history stays intact.
func (h *ChoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.chores.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get chore"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "chore not found"})
		return
	}

	referenced, err := h.chores.HasAssignments(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check chore history"})
		return
	}

	if referenced {
		if err := h.chores.Deactivate(id); err != nil {
			h.logger.Error("deactivate chore", "chore_id", id, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to deactivate chore"})
			return
		}
		h.broadcast(websocket.NewEvent(existing.FamilyID, "chore", "deactivated", id, nil))
		writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
		return
	}

	if err := h.chores.Delete(id); err != nil {
		h.logger.Error("delete chore", "chore_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete chore"})
		return
	}

	h.broadcast(websocket.NewEvent(existing.FamilyID, "chore", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}
