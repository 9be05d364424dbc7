package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hollyoak/chorebank/internal/model"
	"github.com/hollyoak/chorebank/internal/store"
	"github.com/hollyoak/chorebank/internal/websocket"
)

type ChildHandler struct {
	children *store.ChildStore
	families *store.FamilyStore
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewChildHandler(cs *store.ChildStore, fs *store.FamilyStore, hub *websocket.Hub, logger *slog.Logger) *ChildHandler {
	return &ChildHandler{children: cs, families: fs, hub: hub, logger: logger}
}

func (h *ChildHandler) broadcast(ev websocket.Event) {
	if h.hub != nil {
		h.hub.Broadcast(ev)
	}
}

type childCreateRequest struct {
	FamilyID int64  `json:"family_id"`
	Name     string `json:"name"`
}

func (h *ChildHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req childCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
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

	child, err := h.children.Create(req.FamilyID, req.Name)
	if err != nil {
		h.logger.Error("create child", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create child"})
		return
	}

	h.broadcast(websocket.NewEvent(req.FamilyID, "child", "created", child.ID, nil))
	writeJSON(w, http.StatusCreated, child)
}

func (h *ChildHandler) List(w http.ResponseWriter, r *http.Request) {
	familyID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	children, err := h.children.ListByFamily(familyID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list children"})
		return
	}
	if children == nil {
		children = []model.Child{}
	}
	writeJSON(w, http.StatusOK, children)
}

type childUpdateRequest struct {
	Name         string     `json:"name"`
	Paused       bool       `json:"paused"`
	HolidayStart *time.Time `json:"holiday_start"`
	HolidayEnd   *time.Time `json:"holiday_end"`
}

func (h *ChildHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.children.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get child"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "child not found"})
		return
	}

	var req childUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if (req.HolidayStart == nil) != (req.HolidayEnd == nil) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "holiday window needs both start and end"})
		return
	}

	child, err := h.children.Update(id, req.Name, req.Paused, req.HolidayStart, req.HolidayEnd)
	if err != nil {
		h.logger.Error("update child", "child_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update child"})
		return
	}

	h.broadcast(websocket.NewEvent(child.FamilyID, "child", "updated", id, nil))
	writeJSON(w, http.StatusOK, child)
}

func (h *ChildHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.children.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get child"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "child not found"})
		return
	}

	if err := h.children.Delete(id); err != nil {
		h.logger.Error("delete child", "child_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete child"})
		return
	}

	h.broadcast(websocket.NewEvent(existing.FamilyID, "child", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}
