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

type FamilyHandler struct {
	families *store.FamilyStore
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewFamilyHandler(fs *store.FamilyStore, hub *websocket.Hub, logger *slog.Logger) *FamilyHandler {
	return &FamilyHandler{families: fs, hub: hub, logger: logger}
}

func (h *FamilyHandler) broadcast(ev websocket.Event) {
	if h.hub != nil {
		h.hub.Broadcast(ev)
	}
}

type familyRequest struct {
	Name string `json:"name"`
}

func (h *FamilyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req familyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	family, err := h.families.Create(req.Name)
	if err != nil {
		h.logger.Error("create family", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create family"})
		return
	}
	writeJSON(w, http.StatusCreated, family)
}

func (h *FamilyHandler) List(w http.ResponseWriter, r *http.Request) {
	families, err := h.families.ListActive()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list families"})
		return
	}
	if families == nil {
		families = []model.Family{}
	}
	writeJSON(w, http.StatusOK, families)
}

func (h *FamilyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	family, err := h.families.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get family"})
		return
	}
	if family == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "family not found"})
		return
	}
	writeJSON(w, http.StatusOK, family)
}

type settingsRequest struct {
	HolidayStart         *time.Time        `json:"holiday_start"`
	HolidayEnd           *time.Time        `json:"holiday_end"`
	StreakProtectionDays int               `json:"streak_protection_days"`
	PenaltiesEnabled     bool              `json:"penalties_enabled"`
	PenaltyMode          model.PenaltyMode `json:"penalty_mode"`
	FirstMiss            model.PenaltyTier `json:"first_miss"`
	SecondMiss           model.PenaltyTier `json:"second_miss"`
	ThirdMiss            model.PenaltyTier `json:"third_miss"`
	MinBalancePence      int               `json:"min_balance_pence"`
	MinBalanceStars      int               `json:"min_balance_stars"`
}

func (h *FamilyHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.families.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get family"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "family not found"})
		return
	}

	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	switch req.PenaltyMode {
	case model.PenaltyModeMoney, model.PenaltyModeStars, model.PenaltyModeBoth:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid penalty mode"})
		return
	}
	if req.StreakProtectionDays < 0 || req.MinBalancePence < 0 || req.MinBalanceStars < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "negative settings are not allowed"})
		return
	}
	if (req.HolidayStart == nil) != (req.HolidayEnd == nil) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "holiday window needs both start and end"})
		return
	}
	if req.HolidayStart != nil && !req.HolidayStart.Before(*req.HolidayEnd) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "holiday start must precede end"})
		return
	}

	family, err := h.families.UpdateSettings(id, store.Settings{
		HolidayStart:         req.HolidayStart,
		HolidayEnd:           req.HolidayEnd,
		StreakProtectionDays: req.StreakProtectionDays,
		PenaltiesEnabled:     req.PenaltiesEnabled,
		PenaltyMode:          req.PenaltyMode,
		FirstMiss:            req.FirstMiss,
		SecondMiss:           req.SecondMiss,
		ThirdMiss:            req.ThirdMiss,
		MinBalancePence:      req.MinBalancePence,
		MinBalanceStars:      req.MinBalanceStars,
	})
	if err != nil {
		h.logger.Error("update family settings", "family_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update settings"})
		return
	}

	h.broadcast(websocket.NewEvent(id, "family", "settings_updated", id, nil))
	writeJSON(w, http.StatusOK, family)
}

func (h *FamilyHandler) Archive(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.families.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get family"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "family not found"})
		return
	}

	if err := h.families.Archive(id); err != nil {
		h.logger.Error("archive family", "family_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to archive family"})
		return
	}

	h.broadcast(websocket.NewEvent(id, "family", "archived", id, nil))
	w.WriteHeader(http.StatusNoContent)
}
