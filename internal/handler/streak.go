package handler

import (
	"net/http"

	"github.com/hollyoak/chorebank/internal/model"
	"github.com/hollyoak/chorebank/internal/store"
)

type StreakHandler struct {
	streaks *store.StreakStore
}

func NewStreakHandler(ss *store.StreakStore) *StreakHandler {
	return &StreakHandler{streaks: ss}
}

// ListByChild returns a child's streaks across all chores.
func (h *StreakHandler) ListByChild(w http.ResponseWriter, r *http.Request) {
	childID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	streaks, err := h.streaks.ListByChild(childID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list streaks"})
		return
	}
	if streaks == nil {
		streaks = []model.Streak{}
	}
	writeJSON(w, http.StatusOK, streaks)
}
