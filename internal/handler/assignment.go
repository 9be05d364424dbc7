package handler

import (
	"net/http"

	"github.com/hollyoak/chorebank/internal/model"
	"github.com/hollyoak/chorebank/internal/store"
)

type AssignmentHandler struct {
	assignments *store.AssignmentStore
	bids        *store.BidStore
}

func NewAssignmentHandler(as *store.AssignmentStore, bs *store.BidStore) *AssignmentHandler {
	return &AssignmentHandler{assignments: as, bids: bs}
}

// ListByChild returns a child's assignments, optionally filtered to one
// period via the period_key query parameter.
func (h *AssignmentHandler) ListByChild(w http.ResponseWriter, r *http.Request) {
	childID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	assignments, err := h.assignments.ListByChild(childID, r.URL.Query().Get("period_key"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list assignments"})
		return
	}
	if assignments == nil {
		assignments = []model.Assignment{}
	}
	writeJSON(w, http.StatusOK, assignments)
}

type assignmentDetail struct {
	Assignment *model.Assignment `json:"assignment"`
	Bids       []model.Bid       `json:"bids"`
	Champion   *model.Bid        `json:"champion,omitempty"`
	Submission *model.Completion `json:"submission,omitempty"`
}

// Get returns one assignment with its auction state and live submission.
func (h *AssignmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	a, err := h.assignments.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get assignment"})
		return
	}
	if a == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "assignment not found"})
		return
	}

	detail := assignmentDetail{Assignment: a, Bids: []model.Bid{}}
	if a.Competitive {
		bids, err := h.bids.ListByAssignment(id)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list bids"})
			return
		}
		if bids != nil {
			detail.Bids = bids
		}
		detail.Champion, err = h.bids.Champion(id)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to compute champion"})
			return
		}
	}

	detail.Submission, err = h.assignments.GetSubmission(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get submission"})
		return
	}

	writeJSON(w, http.StatusOK, detail)
}
